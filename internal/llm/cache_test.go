package llm

import (
	"testing"
	"time"
)

func TestTTLCache_SetThenGetReturnsValue(t *testing.T) {
	c := newTTLCache(8)
	c.set("classify", "hello", "prompt", ClassifyResult{IsMatch: true, Confidence: 0.9})

	got, ok := c.get("classify", "hello", "prompt")
	if !ok {
		t.Fatal("expected cache hit")
	}
	result := got.(ClassifyResult)
	if !result.IsMatch || result.Confidence != 0.9 {
		t.Fatalf("unexpected cached value: %+v", result)
	}
}

func TestTTLCache_MissOnDifferentKey(t *testing.T) {
	c := newTTLCache(8)
	c.set("classify", "hello", "prompt", ClassifyResult{IsMatch: true})

	if _, ok := c.get("classify", "different message", "prompt"); ok {
		t.Fatal("expected cache miss for a different text")
	}
	if _, ok := c.get("extract", "hello", "prompt"); ok {
		t.Fatal("expected cache miss for a different operation")
	}
}

func TestTTLCache_ExpiresAfterTTL(t *testing.T) {
	c := newTTLCache(8)
	key := c.key("classify", "hello", "prompt")
	c.inner.Add(key, cacheEntry{value: ClassifyResult{IsMatch: true}, storedAt: time.Now().Add(-2 * cacheTTL)})

	if _, ok := c.get("classify", "hello", "prompt"); ok {
		t.Fatal("expected expired entry to miss")
	}
}
