package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/leadwatch/leadwatch/internal/domain"
	"github.com/leadwatch/leadwatch/internal/telemetry"
)

var tracer = telemetry.Tracer("llm")

const (
	classifySystemPrompt = `You are an assistant that decides whether a chat message matches a search criterion.

Respond ONLY in JSON, with no surrounding text:
{"is_match": true/false, "confidence": 0.0-1.0, "reasoning": "one or two sentences"}`

	extractSystemPrompt = `You are an assistant that extracts structured information from a chat message.
Extract: contact details (email, phone, messenger handle), keywords, budget if mentioned,
deadline if mentioned, and a two-to-three sentence summary.

Respond ONLY in JSON, with no surrounding text:
{"contacts": ["..."], "keywords": ["..."], "budget": "string or null", "deadline": "string or null", "summary": "..."}`
)

// OpenAIClient calls an OpenAI-compatible chat completions endpoint
// (spec.md §4.2; the upstream points this at llm.codenrock.com).
type OpenAIClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	retry   RetryConfig
	cache   *ttlCache
	limiter *rate.Limiter
	logger  *slog.Logger
}

// defaultRequestsPerSecond bounds outbound calls to the LM provider so a
// tenant with many rules and channels can't burst past its own quota; it
// is waited on inside each attempt RetryDo makes, so a retried call waits
// for a token same as a fresh one.
const defaultRequestsPerSecond = 5

// NewOpenAIClient builds a Client. baseURL is the API root (no trailing
// /v1/chat/completions suffix).
func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration, logger *slog.Logger) *OpenAIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: timeout},
		retry:   DefaultRetryConfig(),
		cache:   newTTLCache(4096),
		limiter: rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultRequestsPerSecond),
		logger:  logger,
	}
}

func (c *OpenAIClient) Classify(ctx context.Context, text, prompt string) (ClassifyResult, error) {
	if cached, ok := c.cache.get("classify", text, prompt); ok {
		return cached.(ClassifyResult), nil
	}

	userPrompt := fmt.Sprintf("Search criterion:\n%s\n\nMessage to analyze:\n%s\n\nDoes the message match the criterion? Respond in JSON.", prompt, text)
	raw, err := c.complete(ctx, classifySystemPrompt, userPrompt, 0.2, 300)
	if err != nil {
		return ClassifyResult{}, err
	}

	var result ClassifyResult
	if err := validateRequiredKeys(raw, "is_match", "confidence", "reasoning"); err != nil {
		// Degrade, don't raise: a malformed or incomplete LM response is
		// not a pipeline failure (spec.md §4.2).
		c.logger.Warn("lm client: malformed classify response", "error", err, "raw", raw)
		return ClassifyResult{IsMatch: false, Confidence: 0, Reasoning: "lm response could not be parsed"}, nil
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.logger.Warn("lm client: malformed classify response", "error", err, "raw", raw)
		return ClassifyResult{IsMatch: false, Confidence: 0, Reasoning: "lm response could not be parsed"}, nil
	}

	c.cache.set("classify", text, prompt, result)
	return result, nil
}

func (c *OpenAIClient) Extract(ctx context.Context, text string) (domain.ExtractedEntities, error) {
	if cached, ok := c.cache.get("extract", text, ""); ok {
		return cached.(domain.ExtractedEntities), nil
	}

	userPrompt := fmt.Sprintf("Message to analyze:\n%s\n\nExtract structured data as JSON.", text)
	raw, err := c.complete(ctx, extractSystemPrompt, userPrompt, 0.1, 500)
	if err != nil {
		return domain.ExtractedEntities{}, err
	}

	var parsed extractResult
	if err := validateRequiredKeys(raw, "contacts", "keywords", "budget", "deadline", "summary"); err != nil {
		c.logger.Warn("lm client: malformed extract response", "error", err, "raw", raw)
		return domain.ExtractedEntities{Summary: "lm response could not be parsed"}, nil
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		c.logger.Warn("lm client: malformed extract response", "error", err, "raw", raw)
		return domain.ExtractedEntities{Summary: "lm response could not be parsed"}, nil
	}

	entities := domain.ExtractedEntities{
		Contacts: parsed.Contacts,
		Keywords: parsed.Keywords,
		Budget:   parsed.Budget,
		Deadline: parsed.Deadline,
		Summary:  parsed.Summary,
		Extra:    parsed.Extra,
	}
	c.cache.set("extract", text, "", entities)
	return entities, nil
}

func (c *OpenAIClient) complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	ctx, span := tracer.Start(ctx, "lm.complete")
	defer span.End()

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	out, err := RetryDo(ctx, c.retry, func() (string, error) {
		return c.callOnce(ctx, reqBody)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

// validateRequiredKeys checks that a syntactically valid JSON object
// actually carries every required key, mirroring the grounding original's
// `if not all(k in result for k in [...])` completeness check — a
// response like {} unmarshals cleanly into zero values but is not a real
// answer.
func validateRequiredKeys(raw string, keys ...string) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return fmt.Errorf("lm client: response is not a JSON object: %w", err)
	}
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return fmt.Errorf("lm client: response missing required key %q", k)
		}
	}
	return nil
}

func (c *OpenAIClient) callOnce(ctx context.Context, reqBody chatRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("lm client: rate limit wait: %w", err)
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("lm client: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("lm client: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err // net.Error, picked up by IsRetryableError
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("lm client: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", &HTTPError{
			Status:     resp.StatusCode,
			Body:       string(respBody),
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("lm client: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("lm client: empty choices in response")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
