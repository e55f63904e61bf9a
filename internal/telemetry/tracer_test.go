package telemetry

import (
	"context"
	"testing"
)

func TestSetup_EmptyEndpointInstallsNoopProvider(t *testing.T) {
	tp, shutdown, err := Setup(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected a non-nil tracer provider")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
}

func TestTracer_ReturnsNonNilTracer(t *testing.T) {
	if _, _, err := Setup(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := Tracer("test")
	if tr == nil {
		t.Fatal("expected a non-nil tracer")
	}
}
