// Package llm implements Component C2: an OpenAI-compatible chat completions
// client used to classify messages against tenant rules and extract
// structured entities from qualified leads (spec.md §4.2), grounded on
// _examples/original_source/backend/app/services/llm_service.py.
package llm

import (
	"context"

	"github.com/leadwatch/leadwatch/internal/domain"
)

// Client is the classification/extraction surface the rule processor (C5)
// and lead materialization depend on.
type Client interface {
	// Classify asks whether text matches a rule's natural-language prompt,
	// degrading to a negative, zero-confidence result (never an error) on a
	// malformed LM response, per spec.md §4.2.
	Classify(ctx context.Context, text, prompt string) (ClassifyResult, error)
	// Extract pulls structured entities out of a qualified lead's message.
	Extract(ctx context.Context, text string) (domain.ExtractedEntities, error)
}
