package llm

// chatRequest is the OpenAI-compatible chat completions request body
// (spec.md §4.2, Component C2 — the LM service is reached at
// POST {base_url}/v1/chat/completions).
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ClassifyResult is C2.classify's output (spec.md §4.2).
type ClassifyResult struct {
	IsMatch    bool    `json:"is_match"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// extractResult mirrors domain.ExtractedEntities for JSON decoding, kept
// separate so a malformed LM response can't partially clobber a caller's
// struct before validation completes.
type extractResult struct {
	Contacts []string          `json:"contacts"`
	Keywords []string          `json:"keywords"`
	Budget   *string           `json:"budget"`
	Deadline *string           `json:"deadline"`
	Summary  string            `json:"summary"`
	Extra    map[string]string `json:"extra,omitempty"`
}
