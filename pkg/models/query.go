package models

import "time"

// Image is a multimodal attachment supplied alongside a Query.
// Distinct from Attachment (message.go), which describes attachments on
// stored conversation messages rather than raw inbound query payloads.
type Image struct {
	// Base64 is the image payload, with or without a
	// "data:<mime>;base64," prefix.
	Base64 string `json:"base64"`

	MimeType string `json:"mime_type"`
	Name     string `json:"name,omitempty"`
}

// Query is the immutable input to a single orchestrator run.
type Query struct {
	Text    string `json:"text"`
	UserID  string `json:"user_id,omitempty"`
	Session string `json:"session_id,omitempty"`

	// History is prior conversation supplied by the caller, oldest first.
	History []Message `json:"history,omitempty"`

	// Images are optional multimodal attachments.
	Images []Image `json:"images,omitempty"`
}

// TokenUsage accumulates monotonically over the lifetime of a single query.
type TokenUsage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// Add accumulates u2 into u in place.
func (u *TokenUsage) Add(u2 TokenUsage) {
	u.PromptTokens += u2.PromptTokens
	u.CompletionTokens += u2.CompletionTokens
	u.TotalTokens += u2.TotalTokens
	u.CostUSD += u2.CostUSD
}

// Source is a retrieval citation attached to a generated answer.
type Source struct {
	Collection string  `json:"collection"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	Score      float64 `json:"score"`
	Content    string  `json:"content,omitempty"`
}

// Step is one Thought/Action/Observation entry in a ReAct trace.
// Immutable once appended to AgentState.
type Step struct {
	StepNumber  int       `json:"step_number"`
	Thought     string    `json:"thought,omitempty"`
	Action      *ToolCall `json:"action,omitempty"`
	Observation string    `json:"observation,omitempty"`
	IsFinal     bool      `json:"is_final"`
	At          time.Time `json:"at"`
}

// Entities holds heuristically-extracted named entities from a query.
type Entities struct {
	VisaCodes     []string `json:"visa_codes,omitempty"`
	Nationalities []string `json:"nationalities,omitempty"`
	BudgetUSD     *float64 `json:"budget_usd,omitempty"`
}

// CoreResult is the single return type of a blocking orchestrator run.
type CoreResult struct {
	Answer                string   `json:"answer"`
	Sources               []Source `json:"sources"`
	ModelUsed             string   `json:"model_used"`
	VerificationStatus    string   `json:"verification_status"`
	VerificationScore     float64  `json:"verification_score"`
	EvidenceScore         float64  `json:"evidence_score"`
	IsAmbiguous           bool     `json:"is_ambiguous"`
	ClarificationQuestion string   `json:"clarification_question,omitempty"`
	Entities              Entities `json:"entities"`
	CacheHit              bool     `json:"cache_hit"`
	DocumentCount         int      `json:"document_count"`
	ContextUsed           string   `json:"context_used,omitempty"`
	TokenUsage

	Timings  map[string]time.Duration `json:"timings"`
	Warnings []string                 `json:"warnings,omitempty"`
	Err      error                    `json:"-"`
}
