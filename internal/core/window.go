package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/baliwise/ragcore/pkg/models"
)

// Summarizer produces a short summary of older conversation turns. The
// orchestrator supplies an LLM-backed implementation; a nil Summarizer
// degrades the window manager to plain trimming.
type Summarizer interface {
	Summarize(ctx context.Context, messages []models.Message) (string, error)
}

// ContextWindowManager bounds how much conversation history reaches the
// model: histories longer than SummarizeThreshold have their older turns
// collapsed into one synthetic system message, and the tail is always
// trimmed to KeepMessages.
type ContextWindowManager struct {
	KeepMessages       int
	SummarizeThreshold int

	summarizer Summarizer
	logger     *slog.Logger
}

// NewContextWindowManager creates a manager. keep defaults to 20 and
// threshold to 30 when non-positive.
func NewContextWindowManager(keep, threshold int, summarizer Summarizer, logger *slog.Logger) *ContextWindowManager {
	if keep <= 0 {
		keep = 20
	}
	if threshold <= 0 {
		threshold = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextWindowManager{KeepMessages: keep, SummarizeThreshold: threshold, summarizer: summarizer, logger: logger}
}

// TrimResult reports what the window manager did to a history.
type TrimResult struct {
	NeedsSummarization bool
	Summarized         bool
	Trimmed            []models.Message
}

// Trim returns the history the model should see. When the history exceeds
// SummarizeThreshold the older messages are summarized into a synthetic
// system message prepended to the kept tail; summarizer failure degrades
// to the raw trimmed tail without error.
func (m *ContextWindowManager) Trim(ctx context.Context, history []models.Message) *TrimResult {
	if len(history) <= m.KeepMessages {
		return &TrimResult{Trimmed: history}
	}

	tail := history[len(history)-m.KeepMessages:]
	result := &TrimResult{Trimmed: tail}

	if len(history) <= m.SummarizeThreshold || m.summarizer == nil {
		return result
	}

	result.NeedsSummarization = true
	head := history[:len(history)-m.KeepMessages]
	summary, err := m.summarizer.Summarize(ctx, head)
	if err != nil || strings.TrimSpace(summary) == "" {
		m.logger.Warn("context window: summarization failed, using raw trim", "error", err, "dropped_messages", len(head))
		return result
	}

	result.Summarized = true
	synthetic := models.Message{
		Role:    models.RoleSystem,
		Content: fmt.Sprintf("Summary of the %d earlier messages in this conversation: %s", len(head), strings.TrimSpace(summary)),
	}
	result.Trimmed = append([]models.Message{synthetic}, tail...)
	return result
}
