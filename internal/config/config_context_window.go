package config

// ContextWindowConfig controls how much conversation history reaches the
// model: the tail kept verbatim and the length past which older turns are
// summarized into one synthetic system message.
type ContextWindowConfig struct {
	// KeepMessages is the number of most recent messages passed through.
	KeepMessages int `yaml:"keep_messages"`

	// SummarizeThreshold is the history length above which the dropped
	// head is summarized instead of silently discarded.
	SummarizeThreshold int `yaml:"summarize_threshold"`

	// SummarizerTier is the gateway tier the summarization call uses.
	SummarizerTier string `yaml:"summarizer_tier"`
}

func applyContextWindowDefaults(cfg *ContextWindowConfig) {
	if cfg.KeepMessages == 0 {
		cfg.KeepMessages = 20
	}
	if cfg.SummarizeThreshold == 0 {
		cfg.SummarizeThreshold = 30
	}
	if cfg.SummarizerTier == "" {
		cfg.SummarizerTier = "flash"
	}
}
