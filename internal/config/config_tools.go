package config

// ToolsConfig configures the tool registry and executor shared by the
// ReAct engine.
type ToolsConfig struct {
	// MaxCallsPerQuery is defaulted but not read by the executor; the
	// per-query tool-call cap in force is ReActConfig.MaxToolCalls.
	MaxCallsPerQuery int `yaml:"max_calls_per_query"`

	PricingDataPath string `yaml:"pricing_data_path"`

	WebSearch WebSearchToolConfig `yaml:"web_search"`

	KnowledgeGraph KnowledgeGraphToolConfig `yaml:"knowledge_graph"`
}

// WebSearchToolConfig configures the disclaimer-bearing web search tool.
type WebSearchToolConfig struct {
	Enabled        bool   `yaml:"enabled"`
	APIKey         string `yaml:"api_key"`
	MaxResults     int    `yaml:"max_results"`
	Disclaimer     string `yaml:"disclaimer"`
}

// KnowledgeGraphToolConfig configures the graph-relationship lookup tool.
type KnowledgeGraphToolConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

func applyToolsDefaults(cfg *ToolsConfig) {
	if cfg.MaxCallsPerQuery == 0 {
		cfg.MaxCallsPerQuery = 8
	}
	if cfg.WebSearch.MaxResults == 0 {
		cfg.WebSearch.MaxResults = 5
	}
	if cfg.WebSearch.Disclaimer == "" {
		cfg.WebSearch.Disclaimer = "Results are from the public web and have not been verified against curated sources."
	}
}
