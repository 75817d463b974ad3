package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the root configuration structure for the RAG engine.
type Config struct {
	Version int `yaml:"version"`

	Server        ServerConfig             `yaml:"server"`
	Database      DatabaseConfig           `yaml:"database"`
	Logging       LoggingConfig            `yaml:"logging"`
	Observability ObservabilityConfig      `yaml:"observability"`
	Artifacts     ArtifactConfig           `yaml:"artifacts"`
	Gateway       LLMGatewayConfig         `yaml:"gateway"`
	Retrieval     RetrievalConfig          `yaml:"retrieval"`
	Memory        MemoryOrchestratorConfig `yaml:"memory"`
	Collective    CollectiveMemoryConfig   `yaml:"collective_memory"`
	Prompt        PromptConfig             `yaml:"prompt"`
	ReAct         ReActConfig              `yaml:"react"`
	Tools         ToolsConfig              `yaml:"tools"`
	Cache         SemanticCacheConfig      `yaml:"semantic_cache"`
	ContextWindow ContextWindowConfig      `yaml:"context_window"`
}

// SemanticCacheConfig configures the exact-match response cache consulted
// before the ReAct loop runs.
type SemanticCacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	MaxSize int           `yaml:"max_size"`
}

func applySemanticCacheDefaults(cfg *SemanticCacheConfig) {
	if cfg.TTL == 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 1000
	}
}

// Load reads a YAML (or JSON5 via $include) configuration file, applying
// .env values, environment variable overrides, and defaults, then
// validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional .env in the working directory

	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}

	if err := ValidateVersion(cfg.Version); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyObservabilityDefaults(&cfg.Observability)
	applyGatewayDefaults(&cfg.Gateway)
	applyRetrievalDefaults(&cfg.Retrieval)
	applyMemoryOrchestratorDefaults(&cfg.Memory)
	applyCollectiveMemoryDefaults(&cfg.Collective)
	applyPromptDefaults(&cfg.Prompt)
	applyReActDefaults(&cfg.ReAct)
	applyToolsDefaults(&cfg.Tools)
	applySemanticCacheDefaults(&cfg.Cache)
	applyContextWindowDefaults(&cfg.ContextWindow)
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = 8080
	}
	if cfg.MetricsPort == 0 {
		cfg.MetricsPort = 9090
	}
}

func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 10
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 30 * time.Minute
	}
}

func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.Database.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("RAGCORE_HTTP_PORT")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Server.HTTPPort = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		setProviderKey(cfg, "anthropic", v)
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		setProviderKey(cfg, "openai", v)
	}
}

func setProviderKey(cfg *Config, provider, key string) {
	if cfg.Gateway.Providers == nil {
		cfg.Gateway.Providers = map[string]LLMProviderConfig{}
	}
	p := cfg.Gateway.Providers[provider]
	p.APIKey = key
	cfg.Gateway.Providers[provider] = p
}

// ConfigValidationError aggregates config validation failures.
type ConfigValidationError struct {
	Issues []string
}

func (e *ConfigValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	var issues []string

	if cfg.Retrieval.MaxConcurrentReads <= 0 {
		issues = append(issues, "retrieval.max_concurrent_reads must be positive")
	}
	if cfg.Memory.MaxConcurrentReads <= 0 {
		issues = append(issues, "memory.max_concurrent_reads must be positive")
	}
	if cfg.Collective.PromotionThreshold < 1 {
		issues = append(issues, "collective_memory.promotion_threshold must be >= 1")
	}
	if cfg.ReAct.MaxSteps < 1 {
		issues = append(issues, "react.max_steps must be >= 1")
	}
	for name, tier := range cfg.Gateway.Tiers {
		if tier.Model == "" {
			issues = append(issues, fmt.Sprintf("gateway.tiers.%s: model is required", name))
		}
	}

	if len(issues) > 0 {
		return &ConfigValidationError{Issues: issues}
	}
	return nil
}
