package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"
	openai "github.com/sashabaranov/go-openai"

	"github.com/baliwise/ragcore/internal/collective"
	"github.com/baliwise/ragcore/internal/config"
	"github.com/baliwise/ragcore/internal/core"
	"github.com/baliwise/ragcore/internal/embeddings"
	"github.com/baliwise/ragcore/internal/llmgw"
	"github.com/baliwise/ragcore/internal/memory"
	"github.com/baliwise/ragcore/internal/observability"
	"github.com/baliwise/ragcore/internal/prompt"
	"github.com/baliwise/ragcore/internal/providers"
	"github.com/baliwise/ragcore/internal/retrieval"
	"github.com/baliwise/ragcore/internal/rag/store/pgvector"
	"github.com/baliwise/ragcore/internal/store/postgres"
	"github.com/baliwise/ragcore/internal/tool"
	"github.com/baliwise/ragcore/internal/tools/calculator"
	"github.com/baliwise/ragcore/internal/tools/facts"
	"github.com/baliwise/ragcore/internal/tools/knowledgegraph"
	"github.com/baliwise/ragcore/internal/tools/multimodal"
	"github.com/baliwise/ragcore/internal/tools/pricing"
	"github.com/baliwise/ragcore/internal/tools/teamknowledge"
	"github.com/baliwise/ragcore/internal/tools/vectorsearch"
	"github.com/baliwise/ragcore/internal/tools/websearch"
)

// engine is everything a command needs after wiring.
type engine struct {
	cfg          *config.Config
	logger       *observability.Logger
	tracer       *observability.Tracer
	orchestrator *core.Orchestrator
	gateway      *llmgw.Gateway
	cleanup      []func() error
}

func (e *engine) close() {
	e.orchestrator.Close()
	for i := len(e.cleanup) - 1; i >= 0; i-- {
		if err := e.cleanup[i](); err != nil {
			slog.Warn("shutdown: cleanup failed", "error", err)
		}
	}
}

// buildEngine is the composition root: every subsystem is constructed
// here and injected by interface, so nothing below this file reaches for
// a concrete dependency across package boundaries.
func buildEngine(path string) (*engine, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
	slog.SetDefault(logger.Slog())

	e := &engine{cfg: cfg, logger: logger}

	tracer, shutdownTracing, err := observability.NewTracer(observability.TraceConfig{
		ServiceName:    cfg.Observability.Tracing.ServiceName,
		ServiceVersion: cfg.Observability.Tracing.ServiceVersion,
		Environment:    cfg.Observability.Tracing.Environment,
		Endpoint:       tracingEndpoint(cfg),
		SamplingRate:   cfg.Observability.Tracing.SamplingRate,
		Insecure:       cfg.Observability.Tracing.Insecure,
	})
	if err != nil {
		return nil, err
	}
	e.tracer = tracer
	e.cleanup = append(e.cleanup, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownTracing(ctx)
	})

	// LLM gateway over the configured providers.
	providerMap := map[string]llmgw.Provider{}
	if key := providerKey(cfg, "anthropic"); key != "" {
		p, err := providers.NewAnthropicProvider(providers.AnthropicConfig{APIKey: key, BaseURL: cfg.Gateway.Providers["anthropic"].BaseURL})
		if err != nil {
			return nil, fmt.Errorf("anthropic provider: %w", err)
		}
		providerMap["anthropic"] = p
	}
	if key := providerKey(cfg, "openai"); key != "" {
		p, err := providers.NewOpenAIProvider(providers.OpenAIConfig{APIKey: key, BaseURL: cfg.Gateway.Providers["openai"].BaseURL})
		if err != nil {
			return nil, fmt.Errorf("openai provider: %w", err)
		}
		providerMap["openai"] = p
	}
	gateway, err := llmgw.New(cfg.Gateway, providerMap)
	if err != nil {
		return nil, err
	}
	e.gateway = gateway

	// Retrieval: one lazily-opened pgvector store per configured
	// collection, embedded with the OpenAI embedder. The "memories"
	// collection is just another pgvector store the memory pipeline
	// writes into; it federates like any other collection.
	var retriever *retrieval.HybridRetriever
	if len(cfg.Retrieval.Collections) > 0 {
		embedder, err := embeddings.NewOpenAI(embeddings.OpenAIConfig{APIKey: providerKey(cfg, "openai")})
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
		manager := retrieval.NewCollectionManager(cfg.Retrieval, func(name string, cc config.CollectionConfig) (retrieval.Collection, error) {
			switch cc.Backend {
			case "pgvector", "":
				st, err := pgvector.New(pgvector.Config{DSN: cc.DSN, Dimension: cc.Dimension})
				if err != nil {
					return nil, err
				}
				return retrieval.NewDocumentStoreCollection(name, st, embedder), nil
			default:
				return nil, fmt.Errorf("unsupported collection backend %q", cc.Backend)
			}
		})
		e.cleanup = append(e.cleanup, manager.Close)
		retriever = retrieval.NewHybridRetriever(manager, cfg.Retrieval)
	}

	// Collective memory over Postgres, when a database is configured.
	var collectiveSvc *collective.Service
	if cfg.Database.URL != "" {
		st, err := postgres.New(postgres.Config{DSN: cfg.Database.URL, RunMigrations: true})
		if err != nil {
			logger.Slog().Warn("collective memory disabled", "error", err)
		} else {
			e.cleanup = append(e.cleanup, st.Close)
			collectiveSvc = collective.New(st, collective.Config{
				PromotionThreshold:        cfg.Collective.PromotionThreshold,
				RefutationConfidenceFloor: cfg.Collective.RefutationConfidenceFloor,
			})
		}
	}

	// Per-user memory orchestrator with the heuristic fact extractor.
	userStore := memory.NewInMemoryUserStore()
	memOrch := memory.NewOrchestrator(userStore, nil, collectiveSvc, memory.FactExtractor(facts.Extractor(10)), memory.OrchestratorConfig{
		MaxConcurrentReads: int64(cfg.Memory.MaxConcurrentReads),
		WriteLockTimeout:   cfg.Memory.WriteLockTimeout,
	})

	// Tool registry.
	registry := tool.NewRegistry()
	registry.Register(calculator.New())
	registry.Register(pricing.New(loadPricingCatalog(cfg.Tools.PricingDataPath, logger.Slog())))
	registry.Register(teamknowledge.New(nil))
	if retriever != nil {
		registry.Register(vectorsearch.New(retriever, vectorsearch.Config{}))
	}
	if cfg.Tools.WebSearch.Enabled {
		var backend websearch.Backend
		if cfg.Tools.WebSearch.APIKey != "" {
			backend = websearch.NewBraveBackend(cfg.Tools.WebSearch.APIKey, "")
		} else {
			backend = websearch.NewDuckDuckGoBackend("")
		}
		registry.Register(websearch.New(backend, websearch.Config{
			MaxResults: cfg.Tools.WebSearch.MaxResults,
			Disclaimer: cfg.Tools.WebSearch.Disclaimer,
		}))
	}
	registry.Register(multimodal.NewVisionTool(gateway, cfg.ReAct.Tier))
	if key := providerKey(cfg, "openai"); key != "" {
		client := openai.NewClient(key)
		registry.Register(multimodal.NewGenerateTool(client, ""))
	}
	if cfg.Tools.KnowledgeGraph.Enabled && cfg.Tools.KnowledgeGraph.DSN != "" {
		if db, err := sql.Open("postgres", cfg.Tools.KnowledgeGraph.DSN); err != nil {
			logger.Slog().Warn("knowledge graph disabled", "error", err)
		} else {
			e.cleanup = append(e.cleanup, db.Close)
			registry.Register(knowledgegraph.New(knowledgegraph.NewSQLStore(db), 0))
		}
	}

	e.orchestrator = core.New(core.Options{
		LLM:      gateway,
		Registry: registry,
		Memory:   memOrch,
		Builder:  prompt.New(cfg.Prompt),
		Gates:    core.NewGates(nil, nil),
		Cache:    core.NewSemanticCache(cfg.Cache),
		Window: core.NewContextWindowManager(cfg.ContextWindow.KeepMessages, cfg.ContextWindow.SummarizeThreshold,
			&core.LLMSummarizer{LLM: gateway, Tier: cfg.ContextWindow.SummarizerTier}, logger.Slog()),
		ReAct:  cfg.ReAct,
		Logger: logger.Slog(),
	})
	return e, nil
}

// loadPricingCatalog reads the JSON price catalog from disk. A missing
// or unreadable catalog disables the tool's matches, not the daemon.
func loadPricingCatalog(path string, logger *slog.Logger) []pricing.Item {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("pricing catalog unavailable", "path", path, "error", err)
		return nil
	}
	var items []pricing.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		logger.Warn("pricing catalog malformed", "path", path, "error", err)
		return nil
	}
	return items
}

// tracingEndpoint returns the OTLP endpoint only when tracing is
// enabled, so a disabled config yields the no-op tracer.
func tracingEndpoint(cfg *config.Config) string {
	if !cfg.Observability.Tracing.Enabled {
		return ""
	}
	return cfg.Observability.Tracing.Endpoint
}

func providerKey(cfg *config.Config, name string) string {
	if p, ok := cfg.Gateway.Providers[name]; ok {
		return p.APIKey
	}
	return ""
}
