package core

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baliwise/ragcore/internal/config"
	"github.com/baliwise/ragcore/internal/llmgw"
	"github.com/baliwise/ragcore/internal/prompt"
	"github.com/baliwise/ragcore/internal/stream"
	"github.com/baliwise/ragcore/internal/tool"
	"github.com/baliwise/ragcore/pkg/models"
)

// ErrEmptyQuery is returned for a query with no text and no images.
var ErrEmptyQuery = errors.New("core: empty query")

// UserMemory is the slice of the memory orchestrator the core needs.
// *memory.Orchestrator satisfies it.
type UserMemory interface {
	GetUserContext(ctx context.Context, userID, query, sessionID string) (*models.UserContext, error)
	ProcessConversation(ctx context.Context, userID, userMessage, aiResponse string) (*models.ProcessResult, error)
}

// PromptBuilder is the slice of prompt.Builder the core needs.
type PromptBuilder interface {
	Build(ctx context.Context, req prompt.BuildRequest) (string, error)
}

// Orchestrator composes the full pipeline behind the two public entry
// points, ProcessQuery and StreamQuery. All collaborators are injected as
// interfaces at construction; nil collaborators degrade their stage
// rather than failing the query.
type Orchestrator struct {
	llm      LLM
	registry *tool.Registry
	memory   UserMemory
	builder  PromptBuilder
	gates    *Gates
	cache    *SemanticCache
	window   *ContextWindowManager
	engine   *ReActEngine
	pipeline *ResponsePipeline

	cfg    config.ReActConfig
	logger *slog.Logger

	// background tracks fire-and-forget memory writes so Close can wait
	// for them during shutdown.
	background chan struct{}
}

// Options bundles the orchestrator's collaborators.
type Options struct {
	LLM      LLM
	Registry *tool.Registry
	Memory   UserMemory
	Builder  PromptBuilder
	Gates    *Gates
	Cache    *SemanticCache
	Window   *ContextWindowManager
	ReAct    config.ReActConfig
	Logger   *slog.Logger
}

// New wires an Orchestrator from opts.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gates := opts.Gates
	if gates == nil {
		gates = NewGates(nil, nil)
	}
	window := opts.Window
	if window == nil {
		window = NewContextWindowManager(0, 0, nil, logger)
	}
	o := &Orchestrator{
		llm:        opts.LLM,
		registry:   opts.Registry,
		memory:     opts.Memory,
		builder:    opts.Builder,
		gates:      gates,
		cache:      opts.Cache,
		window:     window,
		cfg:        opts.ReAct,
		logger:     logger,
		background: make(chan struct{}, 64),
	}
	o.engine = NewReActEngine(opts.LLM, opts.Registry, opts.ReAct, logger)
	o.pipeline = NewResponsePipeline(opts.LLM, logger)
	return o
}

// ProcessQuery runs the blocking pipeline for one query.
func (o *Orchestrator) ProcessQuery(ctx context.Context, query models.Query) (*models.CoreResult, error) {
	if strings.TrimSpace(query.Text) == "" && len(query.Images) == 0 {
		return nil, ErrEmptyQuery
	}

	state := NewAgentState(query, o.cfg.MaxSteps)
	result := o.run(ctx, query, state, nil, uuid.NewString())
	return result, result.Err
}

// StreamQuery runs the same pipeline but emits validated events at every
// stage boundary. The returned channel is closed after the terminating
// done (or error) event.
func (o *Orchestrator) StreamQuery(ctx context.Context, query models.Query) (<-chan stream.Event, error) {
	if strings.TrimSpace(query.Text) == "" && len(query.Images) == 0 {
		return nil, ErrEmptyQuery
	}

	correlationID := uuid.NewString()
	emitter := stream.NewEmitter(correlationID, 1, stream.DefaultMaxEventErrors)

	go func() {
		started := time.Now()
		state := NewAgentState(query, o.cfg.MaxSteps)
		result := o.run(ctx, query, state, emitter, correlationID)

		if result.Err != nil {
			_ = emitter.Send(ctx, stream.New(stream.EventError, correlationID, stream.ErrorData{Message: result.Err.Error()}))
		} else {
			paced := result.CacheHit || strings.HasSuffix(result.ModelUsed, "-gate") ||
				strings.HasSuffix(result.ModelUsed, "-pattern") || strings.HasPrefix(result.ModelUsed, "out-of-domain-")
			streamTokens(ctx, emitter, correlationID, result.Answer, paced)
			if len(result.Sources) > 0 {
				srcs := make([]any, len(result.Sources))
				for i, s := range result.Sources {
					srcs[i] = s
				}
				_ = emitter.Send(ctx, stream.New(stream.EventSources, correlationID, stream.SourcesData{Sources: srcs}))
			}
		}
		emitter.Close(ctx, float64(time.Since(started).Microseconds())/1000.0)
	}()

	return emitter.Events(), nil
}

// gateTokenDelay paces canned gate responses so they stream with the same
// feel as real generation.
const gateTokenDelay = 15 * time.Millisecond

func streamTokens(ctx context.Context, emitter *stream.Emitter, correlationID, answer string, paced bool) {
	words := strings.SplitAfter(answer, " ")
	for _, w := range words {
		if w == "" {
			continue
		}
		if err := emitter.Send(ctx, stream.New(stream.EventToken, correlationID, stream.TokenData{Text: w})); err != nil {
			return
		}
		if paced {
			select {
			case <-time.After(gateTokenDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}

// run is the shared 13-step flow behind both entry points. emitter is nil
// on the blocking path.
func (o *Orchestrator) run(ctx context.Context, query models.Query, state *AgentState, emitter *stream.Emitter, correlationID string) *models.CoreResult {
	logger := o.logger.With("correlation_id", correlationID)
	status := func(stage string) {
		if emitter != nil {
			_ = emitter.Send(ctx, stream.New(stream.EventStatus, correlationID, stream.StatusData{Stage: stage}))
		}
	}

	// 2. User context, tolerant of failure.
	status("loading_context")
	var userCtx *models.UserContext
	if o.memory != nil {
		loaded, err := o.memory.GetUserContext(ctx, query.UserID, query.Text, query.Session)
		if err != nil {
			logger.Warn("core: user context load failed", "error", err)
		} else {
			userCtx = loaded
		}
	}

	// 3. Trim/summarize history.
	trimmed := o.window.Trim(ctx, query.History)

	// 4. Gates.
	status("gates")
	if outcome := o.gates.Run(ctx, query.Text, userCtx); outcome != nil {
		logger.Info("core: gate triggered", "gate", outcome.Gate)
		return o.finish(state, &models.CoreResult{
			Answer:                outcome.Answer,
			Sources:               []models.Source{},
			ModelUsed:             outcome.Gate,
			VerificationStatus:    outcome.VerificationStatus,
			IsAmbiguous:           outcome.IsAmbiguous,
			ClarificationQuestion: outcome.Clarification,
		})
	}

	// 5. Entities.
	entities := ExtractEntities(query.Text)
	if emitter != nil {
		meta := stream.MetadataData{Routing: "react", Entities: map[string]any{}}
		if len(entities.VisaCodes) > 0 {
			meta.Entities["visa_codes"] = entities.VisaCodes
		}
		if len(entities.Nationalities) > 0 {
			meta.Entities["nationalities"] = entities.Nationalities
		}
		if entities.BudgetUSD != nil {
			meta.Entities["budget_usd"] = *entities.BudgetUSD
		}
		_ = emitter.Send(ctx, stream.New(stream.EventMetadata, correlationID, meta))
	}

	// 6. Semantic cache.
	if o.cache != nil {
		if answer, sources, ok := o.cache.Get(query.Text); ok {
			logger.Info("core: semantic cache hit")
			return o.finish(state, &models.CoreResult{
				Answer:             answer,
				Sources:            sources,
				ModelUsed:          "cache",
				VerificationStatus: VerificationPassed,
				CacheHit:           true,
				Entities:           entities,
			})
		}
	}

	// 7. System prompt.
	status("building_prompt")
	systemPrompt := ""
	if o.builder != nil {
		var uc models.UserContext
		if userCtx != nil {
			uc = *userCtx
		}
		built, err := o.builder.Build(ctx, prompt.BuildRequest{UserID: query.UserID, Query: query.Text, Context: uc})
		if err != nil {
			logger.Warn("core: prompt build failed", "error", err)
		} else {
			systemPrompt = built
		}
	}

	// 8–9. ReAct loop over the trimmed history.
	status("reasoning")
	var observer *StepObserver
	if emitter != nil {
		observer = &StepObserver{
			OnToolCall: func(_ int, name string) {
				stage := "searching"
				if name != "vector_search" {
					stage = "tool:" + name
				}
				_ = emitter.Send(ctx, stream.New(stream.EventStatus, correlationID, stream.StatusData{Stage: stage}))
			},
		}
	}
	executor := o.engine.Run(ctx, state, systemPrompt, trimmed.Trimmed, query.Images, observer)

	if state.FinalAnswer == "" && len(state.ContextGathered) == 0 && state.ModelUsed == "" {
		// The loop never completed a single LLM call.
		return o.finish(state, &models.CoreResult{
			Answer:             fallbackAnswer(DetectLanguage(query.Text)),
			Sources:            []models.Source{},
			ModelUsed:          "none",
			VerificationStatus: VerificationUnchecked,
			Entities:           entities,
			Warnings:           []string{"all language models failed; no answer generated"},
			Err:                llmgw.ErrAllModelsFailed,
		})
	}

	// 10. Response pipeline.
	status("verifying")
	pipelineOut := o.pipeline.Run(ctx, &PipelineInput{
		Response:  state.FinalAnswer,
		Query:     query.Text,
		Context:   state.ContextGathered,
		Sources:   state.Sources,
		IntentTag: state.IntentType,
		Tier:      o.cfg.Tier,
		Tracker:   &state.Tracker,
	})
	state.VerificationScore = pipelineOut.VerificationScore

	// 11. Result assembly.
	result := &models.CoreResult{
		Answer:             pipelineOut.Response,
		Sources:            state.Sources,
		ModelUsed:          state.ModelUsed,
		VerificationStatus: pipelineOut.VerificationStatus,
		VerificationScore:  pipelineOut.VerificationScore,
		EvidenceScore:      evidenceScore(state),
		Entities:           entities,
		ContextUsed:        state.ContextText(),
	}
	result.TokenUsage = state.Usage
	if executor != nil && executor.CallsMade() > 0 {
		logger.Info("core: query complete", "steps", state.CurrentStep, "tool_calls", executor.CallsMade(), "cost_usd", state.Usage.CostUSD)
	}

	// Cache the final answer for repeat queries.
	if o.cache != nil && result.Answer != "" && pipelineOut.VerificationStatus != VerificationUnchecked {
		o.cache.Put(query.Text, result.Answer, result.Sources)
	}

	// 12. Background fact persistence; never blocks the caller.
	o.persistAsync(query, result.Answer)

	return o.finish(state, result)
}

// finish stamps timings and derived fields shared by every return path.
func (o *Orchestrator) finish(state *AgentState, result *models.CoreResult) *models.CoreResult {
	state.Timings["total"] = time.Since(state.StartedAt)
	result.Timings = state.Timings
	if result.Sources == nil {
		result.Sources = []models.Source{}
	}
	result.DocumentCount = len(result.Sources)
	return result
}

// persistAsync writes conversation facts in the background with its own
// deadline, detached from the caller's context.
func (o *Orchestrator) persistAsync(query models.Query, answer string) {
	if o.memory == nil {
		return
	}
	select {
	case o.background <- struct{}{}:
	default:
		o.logger.Warn("core: background memory queue full, skipping fact persistence")
		return
	}
	go func() {
		defer func() { <-o.background }()
		bgCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := o.memory.ProcessConversation(bgCtx, query.UserID, query.Text, answer); err != nil {
			o.logger.Warn("core: background fact persistence failed", "error", err)
		}
	}()
}

// Close waits briefly for in-flight background memory writes.
func (o *Orchestrator) Close() {
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			return
		default:
			if len(o.background) == 0 {
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// evidenceScore reflects how much retrieved evidence backs the answer.
func evidenceScore(state *AgentState) float64 {
	if len(state.Sources) == 0 {
		return 0
	}
	score := float64(len(state.Sources)) / 5.0
	if score > 1 {
		score = 1
	}
	return score
}
