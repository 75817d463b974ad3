package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/baliwise/ragcore/internal/config"
	"github.com/baliwise/ragcore/internal/llmgw"
	"github.com/baliwise/ragcore/internal/tool"
	"github.com/baliwise/ragcore/pkg/models"
)

// finalAnswerMarker is the inline marker the model uses to end the loop.
const finalAnswerMarker = "Final Answer:"

// ReActEngine drives the Thought → Action → Observation loop: each step
// sends the accumulated conversation to the gateway with tools enabled,
// parses out a tool call (native first, inline regex second), executes it,
// and feeds the observation back — until the model produces a final
// answer, the step budget runs out, or a large retrieval result triggers
// the early exit. One thought and at most one action per step.
type ReActEngine struct {
	llm      LLM
	registry *tool.Registry
	cfg      config.ReActConfig
	logger   *slog.Logger
}

// NewReActEngine creates an engine over llm and registry.
func NewReActEngine(llm LLM, registry *tool.Registry, cfg config.ReActConfig, logger *slog.Logger) *ReActEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReActEngine{llm: llm, registry: registry, cfg: cfg, logger: logger}
}

// StepObserver is notified as the loop progresses so the streaming API
// can emit status events at stage boundaries. Any callback may be nil.
type StepObserver struct {
	OnThought     func(step int, thought string)
	OnToolCall    func(step int, name string)
	OnObservation func(step int, observation string)
}

// reactPrompt is appended to the system prompt so the model knows the
// inline action format used when native function calling is unavailable.
const reactPrompt = `
When you need information, call a tool. If tool calling is unavailable, use exactly this format:
Thought: <why you need the tool>
Action: <tool name>
Action Input: <JSON arguments>

When you have enough verified information, reply with:
Final Answer: <your answer>`

// Run executes the loop, mutating state in place. It returns the executor
// so the orchestrator can report how many tool calls were spent.
func (e *ReActEngine) Run(ctx context.Context, state *AgentState, systemPrompt string, history []models.Message, images []models.Image, obs *StepObserver) *tool.Executor {
	executor := tool.NewExecutor(e.registry, tool.ExecutorConfig{MaxCalls: e.cfg.MaxToolCalls})
	defs := toolDefs(e.registry)

	messages := append([]models.Message{}, history...)
	messages = append(messages, models.Message{Role: models.RoleUser, Content: state.Query})

	reasoningStart := time.Now()
	defer func() {
		state.Timings["reasoning"] += time.Since(reasoningStart)
	}()

	for state.CurrentStep < state.MaxSteps {
		state.CurrentStep++

		llmStart := time.Now()
		resp, model, err := e.llm.Send(ctx, messages, systemPrompt+reactPrompt, e.cfg.Tier, true, defs, images, &state.Tracker)
		state.Timings["llm"] += time.Since(llmStart)
		if err != nil {
			e.logger.Error("react: gateway call failed", "step", state.CurrentStep, "error", err)
			state.AddStep(models.Step{Thought: "gateway unavailable", Observation: err.Error(), IsFinal: true})
			return executor
		}
		state.ModelUsed = model
		state.AddUsage(resp.Usage)
		// Images only accompany the first call; later steps reason on text.
		images = nil

		intent, thought, hasCall := tool.ParseCall(resp.Text, resp.ToolCalls)

		if !hasCall {
			if idx := strings.Index(resp.Text, finalAnswerMarker); idx >= 0 {
				answer := strings.TrimSpace(resp.Text[idx+len(finalAnswerMarker):])
				state.FinalAnswer = answer
				state.AddStep(models.Step{Thought: strings.TrimSpace(resp.Text[:idx]), IsFinal: true})
				break
			}
			// Neither a tool call nor a final answer: record the thought and
			// nudge the model toward a decision.
			state.AddStep(models.Step{Thought: strings.TrimSpace(resp.Text)})
			messages = append(messages,
				models.Message{Role: models.RoleAssistant, Content: resp.Text},
				models.Message{Role: models.RoleUser, Content: "Continue. Either call a tool or give your Final Answer."},
			)
			continue
		}

		if obs != nil && obs.OnThought != nil && thought != "" {
			obs.OnThought(state.CurrentStep, thought)
		}
		if obs != nil && obs.OnToolCall != nil {
			obs.OnToolCall(state.CurrentStep, intent.Name)
		}

		call := &models.ToolCall{ID: intent.ID, Name: intent.Name, Input: intent.Arguments}
		observation := e.executeCall(ctx, executor, state, call)
		if obs != nil && obs.OnObservation != nil {
			obs.OnObservation(state.CurrentStep, observation)
		}

		state.AddStep(models.Step{Thought: thought, Action: call, Observation: observation})
		state.ContextGathered = append(state.ContextGathered, observation)

		messages = append(messages,
			models.Message{Role: models.RoleAssistant, Content: resp.Text},
			models.Message{Role: models.RoleUser, Content: "Observation: " + observation},
		)

		// Early exit: a substantial retrieval result is usually enough to
		// answer from; spending more steps deciding costs more than the
		// synthesis call below.
		if intent.Name == "vector_search" && len(observation) > e.cfg.EarlyExitObservationChars && !strings.Contains(strings.ToLower(observation), "no relevant documents") {
			break
		}
	}

	if state.FinalAnswer == "" && len(state.ContextGathered) > 0 {
		e.synthesize(ctx, state, history)
	}

	if IsStubAnswer(state.FinalAnswer) {
		state.FinalAnswer = fallbackAnswer(DetectLanguage(state.Query))
	}
	return executor
}

// executeCall runs one tool call and turns its result into an observation
// string, handling the vector_search source-envelope specially.
func (e *ReActEngine) executeCall(ctx context.Context, executor *tool.Executor, state *AgentState, call *models.ToolCall) string {
	toolStart := time.Now()
	result, err := executor.Execute(ctx, call.Name, call.Input)
	elapsed := time.Since(toolStart)
	state.Timings["tools"] += elapsed
	call.ExecutionTimeSeconds = elapsed.Seconds()

	if err != nil {
		e.logger.Warn("react: tool failed", "tool", call.Name, "error", err)
		call.Result = err.Error()
		return "tool error: " + err.Error()
	}
	if result == nil {
		return "tool returned nothing"
	}
	call.Result = result.Content

	if call.Name == "vector_search" && !result.IsError {
		if content, sources, ok := parseSearchEnvelope(result.Content); ok {
			state.Sources = append(state.Sources, sources...)
			state.Timings["search"] += elapsed
			return content
		}
	}
	return result.Content
}

// searchEnvelope is the JSON payload the vector_search tool returns.
type searchEnvelope struct {
	Content string          `json:"content"`
	Sources []models.Source `json:"sources"`
}

func parseSearchEnvelope(raw string) (string, []models.Source, bool) {
	var env searchEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.Content == "" {
		return "", nil, false
	}
	return env.Content, env.Sources, true
}

// synthesize issues one tool-less call asking for an answer grounded in
// everything gathered, used when the loop ended without a final answer.
func (e *ReActEngine) synthesize(ctx context.Context, state *AgentState, history []models.Message) {
	messages := append([]models.Message{}, history...)
	messages = append(messages, models.Message{
		Role: models.RoleUser,
		Content: "Question: " + state.Query +
			"\n\nUsing ONLY the context below, answer the question. If the context is insufficient, say what is missing.\n\nContext:\n" + state.ContextText(),
	})

	llmStart := time.Now()
	resp, model, err := e.llm.Send(ctx, messages, "Answer strictly from the provided context.", e.cfg.Tier, false, nil, nil, &state.Tracker)
	state.Timings["llm"] += time.Since(llmStart)
	if err != nil {
		e.logger.Error("react: synthesis failed", "error", err)
		return
	}
	state.ModelUsed = model
	state.AddUsage(resp.Usage)
	state.FinalAnswer = strings.TrimSpace(resp.Text)
}

// fallbackAnswer replaces stub model output with an honest response in
// the user's language.
func fallbackAnswer(lang Language) string {
	switch lang {
	case LangIndonesian:
		return "Maaf, saya belum menemukan informasi yang cukup untuk menjawab dengan pasti. Bisa dijelaskan lebih detail apa yang Anda butuhkan?"
	case LangItalian:
		return "Mi dispiace, non ho trovato informazioni sufficienti per una risposta certa. Puoi darmi qualche dettaglio in più su ciò che ti serve?"
	default:
		return "I'm sorry, I couldn't find enough verified information to answer that with confidence. Could you share a bit more detail about what you need?"
	}
}

// toolDefs derives the native function-calling schema list from the
// registry's declared tool schemas.
func toolDefs(registry *tool.Registry) []llmgw.ToolDef {
	tools := registry.List()
	defs := make([]llmgw.ToolDef, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, llmgw.ToolDef{Name: t.Name(), Description: t.Description(), Schema: t.Schema()})
	}
	return defs
}
