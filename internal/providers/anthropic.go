// Package providers implements the concrete LLM backends the gateway
// dispatches to. Each provider satisfies llmgw.Provider with a blocking
// call that retries transient errors itself with exponential backoff;
// circuit breaking and tier fallback live in the gateway, not here.
//
// The Anthropic implementation drains the SDK's streaming event loop
// internally into one accumulated response, since the gateway's contract
// is request/response, not token-by-token delivery.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/baliwise/ragcore/internal/llmgw"
	"github.com/baliwise/ragcore/pkg/models"
)

// AnthropicConfig holds configuration for constructing an AnthropicProvider.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// AnthropicProvider implements llmgw.Provider against the Anthropic Messages API.
type AnthropicProvider struct {
	client       anthropic.Client
	maxRetries   int
	retryDelay   time.Duration
	defaultModel string
}

// NewAnthropicProvider constructs a provider from config, applying defaults
// for unset fields.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("anthropic: api key is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicProvider{
		client:       anthropic.NewClient(opts...),
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		defaultModel: cfg.DefaultModel,
	}, nil
}

// Name implements llmgw.Provider.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Complete implements llmgw.Provider, retrying transient failures with
// exponential backoff before giving up and letting the gateway's fallback
// cascade move to the next tier.
func (p *AnthropicProvider) Complete(ctx context.Context, req llmgw.Request) (*llmgw.Response, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	backoff := p.retryDelay
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		resp, err := p.complete(ctx, params)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryableAnthropicError(err) {
			return nil, err
		}
		if attempt >= p.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(math.Min(float64(backoff*2), float64(30*time.Second)))
	}
	return nil, fmt.Errorf("anthropic: max retries exceeded: %w", lastErr)
}

func (p *AnthropicProvider) complete(ctx context.Context, params anthropic.MessageNewParams) (*llmgw.Response, error) {
	stream := p.client.Messages.NewStreaming(ctx, params)

	var text strings.Builder
	var toolCalls []models.ToolCall
	var currentTool *models.ToolCall
	var currentInput strings.Builder
	var usage models.TokenUsage

	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "message_start":
			ms := event.AsMessageStart()
			usage.PromptTokens = int(ms.Message.Usage.InputTokens)
		case "content_block_start":
			block := event.AsContentBlockStart().ContentBlock
			if block.Type == "tool_use" {
				toolUse := block.AsToolUse()
				currentTool = &models.ToolCall{ID: toolUse.ID, Name: toolUse.Name}
				currentInput.Reset()
			}
		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				text.WriteString(delta.Text)
			case "input_json_delta":
				currentInput.WriteString(delta.PartialJSON)
			}
		case "content_block_stop":
			if currentTool != nil {
				currentTool.Input = json.RawMessage(currentInput.String())
				toolCalls = append(toolCalls, *currentTool)
				currentTool = nil
			}
		case "message_delta":
			md := event.AsMessageDelta()
			if md.Usage.OutputTokens > 0 {
				usage.CompletionTokens = int(md.Usage.OutputTokens)
			}
		case "error":
			return nil, fmt.Errorf("anthropic: stream error")
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return &llmgw.Response{Text: text.String(), ToolCalls: toolCalls, Usage: usage}, nil
}

func (p *AnthropicProvider) buildParams(req llmgw.Request) (anthropic.MessageNewParams, error) {
	messages, err := p.convertMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("anthropic: failed to convert messages: %w", err)
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
	}
	if req.EnableTools && len(req.Tools) > 0 {
		tools, err := p.convertTools(req.Tools)
		if err != nil {
			return anthropic.MessageNewParams{}, fmt.Errorf("anthropic: failed to convert tools: %w", err)
		}
		params.Tools = tools
	}
	return params, nil
}

func (p *AnthropicProvider) convertMessages(messages []models.Message) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam
	for _, msg := range messages {
		if msg.Role == models.RoleSystem {
			continue
		}

		var content []anthropic.ContentBlockParamUnion
		if msg.Content != "" {
			content = append(content, anthropic.NewTextBlock(msg.Content))
		}
		for _, tr := range msg.ToolResults {
			content = append(content, anthropic.NewToolResultBlock(tr.ToolCallID, tr.Content, tr.IsError))
		}
		for _, tc := range msg.ToolCalls {
			var input map[string]any
			if len(tc.Input) > 0 {
				if err := json.Unmarshal(tc.Input, &input); err != nil {
					return nil, fmt.Errorf("invalid tool call input: %w", err)
				}
			}
			content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
		}
		for _, att := range msg.Attachments {
			if block := imageBlockFromAttachment(att); block != nil {
				content = append(content, *block)
			}
		}

		if len(content) == 0 {
			continue
		}
		if msg.Role == models.RoleAssistant {
			result = append(result, anthropic.NewAssistantMessage(content...))
		} else {
			result = append(result, anthropic.NewUserMessage(content...))
		}
	}
	return result, nil
}

func (p *AnthropicProvider) convertTools(tools []llmgw.ToolDef) ([]anthropic.ToolUnionParam, error) {
	var result []anthropic.ToolUnionParam
	for _, t := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(t.Schema, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", t.Name, err)
		}
		toolParam := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if toolParam.OfTool != nil {
			toolParam.OfTool.Description = anthropic.String(t.Description)
		}
		result = append(result, toolParam)
	}
	return result, nil
}

// imageBlockFromAttachment builds a base64 image content block. Images
// arrive through models.Message.Attachments; the gateway folds a query's
// attached images into the final user message before calling Complete.
func imageBlockFromAttachment(att models.Attachment) *anthropic.ContentBlockParamUnion {
	if att.Type != "image" || att.URL == "" {
		return nil
	}
	mediaType, data, ok := decodeDataURL(att.URL)
	if !ok {
		return nil
	}
	block := anthropic.NewImageBlockBase64(mediaType, data)
	return &block
}

// decodeDataURL splits a "data:<mime>;base64,<payload>" string into its
// MIME type and base64 payload. Anything else, including a bare base64
// payload or a plain URL, yields ok=false.
func decodeDataURL(s string) (mime string, data string, ok bool) {
	if !strings.HasPrefix(s, "data:") {
		return "", "", false
	}
	rest := strings.TrimPrefix(s, "data:")
	parts := strings.SplitN(rest, ";base64,", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func isRetryableAnthropicError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, sub := range []string{"rate limit", "429", "timeout", "500", "502", "503", "504"} {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
