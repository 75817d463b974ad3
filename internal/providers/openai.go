package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/baliwise/ragcore/internal/llmgw"
	"github.com/baliwise/ragcore/pkg/models"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for constructing an OpenAIProvider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	RetryDelay time.Duration
}

// OpenAIProvider implements llmgw.Provider against the OpenAI chat
// completions API, using the non-streaming CreateChatCompletion endpoint
// since no token-by-token delivery is needed here.
type OpenAIProvider struct {
	client     *openai.Client
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIProvider constructs a provider from config.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Name implements llmgw.Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

// Complete implements llmgw.Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, req llmgw.Request) (*llmgw.Response, error) {
	chatReq, err := p.buildRequest(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	backoff := p.retryDelay
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		resp, err := p.client.CreateChatCompletion(ctx, chatReq)
		if err == nil {
			return convertResponse(resp), nil
		}
		lastErr = err
		if !isRetryableOpenAIError(err) {
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
	return nil, fmt.Errorf("openai: max retries exceeded: %w", lastErr)
}

func (p *OpenAIProvider) buildRequest(req llmgw.Request) (openai.ChatCompletionRequest, error) {
	messages, err := convertMessages(req.Messages, req.System)
	if err != nil {
		return openai.ChatCompletionRequest{}, fmt.Errorf("openai: failed to convert messages: %w", err)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.EnableTools && len(req.Tools) > 0 {
		chatReq.Tools = convertTools(req.Tools)
	}
	return chatReq, nil
}

func convertMessages(messages []models.Message, system string) ([]openai.ChatCompletionMessage, error) {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)

	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleTool:
			for _, tr := range msg.ToolResults {
				result = append(result, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    tr.Content,
					ToolCallID: tr.ToolCallID,
				})
			}
		case models.RoleAssistant:
			oaiMsg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			}
			if len(msg.ToolCalls) > 0 {
				oaiMsg.ToolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					oaiMsg.ToolCalls[i] = openai.ToolCall{
						ID:   tc.ID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      tc.Name,
							Arguments: string(tc.Input),
						},
					}
				}
			}
			result = append(result, oaiMsg)
		default:
			result = append(result, userMessage(msg))
		}
	}

	return result, nil
}

func userMessage(msg models.Message) openai.ChatCompletionMessage {
	images := false
	for _, att := range msg.Attachments {
		if att.Type == "image" {
			images = true
			break
		}
	}
	if !images {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: msg.Content}
	}

	var parts []openai.ChatMessagePart
	if msg.Content != "" {
		parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: msg.Content})
	}
	for _, att := range msg.Attachments {
		if att.Type != "image" {
			continue
		}
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: att.URL, Detail: openai.ImageURLDetailAuto},
		})
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}

func convertTools(tools []llmgw.ToolDef) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		var schemaMap map[string]any
		if err := json.Unmarshal(t.Schema, &schemaMap); err != nil {
			schemaMap = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schemaMap,
			},
		}
	}
	return result
}

func convertResponse(resp openai.ChatCompletionResponse) *llmgw.Response {
	out := &llmgw.Response{
		Usage: models.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Raw: resp,
	}
	if len(resp.Choices) == 0 {
		return out
	}
	choice := resp.Choices[0]
	out.Text = choice.Message.Content
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, models.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out
}

func isRetryableOpenAIError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, sub := range []string{"rate limit", "429", "500", "502", "503", "504", "timeout", "deadline exceeded"} {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
