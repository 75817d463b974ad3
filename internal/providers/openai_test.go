package providers

import (
	"encoding/json"
	"testing"

	"github.com/baliwise/ragcore/internal/llmgw"
	"github.com/baliwise/ragcore/pkg/models"
)

func TestConvertMessages(t *testing.T) {
	tests := []struct {
		name     string
		messages []models.Message
		system   string
		wantLen  int
	}{
		{
			name: "basic text messages",
			messages: []models.Message{
				{Role: models.RoleUser, Content: "Hello"},
				{Role: models.RoleAssistant, Content: "Hi there!"},
			},
			system:  "You are a helpful assistant",
			wantLen: 3,
		},
		{
			name: "message with tool calls",
			messages: []models.Message{
				{
					Role: models.RoleAssistant,
					ToolCalls: []models.ToolCall{
						{ID: "call_123", Name: "get_weather", Input: json.RawMessage(`{"location":"NYC"}`)},
					},
				},
			},
			wantLen: 1,
		},
		{
			name: "message with tool results",
			messages: []models.Message{
				{
					Role: models.RoleTool,
					ToolResults: []models.ToolResult{
						{ToolCallID: "call_123", Content: "Sunny, 72F"},
					},
				},
			},
			wantLen: 1,
		},
		{
			name: "message with image attachment",
			messages: []models.Message{
				{
					Role:    models.RoleUser,
					Content: "What's in this image?",
					Attachments: []models.Attachment{
						{ID: "img_1", Type: "image", URL: "https://example.com/image.jpg", MimeType: "image/jpeg"},
					},
				},
			},
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convertMessages(tt.messages, tt.system)
			if err != nil {
				t.Fatalf("convertMessages() error = %v", err)
			}
			if len(got) != tt.wantLen {
				t.Errorf("convertMessages() got %d messages, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestConvertTools(t *testing.T) {
	tools := []llmgw.ToolDef{
		{Name: "test_tool", Description: "A test tool", Schema: json.RawMessage(`{"type":"object","properties":{"arg":{"type":"string"}}}`)},
	}

	got := convertTools(tools)
	if len(got) != 1 {
		t.Fatalf("convertTools() got %d tools, want 1", len(got))
	}
	if got[0].Function.Name != "test_tool" {
		t.Errorf("unexpected tool name %q", got[0].Function.Name)
	}
}

func TestConvertToolsInvalidSchemaFallsBackToEmpty(t *testing.T) {
	tools := []llmgw.ToolDef{{Name: "broken", Description: "d", Schema: json.RawMessage(`not json`)}}
	got := convertTools(tools)
	if len(got) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(got))
	}
	params, ok := got[0].Function.Parameters.(map[string]any)
	if !ok {
		t.Fatalf("expected fallback schema map, got %T", got[0].Function.Parameters)
	}
	if params["type"] != "object" {
		t.Errorf("expected fallback object schema, got %v", params)
	}
}

func TestIsRetryableOpenAIError(t *testing.T) {
	cases := map[string]bool{
		"rate limit exceeded":    true,
		"429 too many requests":  true,
		"500 internal error":     true,
		"request timeout":        true,
		"invalid request: bad":   false,
	}
	for msg, want := range cases {
		if got := isRetryableOpenAIError(errAsError(msg)); got != want {
			t.Errorf("isRetryableOpenAIError(%q) = %v, want %v", msg, got, want)
		}
	}
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func errAsError(s string) error { return simpleErr(s) }
