package multimodal

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/baliwise/ragcore/internal/llmgw"
	"github.com/baliwise/ragcore/pkg/models"
)

type fakeVisionLLM struct {
	lastImages []models.Image
	text       string
}

func (f *fakeVisionLLM) Send(ctx context.Context, messages []models.Message, systemPrompt string, tier string, enableTools bool, tools []llmgw.ToolDef, images []models.Image, tracker *llmgw.CostTracker) (*llmgw.Response, string, error) {
	f.lastImages = images
	return &llmgw.Response{Text: f.text}, "vision-model", nil
}

func TestVisionToolSendsImage(t *testing.T) {
	llm := &fakeVisionLLM{text: "A passport bio page for ROSSI, MARCO."}
	tl := NewVisionTool(llm, "pro")

	args, _ := json.Marshal(map[string]string{
		"image_base64": "aGVsbG8=",
		"mime_type":    "image/jpeg",
		"question":     "Whose passport is this?",
	})
	result, err := tl.Execute(context.Background(), args)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Content)
	}
	if !strings.Contains(result.Content, "ROSSI") {
		t.Errorf("content = %q", result.Content)
	}
	if len(llm.lastImages) != 1 || llm.lastImages[0].MimeType != "image/jpeg" {
		t.Errorf("images = %+v", llm.lastImages)
	}
}

func TestVisionToolRequiresImage(t *testing.T) {
	tl := NewVisionTool(&fakeVisionLLM{}, "")
	result, _ := tl.Execute(context.Background(), json.RawMessage(`{}`))
	if !result.IsError {
		t.Error("missing image must be an error result")
	}
}
