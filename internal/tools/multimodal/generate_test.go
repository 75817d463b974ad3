package multimodal

import (
	"context"
	"encoding/json"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type fakeImageClient struct {
	lastPrompt string
}

func (f *fakeImageClient) CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error) {
	f.lastPrompt = req.Prompt
	return openai.ImageResponse{Data: []openai.ImageResponseDataInner{{B64JSON: "aW1hZ2U="}}}, nil
}

func TestGenerateToolReturnsArtifact(t *testing.T) {
	client := &fakeImageClient{}
	tl := NewGenerateTool(client, "")

	result, err := tl.Execute(context.Background(), json.RawMessage(`{"prompt":"a minimalist office in Bali"}`))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Content)
	}
	if len(result.Artifacts) != 1 || result.Artifacts[0].MimeType != "image/png" {
		t.Errorf("artifacts = %+v", result.Artifacts)
	}
	if client.lastPrompt != "a minimalist office in Bali" {
		t.Errorf("prompt = %q", client.lastPrompt)
	}
}

func TestGenerateToolRequiresPrompt(t *testing.T) {
	tl := NewGenerateTool(&fakeImageClient{}, "")
	result, _ := tl.Execute(context.Background(), json.RawMessage(`{}`))
	if !result.IsError {
		t.Error("missing prompt must be an error result")
	}
}
