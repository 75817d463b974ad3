// Package multimodal holds the image tools: image_generation renders an
// image from a text prompt (cmd/ragcored registers it only when an OpenAI
// API key is configured), vision_analysis describes an attached image
// (registered on every deployment).
package multimodal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/baliwise/ragcore/internal/tool"
)

// ImageClient is the slice of the OpenAI client the generation tool uses.
type ImageClient interface {
	CreateImage(ctx context.Context, request openai.ImageRequest) (openai.ImageResponse, error)
}

// GenerateTool implements tool.Tool for text-to-image generation.
type GenerateTool struct {
	client ImageClient
	model  string
}

// NewGenerateTool creates an image_generation tool. model defaults to
// dall-e-3 when empty.
func NewGenerateTool(client ImageClient, model string) *GenerateTool {
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &GenerateTool{client: client, model: model}
}

func (t *GenerateTool) Name() string { return "image_generation" }

func (t *GenerateTool) Description() string {
	return "Generates an image from a text prompt. Use only when the user explicitly asks for an image."
}

func (t *GenerateTool) Schema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "prompt": {"type": "string", "description": "What the image should depict"},
    "size": {"type": "string", "enum": ["1024x1024", "1792x1024", "1024x1792"], "description": "Image dimensions"}
  },
  "required": ["prompt"]
}`)
}

type generateInput struct {
	Prompt string `json:"prompt"`
	Size   string `json:"size,omitempty"`
}

func (t *GenerateTool) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	if t.client == nil {
		return &tool.Result{Content: "image generation is not configured", IsError: true}, nil
	}
	var in generateInput
	if err := json.Unmarshal(params, &in); err != nil {
		return &tool.Result{Content: fmt.Sprintf("invalid params: %v", err), IsError: true}, nil
	}
	if strings.TrimSpace(in.Prompt) == "" {
		return &tool.Result{Content: "prompt is required", IsError: true}, nil
	}
	size := in.Size
	if size == "" {
		size = openai.CreateImageSize1024x1024
	}

	resp, err := t.client.CreateImage(ctx, openai.ImageRequest{
		Model:          t.model,
		Prompt:         in.Prompt,
		Size:           size,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return &tool.Result{Content: fmt.Sprintf("image generation failed: %v", err), IsError: true}, nil
	}
	if len(resp.Data) == 0 {
		return &tool.Result{Content: "image generation returned no image", IsError: true}, nil
	}

	return &tool.Result{
		Content: "generated 1 image",
		Artifacts: []tool.Artifact{{
			ID:       "generated-image",
			Type:     "image",
			MimeType: "image/png",
			Data:     []byte(resp.Data[0].B64JSON),
		}},
	}, nil
}
