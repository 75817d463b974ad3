package multimodal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/baliwise/ragcore/internal/llmgw"
	"github.com/baliwise/ragcore/internal/tool"
	"github.com/baliwise/ragcore/pkg/models"
)

// VisionLLM is the slice of the gateway the vision tool needs.
type VisionLLM interface {
	Send(ctx context.Context, messages []models.Message, systemPrompt string, tier string, enableTools bool, tools []llmgw.ToolDef, images []models.Image, tracker *llmgw.CostTracker) (*llmgw.Response, string, error)
}

// VisionTool implements tool.Tool for describing an attached image (a
// passport scan, a document photo) through a vision-capable tier.
type VisionTool struct {
	llm  VisionLLM
	tier string
}

// NewVisionTool creates a vision_analysis tool routed at tier.
func NewVisionTool(llm VisionLLM, tier string) *VisionTool {
	if tier == "" {
		tier = "pro"
	}
	return &VisionTool{llm: llm, tier: tier}
}

func (t *VisionTool) Name() string { return "vision_analysis" }

func (t *VisionTool) Description() string {
	return "Analyzes an attached image (document scan, photo) and answers a question about it."
}

func (t *VisionTool) Schema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "image_base64": {"type": "string", "description": "The image payload, base64-encoded"},
    "mime_type": {"type": "string", "description": "Image MIME type, e.g. image/png"},
    "question": {"type": "string", "description": "What to determine from the image"}
  },
  "required": ["image_base64"]
}`)
}

type visionInput struct {
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type,omitempty"`
	Question    string `json:"question,omitempty"`
}

func (t *VisionTool) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	if t.llm == nil {
		return &tool.Result{Content: "vision analysis is not configured", IsError: true}, nil
	}
	var in visionInput
	if err := json.Unmarshal(params, &in); err != nil {
		return &tool.Result{Content: fmt.Sprintf("invalid params: %v", err), IsError: true}, nil
	}
	if strings.TrimSpace(in.ImageBase64) == "" {
		return &tool.Result{Content: "image_base64 is required", IsError: true}, nil
	}
	question := in.Question
	if question == "" {
		question = "Describe this image and transcribe any text it contains."
	}
	mime := in.MimeType
	if mime == "" {
		mime = "image/png"
	}

	resp, _, err := t.llm.Send(ctx,
		[]models.Message{{Role: models.RoleUser, Content: question}},
		"You analyze images of documents precisely. Transcribe text exactly as written.",
		t.tier, false, nil,
		[]models.Image{{Base64: in.ImageBase64, MimeType: mime}},
		nil,
	)
	if err != nil {
		return &tool.Result{Content: fmt.Sprintf("vision analysis failed: %v", err), IsError: true}, nil
	}
	return &tool.Result{Content: strings.TrimSpace(resp.Text)}, nil
}
