package tool

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/baliwise/ragcore/pkg/models"
)

// CallIntent is a parsed request from the model to invoke one tool,
// normalized from either the provider's native function-calling structs or
// the inline "Action:" text format.
type CallIntent struct {
	Name      string
	Arguments json.RawMessage

	// ID is the provider-assigned call id when the call came through
	// native function calling; empty for inline calls.
	ID string
}

// inlineActionRe matches the documented inline tool-call format:
//
//	Action: vector_search
//	Action Input: {"query": "..."}
//
// used as a fallback when the provider returned no native tool call.
var inlineActionRe = regexp.MustCompile(`(?s)Action:\s*([\w.-]+)\s*[\r\n]+\s*Action Input:\s*(\{.*?\})\s*(?:$|Observation:|Thought:)`)

// ParseCall extracts a tool call from a model response. Native
// function-calling output wins; the inline regex format is the fallback.
// The returned thought is the free text preceding the call (or the whole
// text when the call was native), so the ReAct engine can record it on the
// current step. ok is false when the response contains no tool call at all.
func ParseCall(text string, native []models.ToolCall) (intent *CallIntent, thought string, ok bool) {
	if len(native) > 0 {
		call := native[0]
		return &CallIntent{Name: call.Name, Arguments: call.Input, ID: call.ID}, strings.TrimSpace(text), true
	}

	m := inlineActionRe.FindStringSubmatchIndex(text)
	if m == nil {
		return nil, "", false
	}
	name := text[m[2]:m[3]]
	args := json.RawMessage(text[m[4]:m[5]])
	if !json.Valid(args) {
		return nil, "", false
	}
	thought = strings.TrimSpace(text[:m[0]])
	thought = strings.TrimPrefix(thought, "Thought:")
	return &CallIntent{Name: name, Arguments: args}, strings.TrimSpace(thought), true
}
