package tool

import (
	"encoding/json"
	"testing"

	"github.com/baliwise/ragcore/pkg/models"
)

func TestParseCallNative(t *testing.T) {
	native := []models.ToolCall{{ID: "call_1", Name: "vector_search", Input: json.RawMessage(`{"query":"kitas"}`)}}
	intent, thought, ok := ParseCall("I should search the knowledge base.", native)
	if !ok {
		t.Fatal("expected a parsed call")
	}
	if intent.Name != "vector_search" || intent.ID != "call_1" {
		t.Errorf("got %+v", intent)
	}
	if thought != "I should search the knowledge base." {
		t.Errorf("thought = %q", thought)
	}
}

func TestParseCallInline(t *testing.T) {
	text := "Thought: the user asks about visas, I need documents.\nAction: vector_search\nAction Input: {\"query\": \"E33 visa requirements\"}"
	intent, thought, ok := ParseCall(text, nil)
	if !ok {
		t.Fatal("expected a parsed call")
	}
	if intent.Name != "vector_search" {
		t.Errorf("name = %q", intent.Name)
	}
	var args map[string]string
	if err := json.Unmarshal(intent.Arguments, &args); err != nil {
		t.Fatalf("arguments not valid JSON: %v", err)
	}
	if args["query"] != "E33 visa requirements" {
		t.Errorf("args = %v", args)
	}
	if thought != "the user asks about visas, I need documents." {
		t.Errorf("thought = %q", thought)
	}
}

func TestParseCallInlineInvalidJSON(t *testing.T) {
	text := "Action: calculator\nAction Input: {broken"
	if _, _, ok := ParseCall(text, nil); ok {
		t.Error("expected no parse for invalid JSON arguments")
	}
}

func TestParseCallNone(t *testing.T) {
	if _, _, ok := ParseCall("Final Answer: the minimum capital is 10 billion IDR.", nil); ok {
		t.Error("expected no tool call in a final answer")
	}
}
