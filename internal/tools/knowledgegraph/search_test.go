package knowledgegraph

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

type fakeStore struct {
	rels map[string][]Relationship
}

func (f *fakeStore) Lookup(ctx context.Context, entity string, limit int) ([]Relationship, error) {
	return f.rels[strings.ToLower(entity)], nil
}

func TestExecuteByEntity(t *testing.T) {
	store := &fakeStore{rels: map[string][]Relationship{
		"e33g": {{Subject: "E33G", Predicate: "requires", Object: "proof of remote income", Confidence: 0.95}},
	}}
	tl := New(store, 10)

	result, err := tl.Execute(context.Background(), json.RawMessage(`{"entity":"E33G"}`))
	if err != nil {
		t.Fatal(err)
	}
	var payload struct {
		Entity        string         `json:"entity"`
		Relationships []Relationship `json:"relationships"`
	}
	if err := json.Unmarshal([]byte(result.Content), &payload); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if len(payload.Relationships) != 1 || payload.Relationships[0].Predicate != "requires" {
		t.Errorf("relationships = %+v", payload.Relationships)
	}
}

func TestExecuteQueryFallback(t *testing.T) {
	store := &fakeStore{rels: map[string][]Relationship{
		"kitas": {{Subject: "KITAS", Predicate: "issued_by", Object: "Imigrasi", Confidence: 0.9}},
	}}
	tl := New(store, 10)
	result, err := tl.Execute(context.Background(), json.RawMessage(`{"query":"KITAS"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Content, "issued_by") {
		t.Errorf("content = %q", result.Content)
	}
}

func TestExecuteNoMatch(t *testing.T) {
	tl := New(&fakeStore{}, 10)
	result, _ := tl.Execute(context.Background(), json.RawMessage(`{"entity":"unknown"}`))
	if result.IsError || !strings.Contains(result.Content, "no graph relationships") {
		t.Errorf("result = %+v", result)
	}
}

func TestExecuteMissingArgs(t *testing.T) {
	tl := New(&fakeStore{}, 10)
	result, _ := tl.Execute(context.Background(), json.RawMessage(`{}`))
	if !result.IsError {
		t.Error("expected an error result")
	}
}
