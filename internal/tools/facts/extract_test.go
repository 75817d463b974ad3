package facts

import (
	"context"
	"strings"
	"testing"
)

func TestExtractContactFacts(t *testing.T) {
	got := Extract("Email me at alex@example.com or visit https://example.com. Call +1 (555) 123-4567.", 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 facts, got %d: %+v", len(got), got)
	}
	types := map[string]int{}
	for _, f := range got {
		types[f.Type]++
	}
	if types["contact"] != 3 {
		t.Errorf("types = %v", types)
	}
}

func TestExtractSelfDescriptions(t *testing.T) {
	msg := "My name is Marco Rossi. I run a surf school in Canggu and I live in Bali. I want to open a PT PMA next year."
	got := Extract(msg, 10)

	want := map[string]string{
		"identity": "Name: Marco Rossi",
		"business": "surf school",
		"location": "Based in Bali",
		"goal":     "open a PT PMA",
	}
	for typ, substr := range want {
		found := false
		for _, f := range got {
			if f.Type == typ && strings.Contains(f.Content, substr) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing %s fact containing %q in %+v", typ, substr, got)
		}
	}
}

func TestExtractLimit(t *testing.T) {
	got := Extract("a@example.com b@example.com c@example.com", 1)
	if len(got) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(got))
	}
}

func TestExtractDeduplicates(t *testing.T) {
	got := Extract("write to a@example.com or a@example.com", 10)
	if len(got) != 1 {
		t.Errorf("duplicate email should collapse, got %d", len(got))
	}
}

func TestExtractorAdapter(t *testing.T) {
	extract := Extractor(5)
	got, err := extract(context.Background(), "u1", "my name is Anna", "ok")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Type != "identity" {
		t.Errorf("got %+v", got)
	}
}
