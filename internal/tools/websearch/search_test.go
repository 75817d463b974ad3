package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/baliwise/ragcore/internal/tool"
)

type fakeBackend struct {
	results   []Result
	err       error
	lastQuery string
	lastLimit int
}

func (f *fakeBackend) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	f.lastQuery, f.lastLimit = query, limit
	return f.results, f.err
}

func TestExecuteAppendsDisclaimer(t *testing.T) {
	backend := &fakeBackend{results: []Result{
		{Title: "New visa regulation announced", URL: "https://example.id/reg", Snippet: "Immigration announced changes to the E33G visa."},
	}}
	tl := New(backend, Config{})

	result, err := tl.Execute(context.Background(), json.RawMessage(`{"query":"E33G changes 2026"}`))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Content)
	}
	if !strings.Contains(result.Content, "New visa regulation announced") {
		t.Errorf("content = %q", result.Content)
	}
	if !strings.HasSuffix(result.Content, "not been verified against curated sources.") {
		t.Errorf("disclaimer must trail the results: %q", result.Content)
	}
	if backend.lastQuery != "E33G changes 2026" {
		t.Errorf("query = %q", backend.lastQuery)
	}
}

func TestExecuteDisclaimerOnEmptyResults(t *testing.T) {
	tl := New(&fakeBackend{}, Config{})
	result, _ := tl.Execute(context.Background(), json.RawMessage(`{"query":"nothing"}`))
	if !strings.Contains(result.Content, "no web results") || !strings.Contains(result.Content, "not been verified") {
		t.Errorf("content = %q", result.Content)
	}
}

func TestExecuteCapsNumResults(t *testing.T) {
	backend := &fakeBackend{}
	tl := New(backend, Config{MaxResults: 5})
	if _, err := tl.Execute(context.Background(), json.RawMessage(`{"query":"q","num_results":50}`)); err != nil {
		t.Fatal(err)
	}
	if backend.lastLimit != 5 {
		t.Errorf("limit = %d, want capped at 5", backend.lastLimit)
	}
}

func TestExecuteBackendFailure(t *testing.T) {
	tl := New(&fakeBackend{err: errors.New("upstream down")}, Config{})
	result, _ := tl.Execute(context.Background(), json.RawMessage(`{"query":"q"}`))
	if !result.IsError {
		t.Error("backend failure must be an error result")
	}
}

func TestExecuteMissingQuery(t *testing.T) {
	tl := New(&fakeBackend{}, Config{})
	result, _ := tl.Execute(context.Background(), json.RawMessage(`{}`))
	if !result.IsError {
		t.Error("missing query must be an error result")
	}
}

func TestToolSatisfiesContract(t *testing.T) {
	var _ tool.Tool = (*Tool)(nil)
}

func TestBraveBackendParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "brave-key" {
			t.Errorf("missing subscription token header")
		}
		if got := r.URL.Query().Get("q"); got != "kitas news" {
			t.Errorf("q = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"web":{"results":[
			{"title":"KITAS update","url":"https://example.id/a","description":"New sponsor rules."},
			{"title":"Second","url":"https://example.id/b","description":"More."},
			{"title":"Third","url":"https://example.id/c","description":"Even more."}
		]}}`))
	}))
	defer server.Close()

	backend := NewBraveBackend("brave-key", server.URL)
	results, err := backend.Search(context.Background(), "kitas news", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want limit-trimmed 2", len(results))
	}
	if results[0].Title != "KITAS update" || results[0].Snippet != "New sponsor rules." {
		t.Errorf("results[0] = %+v", results[0])
	}
}

func TestDuckDuckGoBackendParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"Heading":"KITAS",
			"AbstractText":"A KITAS is an Indonesian limited stay permit.",
			"AbstractURL":"https://example.org/kitas",
			"RelatedTopics":[{"Text":"KITAP is the permanent variant.","FirstURL":"https://example.org/kitap"}]
		}`))
	}))
	defer server.Close()

	backend := NewDuckDuckGoBackend(server.URL)
	results, err := backend.Search(context.Background(), "kitas", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Title != "KITAS" || !strings.Contains(results[1].Snippet, "KITAP") {
		t.Errorf("results = %+v", results)
	}
}

func TestBraveBackendNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	if _, err := NewBraveBackend("k", server.URL).Search(context.Background(), "q", 3); err == nil {
		t.Error("expected error on non-200 status")
	}
}
