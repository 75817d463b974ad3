package teamknowledge

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func roster() []Member {
	return []Member{
		{Name: "Anna Widya", Role: "Visa Specialist", Department: "Immigration", Email: "anna@balizero.com", Languages: []string{"id", "en"}},
		{Name: "Marco Bianchi", Role: "Tax Consultant", Department: "Finance", Email: "marco@balizero.com", Languages: []string{"it", "en"}},
		{Name: "Dewi Lestari", Role: "Legal Counsel", Department: "Legal", Email: "dewi@balizero.com"},
	}
}

func execute(t *testing.T, args string) (string, bool) {
	t.Helper()
	tl := New(roster())
	result, err := tl.Execute(context.Background(), json.RawMessage(args))
	if err != nil {
		t.Fatal(err)
	}
	return result.Content, result.IsError
}

func TestListAll(t *testing.T) {
	content, isErr := execute(t, `{"query_type":"list_all"}`)
	if isErr {
		t.Fatalf("error: %s", content)
	}
	var payload struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Count != 3 {
		t.Errorf("count = %d", payload.Count)
	}
}

func TestSearchByRole(t *testing.T) {
	content, isErr := execute(t, `{"query_type":"search_by_role","search_term":"visa"}`)
	if isErr {
		t.Fatalf("error: %s", content)
	}
	if !strings.Contains(content, "Anna Widya") || strings.Contains(content, "Marco") {
		t.Errorf("content = %s", content)
	}
}

func TestSearchByName(t *testing.T) {
	content, _ := execute(t, `{"query_type":"search_by_name","search_term":"marco"}`)
	if !strings.Contains(content, "Tax Consultant") {
		t.Errorf("content = %s", content)
	}
}

func TestSearchByEmail(t *testing.T) {
	content, _ := execute(t, `{"query_type":"search_by_email","search_term":"dewi@"}`)
	if !strings.Contains(content, "Legal Counsel") {
		t.Errorf("content = %s", content)
	}
}

func TestSearchMissingTerm(t *testing.T) {
	_, isErr := execute(t, `{"query_type":"search_by_name"}`)
	if !isErr {
		t.Error("missing search_term must be an error")
	}
}

func TestUnknownQueryType(t *testing.T) {
	_, isErr := execute(t, `{"query_type":"search_by_phone"}`)
	if !isErr {
		t.Error("unknown query_type must be an error")
	}
}
