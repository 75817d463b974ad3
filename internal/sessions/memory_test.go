package sessions

import (
	"context"
	"errors"
	"testing"

	"github.com/baliwise/ragcore/pkg/models"
)

func TestSessionLifecycle(t *testing.T) {
	store := NewMemoryStore()
	session := &models.Session{UserID: "marco@example.com", Key: SessionKey("marco@example.com", "default")}

	if err := store.Create(context.Background(), session); err != nil {
		t.Fatal(err)
	}
	if session.ID == "" {
		t.Fatal("Create must assign an id")
	}

	loaded, err := store.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Key != session.Key || loaded.UserID != "marco@example.com" {
		t.Errorf("loaded = %+v", loaded)
	}

	loaded.Title = "Visa questions"
	if err := store.Update(context.Background(), loaded); err != nil {
		t.Fatal(err)
	}
	updated, err := store.Get(context.Background(), loaded.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "Visa questions" {
		t.Errorf("Title = %q", updated.Title)
	}

	if err := store.Delete(context.Background(), updated.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(context.Background(), updated.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	key := SessionKey("marco@example.com", "default")

	first, err := store.GetOrCreate(context.Background(), key, "marco@example.com")
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.GetOrCreate(context.Background(), key, "marco@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("same key returned different sessions: %q vs %q", first.ID, second.ID)
	}
}

func TestHistoryAppendAndLimit(t *testing.T) {
	store := NewMemoryStore()
	session, err := store.GetOrCreate(context.Background(), SessionKey("marco@example.com", "default"), "marco@example.com")
	if err != nil {
		t.Fatal(err)
	}

	for _, content := range []string{"How do I extend my KITAS?", "You need a sponsor letter.", "How long does it take?"} {
		if err := store.AppendMessage(context.Background(), session.ID, &models.Message{Role: models.RoleUser, Content: content}); err != nil {
			t.Fatal(err)
		}
	}

	history, err := store.GetHistory(context.Background(), session.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %d, want most recent 2", len(history))
	}
	if history[1].Content != "How long does it take?" {
		t.Errorf("last message = %q", history[1].Content)
	}
}

func TestAppendToUnknownSessionFails(t *testing.T) {
	store := NewMemoryStore()
	err := store.AppendMessage(context.Background(), "missing", &models.Message{Role: models.RoleUser, Content: "hi"})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestListFiltersByUser(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.GetOrCreate(context.Background(), SessionKey("marco@example.com", "a"), "marco@example.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetOrCreate(context.Background(), SessionKey("dewi@example.com", "b"), "dewi@example.com"); err != nil {
		t.Fatal(err)
	}

	sessions, err := store.List(context.Background(), "marco@example.com", ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].UserID != "marco@example.com" {
		t.Errorf("sessions = %+v", sessions)
	}
}
