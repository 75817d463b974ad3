package core

import (
	"testing"
	"time"

	"github.com/baliwise/ragcore/internal/config"
	"github.com/baliwise/ragcore/pkg/models"
)

func TestSemanticCacheHit(t *testing.T) {
	c := NewSemanticCache(config.SemanticCacheConfig{TTL: time.Minute, MaxSize: 10})
	sources := []models.Source{{Collection: "legal", DocumentID: "doc-1"}}
	c.Put("PT PMA minimum capital", "10 billion IDR", sources)

	answer, got, ok := c.Get("  pt pma   MINIMUM capital ")
	if !ok {
		t.Fatal("normalized query should hit")
	}
	if answer != "10 billion IDR" || len(got) != 1 {
		t.Errorf("answer = %q, sources = %v", answer, got)
	}
}

func TestSemanticCacheMiss(t *testing.T) {
	c := NewSemanticCache(config.SemanticCacheConfig{TTL: time.Minute, MaxSize: 10})
	if _, _, ok := c.Get("never stored"); ok {
		t.Error("unexpected hit")
	}
}

func TestSemanticCacheExpiry(t *testing.T) {
	c := NewSemanticCache(config.SemanticCacheConfig{TTL: time.Millisecond, MaxSize: 10})
	c.Put("q", "a", nil)
	time.Sleep(5 * time.Millisecond)
	if _, _, ok := c.Get("q"); ok {
		t.Error("expired entry should miss")
	}
}

func TestSemanticCacheEviction(t *testing.T) {
	c := NewSemanticCache(config.SemanticCacheConfig{TTL: time.Minute, MaxSize: 3})
	c.Put("one", "1", nil)
	c.Put("two", "2", nil)
	c.Put("three", "3", nil)
	c.Put("four", "4", nil)
	if c.Len() > 3 {
		t.Errorf("cache exceeded max size: %d", c.Len())
	}
	if _, _, ok := c.Get("four"); !ok {
		t.Error("newest entry should survive eviction")
	}
}
