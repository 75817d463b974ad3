package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/baliwise/ragcore/pkg/models"
)

func doc() *models.Document {
	return &models.Document{ID: "doc-1", Name: "kitas-guide"}
}

func TestChunkShortDocumentIsOneChunk(t *testing.T) {
	chunks := Chunk(doc(), "A KITAS extension requires a sponsor letter.", DefaultConfig())
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d", len(chunks))
	}
	if chunks[0].Index != 0 || chunks[0].DocumentID != "doc-1" {
		t.Errorf("chunk = %+v", chunks[0])
	}
}

func TestChunkSplitsAtHeadingsAndKeepsHeadingContext(t *testing.T) {
	content := "# Visa Types\n\n" + strings.Repeat("The E33G remote worker visa permits foreign employment income. ", 20) +
		"\n\n# Fees\n\n" + strings.Repeat("The extension fee is paid at the immigration office. ", 20)
	chunks := Chunk(doc(), content, Config{MaxChars: 800, MinChars: 100, OverlapChars: 80})

	if len(chunks) < 2 {
		t.Fatalf("expected a split per heading, got %d chunks", len(chunks))
	}
	var feeChunk string
	for _, c := range chunks {
		if strings.Contains(c.Content, "extension fee") {
			feeChunk = c.Content
			break
		}
	}
	if !strings.HasPrefix(feeChunk, "# Fees") {
		t.Errorf("chunk should carry its section heading:\n%s", feeChunk)
	}
}

func TestChunkSplitsAtLegalArticles(t *testing.T) {
	content := "Pasal 1\nSetiap orang asing wajib memiliki izin tinggal. " + strings.Repeat("Ketentuan lebih lanjut diatur dengan peraturan. ", 20) +
		"\nPasal 2\nIzin tinggal terbatas diberikan untuk jangka waktu tertentu. " + strings.Repeat("Perpanjangan diajukan sebelum masa berlaku berakhir. ", 20)
	chunks := Chunk(doc(), content, Config{MaxChars: 900, MinChars: 100, OverlapChars: 80})

	var starts []string
	for _, c := range chunks {
		starts = append(starts, c.Content[:min(16, len(c.Content))])
	}
	foundP1, foundP2 := false, false
	for _, s := range starts {
		if strings.HasPrefix(s, "Pasal 1") {
			foundP1 = true
		}
		if strings.HasPrefix(s, "Pasal 2") {
			foundP2 = true
		}
	}
	if !foundP1 || !foundP2 {
		t.Errorf("articles should start their own chunks, starts = %v", starts)
	}
}

func TestChunkRespectsMaxChars(t *testing.T) {
	content := strings.Repeat("A long unbroken regulation sentence about capital requirements. ", 200)
	cfg := Config{MaxChars: 500, MinChars: 50, OverlapChars: 50}
	chunks := Chunk(doc(), content, cfg)
	if len(chunks) < 2 {
		t.Fatalf("oversized content must split, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		// Heading prefixes can push slightly past the target; a chunk
		// at more than double the bound means splitting failed.
		if len(c.Content) > 2*cfg.MaxChars {
			t.Errorf("chunk %d is %d chars", i, len(c.Content))
		}
	}
}

func TestChunkMergesSmallFragments(t *testing.T) {
	content := "Intro line.\n\n# Section\n\nTiny.\n\nAlso tiny."
	chunks := Chunk(doc(), content, Config{MaxChars: 1000, MinChars: 200, OverlapChars: 50})
	if len(chunks) != 1 {
		for i, c := range chunks {
			fmt.Println(i, c.Content)
		}
		t.Errorf("small fragments should merge into one chunk, got %d", len(chunks))
	}
}

func TestChunkIndicesAreSequential(t *testing.T) {
	content := strings.Repeat("Sentence about procedures. ", 300)
	chunks := Chunk(doc(), content, Config{MaxChars: 400, MinChars: 50, OverlapChars: 40})
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.ID == "" {
			t.Errorf("chunk %d missing id", i)
		}
	}
}
