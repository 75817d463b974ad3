// Package chunker splits documents into retrieval-sized chunks. The
// splitting order is tuned for this corpus — regulations, contracts, and
// procedure guides: markdown headings first, then legal article
// boundaries (Pasal/Article/Bab numbering), then paragraphs, merging
// small neighbors back together so a chunk carries enough context to be
// retrievable on its own.
package chunker

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/baliwise/ragcore/pkg/models"
)

// Config bounds chunk sizes.
type Config struct {
	// MaxChars is the target upper bound for one chunk's content.
	MaxChars int

	// MinChars is the size below which a fragment is merged into its
	// neighbor instead of standing alone.
	MinChars int

	// OverlapChars is how much of a chunk's tail is prepended to the next
	// chunk when a section must be hard-split.
	OverlapChars int
}

// DefaultConfig returns sensible bounds for regulation-style prose.
func DefaultConfig() Config {
	return Config{MaxChars: 1600, MinChars: 200, OverlapChars: 150}
}

var (
	headingRe = regexp.MustCompile(`(?m)^#{1,4}\s+.+$`)

	// Indonesian and English legal section markers, matched at line start:
	// "Pasal 12", "Article 5", "BAB III", "Bagian Kedua".
	articleRe = regexp.MustCompile(`(?mi)^(pasal|article|bab|bagian|section)\s+([0-9]+[a-z]?|[ivxlc]+|\p{L}+)\b`)

	paragraphRe = regexp.MustCompile(`\n\s*\n`)
)

// Chunk splits content into chunks for doc, carrying the section heading
// each fragment fell under so a retrieved chunk still names its context.
func Chunk(doc *models.Document, content string, cfg Config) []*models.DocumentChunk {
	if cfg.MaxChars <= 0 {
		cfg = DefaultConfig()
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var pieces []string
	for _, section := range splitByHeadings(content) {
		heading, body := section.heading, section.body
		for _, fragment := range splitSection(body, cfg) {
			fragment = strings.TrimSpace(fragment)
			if fragment == "" {
				continue
			}
			if heading != "" && !strings.HasPrefix(fragment, heading) {
				fragment = heading + "\n" + fragment
			}
			pieces = append(pieces, fragment)
		}
	}
	pieces = mergeSmall(pieces, cfg.MinChars, cfg.MaxChars)

	chunks := make([]*models.DocumentChunk, 0, len(pieces))
	offset := 0
	for i, piece := range pieces {
		chunks = append(chunks, &models.DocumentChunk{
			ID:          uuid.NewString(),
			DocumentID:  doc.ID,
			Index:       i,
			Content:     piece,
			StartOffset: offset,
			EndOffset:   offset + len(piece),
			TokenCount:  approxTokens(piece),
		})
		offset += len(piece)
	}
	return chunks
}

type section struct {
	heading string
	body    string
}

// splitByHeadings cuts content at markdown headings, keeping each heading
// with the body that follows it.
func splitByHeadings(content string) []section {
	locs := headingRe.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return []section{{body: content}}
	}

	var out []section
	if head := strings.TrimSpace(content[:locs[0][0]]); head != "" {
		out = append(out, section{body: head})
	}
	for i, loc := range locs {
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		heading := strings.TrimSpace(content[loc[0]:loc[1]])
		body := strings.TrimSpace(content[loc[1]:end])
		out = append(out, section{heading: heading, body: body})
	}
	return out
}

// splitSection breaks one section body along article boundaries, then
// paragraphs, then hard-splits anything still over MaxChars.
func splitSection(body string, cfg Config) []string {
	var out []string
	for _, article := range splitAtBoundaries(body, articleRe) {
		if len(article) <= cfg.MaxChars {
			out = append(out, article)
			continue
		}
		for _, para := range accumulate(paragraphRe.Split(article, -1), cfg.MaxChars) {
			if len(para) <= cfg.MaxChars {
				out = append(out, para)
				continue
			}
			out = append(out, hardSplit(para, cfg.MaxChars, cfg.OverlapChars)...)
		}
	}
	return out
}

// splitAtBoundaries cuts text immediately before each match of re,
// keeping the marker line with the text that follows it.
func splitAtBoundaries(text string, re *regexp.Regexp) []string {
	locs := re.FindAllStringIndex(text, -1)
	if len(locs) < 2 {
		return []string{text}
	}
	var out []string
	if head := strings.TrimSpace(text[:locs[0][0]]); head != "" {
		out = append(out, head)
	}
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out = append(out, strings.TrimSpace(text[loc[0]:end]))
	}
	return out
}

// accumulate greedily packs consecutive fragments up to maxChars.
func accumulate(fragments []string, maxChars int) []string {
	var out []string
	var current strings.Builder
	for _, f := range fragments {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(f)+2 > maxChars {
			out = append(out, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(f)
	}
	if current.Len() > 0 {
		out = append(out, current.String())
	}
	return out
}

// hardSplit cuts oversized text at sentence ends where possible, carrying
// overlap so no clause is stranded at a cut point.
func hardSplit(text string, maxChars, overlap int) []string {
	var out []string
	for len(text) > maxChars {
		cut := maxChars
		if idx := strings.LastIndexAny(text[:maxChars], ".!?"); idx > maxChars/2 {
			cut = idx + 1
		}
		out = append(out, strings.TrimSpace(text[:cut]))
		next := cut - overlap
		if next < 0 || next >= cut {
			next = cut
		}
		text = text[next:]
	}
	if rest := strings.TrimSpace(text); rest != "" {
		out = append(out, rest)
	}
	return out
}

// mergeSmall folds fragments below minChars into their predecessor.
func mergeSmall(pieces []string, minChars, maxChars int) []string {
	var out []string
	for _, p := range pieces {
		if len(out) > 0 && len(p) < minChars && len(out[len(out)-1])+len(p)+2 <= maxChars {
			out[len(out)-1] = out[len(out)-1] + "\n\n" + p
			continue
		}
		out = append(out, p)
	}
	return out
}

// approxTokens estimates tokens at ~4 chars per token, enough for the
// accounting the indexer reports.
func approxTokens(s string) int {
	n := len(s) / 4
	if n == 0 && s != "" {
		n = 1
	}
	return n
}
