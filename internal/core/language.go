package core

import (
	"strings"
	"unicode"
)

// Language is the coarse per-query language marker the gates use to pick
// which canned response variant to return. Detection is intentionally
// imprecise: script ranges first, then small word lists. Latin-script text
// that matches no word list is treated as English; "unknown" is returned
// only when the query has no recognised letters at all.
type Language string

const (
	LangEnglish    Language = "en"
	LangIndonesian Language = "id"
	LangItalian    Language = "it"
	LangUkrainian  Language = "uk"
	LangRussian    Language = "ru"
	LangJapanese   Language = "ja"
	LangChinese    Language = "zh"
	LangArabic     Language = "ar"
	LangUnknown    Language = "unknown"
)

var (
	indonesianWords = []string{"apa", "kabar", "halo", "bagaimana", "berapa", "bisa", "saya", "untuk", "terima kasih", "gimana", "tolong", "visa saya", "harga"}
	italianWords    = []string{"ciao", "come", "grazie", "buongiorno", "buonasera", "quanto", "posso", "vorrei", "sono", "perché", "quale"}
	ukrainianWords  = []string{"привіт", "дякую", "як", "скільки", "віза", "допоможіть"}
	russianWords    = []string{"привет", "спасибо", "как", "сколько", "виза", "помогите"}
)

// DetectLanguage classifies query by dominant script, then word lists.
func DetectLanguage(query string) Language {
	var kana, han, cyrillic, arabic, latin int
	for _, r := range query {
		switch {
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			kana++
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Arabic, r):
			arabic++
		case r < 128 && unicode.IsLetter(r):
			latin++
		}
	}

	// Prefer the dominant script on mixed-language input.
	switch {
	case kana > 0:
		return LangJapanese
	case han > 0 && han >= latin:
		return LangChinese
	case arabic > 0 && arabic >= latin:
		return LangArabic
	case cyrillic > 0 && cyrillic >= latin:
		lower := strings.ToLower(query)
		for _, w := range ukrainianWords {
			if strings.Contains(lower, w) {
				return LangUkrainian
			}
		}
		for _, w := range russianWords {
			if strings.Contains(lower, w) {
				return LangRussian
			}
		}
		// Ukrainian-only letters decide when the word lists don't.
		if strings.ContainsAny(query, "іїєґІЇЄҐ") {
			return LangUkrainian
		}
		return LangRussian
	}

	lower := " " + strings.ToLower(query) + " "
	score := func(words []string) int {
		n := 0
		for _, w := range words {
			if strings.Contains(lower, " "+w+" ") || strings.Contains(lower, " "+w+"?") || strings.Contains(lower, " "+w+"!") || strings.Contains(lower, " "+w+",") {
				n++
			}
		}
		return n
	}

	id, it := score(indonesianWords), score(italianWords)
	switch {
	case id > it && id > 0:
		return LangIndonesian
	case it > 0:
		return LangItalian
	case latin > 0:
		return LangEnglish
	default:
		return LangUnknown
	}
}
