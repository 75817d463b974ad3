package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/baliwise/ragcore/pkg/models"
)

// ClarificationService scores how ambiguous a query is. Supplied
// externally; a nil service disables the clarification gate.
type ClarificationService interface {
	// Score returns ambiguity in [0,1], whether clarification is needed,
	// and the question to ask when it is.
	Score(ctx context.Context, query string) (score float64, needed bool, question string, err error)
}

// DomainClassifier tags queries the assistant must refuse outright (for
// example medical advice). Supplied externally; nil disables the gate.
type DomainClassifier interface {
	// Classify returns (out-of-domain?, reason tag like "medical").
	Classify(ctx context.Context, query string) (bool, string, error)
}

// GateOutcome is the verdict of the gate cascade for one query. A nil
// outcome means no gate triggered and the query proceeds to retrieval.
type GateOutcome struct {
	// Gate names the triggering gate; it becomes CoreResult.ModelUsed
	// (e.g. "security-gate", "greeting-pattern", "out-of-domain-medical").
	Gate string

	Answer             string
	VerificationStatus string
	IsAmbiguous        bool
	Clarification      string
}

// Gates runs the ordered pre-retrieval checks. First trigger wins; the
// semantic-cache gate is owned by the orchestrator because it needs the
// cache and entity extraction, so this type covers gates 1–6.
type Gates struct {
	clarifier  ClarificationService
	classifier DomainClassifier

	// ClarificationThreshold is the ambiguity score above which the
	// clarification gate may trigger.
	ClarificationThreshold float64
}

// NewGates creates the cascade. Either dependency may be nil.
func NewGates(clarifier ClarificationService, classifier DomainClassifier) *Gates {
	return &Gates{clarifier: clarifier, classifier: classifier, ClarificationThreshold: 0.6}
}

// Security gate patterns: prompt-injection attempts and requests to
// repurpose the assistant as generic entertainment.
var securityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)disregard\s+(your|all|the)\s+(instructions?|rules?|guidelines?)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|in)\b`),
	regexp.MustCompile(`(?i)(enable|activate|enter)\s+(developer|dan|jailbreak|god)\s*mode`),
	regexp.MustCompile(`(?i)pretend\s+(you\s+are|to\s+be)\s+(a|an|my\s+girlfriend|someone)\b`),
	regexp.MustCompile(`(?i)reveal\s+(your|the)\s+(system\s+)?prompt`),
	regexp.MustCompile(`(?i)what\s+(is|are)\s+your\s+(system\s+)?(prompt|instructions)`),
	regexp.MustCompile(`(?i)^(tell|write)\s+me\s+a\s+(joke|story|poem|song)`),
	regexp.MustCompile(`(?i)\broleplay\b`),
}

// Greeting matrix: exact/short greetings per supported language.
var greetingRe = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|good\s*(morning|afternoon|evening)|halo|hai|selamat\s*(pagi|siang|sore|malam)|ciao|salve|buongiorno|buonasera|привіт|добрий\s*день|привет|здравствуйте|こんにちは|おはよう|你好|مرحبا)[\s!.,?]*$`)

// Casual chatter that does not warrant retrieval.
var casualPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(how\s+are\s+you|how's\s+it\s+going|what's\s+up|wassup)\b`),
	regexp.MustCompile(`(?i)^\s*(apa\s+kabar|gimana\s+kabar(nya)?)\b`),
	regexp.MustCompile(`(?i)^\s*(come\s+stai|come\s+va|tutto\s+bene)\b`),
	regexp.MustCompile(`(?i)^\s*(как\s+дела|як\s+справи)\b`),
	regexp.MustCompile(`(?i)^\s*(thanks?|thank\s+you|grazie|terima\s+kasih|makasih|спасибо|дякую)[\s!.]*$`),
	regexp.MustCompile(`(?i)^\s*(ok(ay)?|cool|nice|great|bagus|va\s+bene)[\s!.]*$`),
}

// Domain keywords that veto the casual gate: a "thanks, and what about my
// KITAS?" style message still needs retrieval.
var domainKeywords = []string{
	"visa", "kitas", "kitap", "voa", "imigrasi", "immigration", "passport", "sponsor",
	"pt pma", "pt ", "company", "perusahaan", "npwp", "tax", "pajak", "bpjs",
	"oss", "nib", "kbli", "license", "izin", "permit", "notary", "notaris",
	"price", "pricing", "cost", "harga", "biaya", "quanto costa",
	"legal", "law", "hukum", "regulation", "peraturan",
}

var identityPatterns = map[string]*regexp.Regexp{
	"who_are_you": regexp.MustCompile(`(?i)^\s*(who|what)\s+are\s+you[\s?!.]*$|^\s*chi\s+sei[\s?!.]*$|^\s*kamu\s+siapa[\s?!.]*$|^\s*siapa\s+kamu[\s?!.]*$`),
	"who_am_i":    regexp.MustCompile(`(?i)^\s*who\s+am\s+i[\s?!.]*$|^\s*chi\s+sono( io)?[\s?!.]*$|^\s*saya\s+siapa[\s?!.]*$`),
	"what_we_do":  regexp.MustCompile(`(?i)what\s+(does|do)\s+(the\s+)?company\s+do|cosa\s+fa\s+l'azienda|perusahaan\s+ini\s+bergerak`),
}

// Run evaluates gates in order against query; userCtx personalizes the
// greeting and identity responses. A nil return means no gate triggered.
func (g *Gates) Run(ctx context.Context, query string, userCtx *models.UserContext) *GateOutcome {
	text := strings.TrimSpace(query)
	lang := DetectLanguage(text)

	// 1. Security.
	for _, re := range securityPatterns {
		if re.MatchString(text) {
			return &GateOutcome{
				Gate:               "security-gate",
				Answer:             securityRefusal(lang),
				VerificationStatus: "blocked",
			}
		}
	}

	// 2. Greeting.
	if greetingRe.MatchString(text) {
		return &GateOutcome{
			Gate:               "greeting-pattern",
			Answer:             greetingReply(lang, profileName(userCtx)),
			VerificationStatus: "passed",
		}
	}

	// 3. Casual — unless the query carries a domain keyword or visa code,
	// in which case retrieval wins. Ambiguity defaults to not-casual.
	if g.isCasual(text) {
		return &GateOutcome{
			Gate:               "casual-pattern",
			Answer:             casualReply(lang, profileName(userCtx)),
			VerificationStatus: "passed",
		}
	}

	// 4. Identity.
	if out := g.identity(text, lang, userCtx); out != nil {
		return out
	}

	// 5. Clarification.
	if g.clarifier != nil {
		score, needed, question, err := g.clarifier.Score(ctx, text)
		if err == nil && needed && score > g.ClarificationThreshold && question != "" {
			return &GateOutcome{
				Gate:               "clarification-gate",
				Answer:             question,
				VerificationStatus: "skipped",
				IsAmbiguous:        true,
				Clarification:      question,
			}
		}
	}

	// 6. Out-of-domain.
	if g.classifier != nil {
		if outOfDomain, reason, err := g.classifier.Classify(ctx, text); err == nil && outOfDomain {
			if reason == "" {
				reason = "general"
			}
			return &GateOutcome{
				Gate:               "out-of-domain-" + reason,
				Answer:             outOfDomainRefusal(lang, reason),
				VerificationStatus: "blocked",
			}
		}
	}

	return nil
}

func (g *Gates) isCasual(text string) bool {
	matched := false
	for _, re := range casualPatterns {
		if re.MatchString(text) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range domainKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	if visaCodeRe.MatchString(text) {
		return false
	}
	return true
}

func (g *Gates) identity(text string, lang Language, userCtx *models.UserContext) *GateOutcome {
	switch {
	case identityPatterns["who_are_you"].MatchString(text):
		return &GateOutcome{
			Gate:               "identity-pattern",
			Answer:             assistantIdentityReply(lang),
			VerificationStatus: "passed",
		}
	case identityPatterns["who_am_i"].MatchString(text):
		return &GateOutcome{
			Gate:               "identity-pattern",
			Answer:             userIdentityReply(lang, userCtx),
			VerificationStatus: "passed",
		}
	case identityPatterns["what_we_do"].MatchString(text):
		return &GateOutcome{
			Gate:               "identity-pattern",
			Answer:             companyReply(lang),
			VerificationStatus: "passed",
		}
	}
	return nil
}

func profileName(userCtx *models.UserContext) string {
	if userCtx == nil || userCtx.Profile == nil {
		return ""
	}
	return userCtx.Profile.Name
}

func securityRefusal(lang Language) string {
	switch lang {
	case LangIndonesian:
		return "Maaf, saya tidak bisa memenuhi permintaan itu. Saya adalah asisten bisnis untuk pertanyaan visa, legal, pajak, dan harga layanan — silakan tanyakan hal-hal tersebut."
	case LangItalian:
		return "Mi dispiace, non posso soddisfare questa richiesta. Sono un assistente aziendale per domande su visti, aspetti legali, tasse e prezzi dei servizi — chiedimi pure di questi argomenti."
	case LangRussian:
		return "Извините, я не могу выполнить этот запрос. Я бизнес-ассистент по вопросам виз, права, налогов и цен на услуги — буду рад помочь с этими темами."
	case LangUkrainian:
		return "Вибачте, я не можу виконати цей запит. Я бізнес-асистент з питань віз, права, податків і цін на послуги — радо допоможу з цими темами."
	default:
		return "I'm sorry, I can't help with that request. I'm a business assistant for visa, legal, tax, and service pricing questions — feel free to ask me about those."
	}
}

func greetingReply(lang Language, name string) string {
	greet := map[Language]string{
		LangIndonesian: "Halo",
		LangItalian:    "Ciao",
		LangRussian:    "Привет",
		LangUkrainian:  "Привіт",
		LangJapanese:   "こんにちは",
		LangChinese:    "你好",
		LangArabic:     "مرحبا",
	}[lang]
	if greet == "" {
		greet = "Hello"
	}
	if name != "" {
		greet = greet + " " + name
	}
	switch lang {
	case LangIndonesian:
		return greet + "! Ada yang bisa saya bantu soal visa, perusahaan, pajak, atau harga layanan?"
	case LangItalian:
		return greet + "! Come posso aiutarti con visti, società, tasse o prezzi dei servizi?"
	default:
		return greet + "! How can I help you with visas, company setup, taxes, or service pricing today?"
	}
}

func casualReply(lang Language, name string) string {
	suffix := ""
	if name != "" {
		suffix = ", " + name
	}
	switch lang {
	case LangIndonesian:
		return "Baik sekali" + suffix + "! Ada yang bisa saya bantu hari ini?"
	case LangItalian:
		return "Tutto bene" + suffix + "! Posso aiutarti con qualcosa?"
	default:
		return "I'm doing well" + suffix + "! Is there anything I can help you with?"
	}
}

func assistantIdentityReply(lang Language) string {
	switch lang {
	case LangIndonesian:
		return "Saya asisten AI untuk urusan bisnis di Indonesia: visa dan izin tinggal, pendirian perusahaan, pajak, dan harga layanan. Jawaban saya didasarkan pada dokumen resmi yang sudah diverifikasi."
	case LangItalian:
		return "Sono l'assistente AI per le pratiche aziendali in Indonesia: visti e permessi di soggiorno, costituzione di società, tasse e prezzi dei servizi. Le mie risposte si basano su documenti ufficiali verificati."
	default:
		return "I'm the AI assistant for doing business in Indonesia: visas and stay permits, company formation, taxation, and service pricing. My answers are grounded in verified official documents."
	}
}

func userIdentityReply(lang Language, userCtx *models.UserContext) string {
	if userCtx == nil || (userCtx.Profile == nil && len(userCtx.Facts) == 0) {
		switch lang {
		case LangIndonesian:
			return "Kita belum pernah berkenalan — saya belum menyimpan informasi tentang Anda. Ceritakan sedikit tentang diri Anda dan kebutuhan Anda!"
		default:
			return "We haven't been introduced yet — I don't have any stored information about you. Tell me a bit about yourself and what you need!"
		}
	}

	var parts []string
	if userCtx.Profile != nil && userCtx.Profile.Name != "" {
		parts = append(parts, fmt.Sprintf("You're %s", userCtx.Profile.Name))
		if userCtx.Profile.Role != "" {
			parts[len(parts)-1] += fmt.Sprintf(" (%s)", userCtx.Profile.Role)
		}
	}
	limit := 3
	for _, f := range userCtx.Facts {
		if limit == 0 {
			break
		}
		parts = append(parts, f.Content)
		limit--
	}
	return "Here's what I know about you: " + strings.Join(parts, ". ") + "."
}

func companyReply(lang Language) string {
	switch lang {
	case LangIndonesian:
		return "Kami membantu orang asing berbisnis dan tinggal di Indonesia: pengurusan visa dan izin tinggal, pendirian PT PMA, perizinan OSS, kepatuhan pajak, dan pendampingan legal."
	case LangItalian:
		return "Aiutiamo gli stranieri a fare impresa e vivere in Indonesia: visti e permessi di soggiorno, costituzione di PT PMA, licenze OSS, adempimenti fiscali e assistenza legale."
	default:
		return "We help foreigners do business and live in Indonesia: visa and stay-permit processing, PT PMA company formation, OSS licensing, tax compliance, and legal support."
	}
}

func outOfDomainRefusal(lang Language, reason string) string {
	switch reason {
	case "medical":
		switch lang {
		case LangIndonesian:
			return "Maaf, saya tidak bisa memberikan saran medis. Untuk masalah kesehatan, silakan konsultasi dengan dokter atau fasilitas kesehatan terdekat."
		case LangItalian:
			return "Mi dispiace, non posso fornire consigli medici. Per questioni di salute rivolgiti a un medico o alla struttura sanitaria più vicina."
		default:
			return "I'm sorry, I can't give medical advice. For health concerns, please consult a doctor or your nearest medical facility."
		}
	default:
		switch lang {
		case LangIndonesian:
			return "Maaf, pertanyaan itu di luar bidang saya. Saya membantu soal visa, perusahaan, pajak, dan layanan kami."
		case LangItalian:
			return "Mi dispiace, questa domanda è fuori dal mio ambito. Mi occupo di visti, società, tasse e dei nostri servizi."
		default:
			return "I'm sorry, that question is outside my area. I help with visas, company setup, taxes, and our services."
		}
	}
}
