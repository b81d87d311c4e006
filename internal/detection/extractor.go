package detection

import (
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/mikey/meeting-auditor/internal/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	absoluteDatePattern = regexp.MustCompile(`\b\d{1,2}[./-]\d{1,2}[./-]\d{2,4}\b`)

	datePatterns = []*regexp.Regexp{
		absoluteDatePattern,
		regexp.MustCompile(`(?i)\b(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
		regexp.MustCompile(`יום\s+(?:ראשון|שני|שלישי|רביעי|חמישי|שישי)|שבת`),
		regexp.MustCompile(`(?i)\b(?:day after tomorrow|today|tomorrow)\b|מחרתיים|היום|מחר`),
	}

	// Each pattern's first capture group (when present) is the token.
	timePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bat\s+(\d{1,2}(?::[0-5]\d)?(?:\s*[ap]m)?)\b`),
		regexp.MustCompile(`(?:בשעה|ב-|ב)\s*(\d{1,2}(?::[0-5]\d)?)\b`),
		regexp.MustCompile(`(?i)\b((?:[01]?\d|2[0-3]):[0-5]\d(?:\s*[ap]m)?)`),
		regexp.MustCompile(`(?i)\b((?:1[0-2]|0?[1-9])\s*[ap]m)\b`),
		regexp.MustCompile(`(?i)\b(morning|noon|afternoon|evening|tonight)\b|(בוקר|אחר הצהריים|אחה"צ|צהריים|ערב)`),
	}

	withNamePattern   = regexp.MustCompile(`\b[Ww]ith\s+(\p{Lu}\p{Ll}+(?:\s+\p{Lu}\p{Ll}+)?)`)
	hebrewNamePattern = regexp.MustCompile(`(?:^|\s)עם\s+(\p{Hebrew}{2,})`)
	namePairPattern   = regexp.MustCompile(`(?:^|[^\p{L}])(\p{Lu}\p{Ll}+\s+\p{Lu}\p{Ll}+)`)
	hebrewWordPattern = regexp.MustCompile(`^\p{Hebrew}{2,}$`)

	whitespace = regexp.MustCompile(`\s+`)
)

// nameStopWords are capitalised words that start a pair but are not names
var nameStopWords = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
	"january": true, "february": true, "march": true, "april": true, "may": true,
	"june": true, "july": true, "august": true, "september": true,
	"october": true, "november": true, "december": true,
	"the": true, "hi": true, "hey": true, "hello": true, "see": true, "good": true,
	"thanks": true, "please": true, "ok": true, "okay": true,
}

// hebrewStopWords are common words that never start or end a Hebrew name
// pair: pronouns, particles, time words and meeting vocabulary
var hebrewStopWords = toLookup(
	"אני", "אתה", "את", "אתם", "אנחנו", "הוא", "היא", "הם", "הן",
	"עם", "של", "על", "אל", "זה", "זאת", "לא", "כן", "יש", "אין", "מה", "מי",
	"איפה", "מתי", "גם", "רק", "כל", "אבל", "או", "כי", "אם", "עוד", "כבר", "אז",
	"היום", "מחר", "מחרתיים", "יום", "ראשון", "שני", "שלישי", "רביעי", "חמישי", "שישי", "שבת",
	"בוקר", "בבוקר", "צהריים", "בצהריים", "ערב", "בערב", "הערב", "שעה", "בשעה", "אחר", "הצהריים",
	"פגישה", "פגישת", "נפגש", "נפגשים", "להיפגש", "ניפגש", "שיחה", "זום", "קפה", "ארוחת",
	"ראיון", "תור", "נדבר", "בוא", "בואו", "נתראה", "תודה", "שלום", "היי", "טוב", "אוקיי",
)

// Extractor pulls keyword, date, time and name signals out of message text
type Extractor struct {
	keywords []keyword
}

type keyword struct {
	text   string
	folded string
}

// NewExtractor creates an extractor for the configured keyword lists
func NewExtractor(cfg Config) *Extractor {
	lists := cfg.Keywords
	if len(lists) == 0 {
		lists = DefaultKeywords()
	}

	// Sort languages so keyword order is stable across runs
	langs := make([]string, 0, len(lists))
	for lang := range lists {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	fold := cases.Fold()
	seen := make(map[string]bool)
	var keywords []keyword
	for _, lang := range langs {
		for _, kw := range lists[lang] {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			folded := fold.String(norm.NFC.String(kw))
			if seen[folded] {
				continue
			}
			seen[folded] = true
			keywords = append(keywords, keyword{text: strings.ToLower(kw), folded: folded})
		}
	}

	return &Extractor{keywords: keywords}
}

// Extract builds an unscored candidate from a message. It returns false
// when no keyword matches.
func (e *Extractor) Extract(msg core.Message) (*core.Candidate, bool) {
	text := norm.NFC.String(msg.Text)

	keywords := e.MatchKeywords(text)
	if len(keywords) == 0 {
		return nil, false
	}

	return &core.Candidate{
		ID:                  CandidateID(msg),
		SourceMessageID:     msg.ID,
		ChatID:              msg.ChatID,
		SenderName:          msg.SenderName,
		Timestamp:           msg.Timestamp,
		RawText:             msg.Text,
		Keywords:            keywords,
		CandidateDateTokens: ExtractDates(text),
		CandidateTimeTokens: ExtractTimes(text),
		CandidateNames:      ExtractNames(text),
	}, true
}

// MatchKeywords returns every configured keyword contained in text
func (e *Extractor) MatchKeywords(text string) []string {
	folded := cases.Fold().String(norm.NFC.String(text))

	var matched []string
	for _, kw := range e.keywords {
		if strings.Contains(folded, kw.folded) {
			matched = append(matched, kw.text)
		}
	}
	return toSet(matched)
}

// CandidateID derives a stable id from the chat and message ids
func CandidateID(msg core.Message) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(msg.ChatID+"/"+msg.ID)).String()
}

// ExtractDates returns the set of date-like tokens in text
func ExtractDates(text string) []string {
	var tokens []string
	for _, p := range datePatterns {
		for _, m := range p.FindAllString(text, -1) {
			tokens = append(tokens, normalizeToken(m))
		}
	}
	return toSet(tokens)
}

// ExtractTimes returns the set of time-like tokens in text. Absolute dates
// are blanked first so their digits are not read as hours.
func ExtractTimes(text string) []string {
	masked := absoluteDatePattern.ReplaceAllStringFunc(text, func(s string) string {
		return strings.Repeat(" ", len(s))
	})

	var tokens []string
	var taken [][2]int
	for _, p := range timePatterns {
		for _, idx := range p.FindAllStringSubmatchIndex(masked, -1) {
			start, end := firstGroup(idx)
			if start < 0 || overlaps(taken, start, end) {
				continue
			}
			taken = append(taken, [2]int{start, end})
			tokens = append(tokens, normalizeToken(masked[start:end]))
		}
	}
	return toSet(tokens)
}

// ExtractNames returns likely person names using the "with" prefix,
// capitalised-pair and Hebrew word-pair heuristics.
func ExtractNames(text string) []string {
	var names []string
	for _, m := range withNamePattern.FindAllStringSubmatch(text, -1) {
		names = append(names, m[1])
	}
	for _, m := range hebrewNamePattern.FindAllStringSubmatch(text, -1) {
		names = append(names, m[1])
	}
	for _, m := range namePairPattern.FindAllStringSubmatch(text, -1) {
		first := strings.Fields(m[1])[0]
		if nameStopWords[strings.ToLower(first)] {
			continue
		}
		names = append(names, m[1])
	}
	names = append(names, hebrewNamePairs(text)...)

	for i, n := range names {
		names[i] = whitespace.ReplaceAllString(strings.TrimSpace(n), " ")
	}
	return toSet(names)
}

// hebrewNamePairs is the caseless-script counterpart of the capitalised
// pair rule: a run of exactly two consecutive Hebrew words outside the
// stop list. Longer runs are ordinary prose and yield nothing.
func hebrewNamePairs(text string) []string {
	var pairs, run []string
	flush := func() {
		if len(run) == 2 {
			pairs = append(pairs, run[0]+" "+run[1])
		}
		run = run[:0]
	}

	for _, field := range strings.Fields(text) {
		word := strings.TrimRight(field, ".,!?:;")
		if !hebrewWordPattern.MatchString(word) || hebrewStopWords[word] {
			flush()
			continue
		}
		run = append(run, word)
		if word != field {
			// punctuation ends the run
			flush()
		}
	}
	flush()
	return pairs
}

func toLookup(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// firstGroup returns the span of the first participating capture group,
// or the whole match when the pattern has none
func firstGroup(idx []int) (int, int) {
	for g := 2; g+1 < len(idx); g += 2 {
		if idx[g] >= 0 {
			return idx[g], idx[g+1]
		}
	}
	return idx[0], idx[1]
}

func overlaps(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && s[0] < end {
			return true
		}
	}
	return false
}

func normalizeToken(s string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// toSet deduplicates and sorts values
func toSet(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
