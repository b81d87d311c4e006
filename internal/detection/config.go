// Package detection turns raw chat text into meeting candidates.
//
// Extraction is pattern based and deliberately loose: keywords are matched
// as case-folded substrings so that inflected forms in morphologically rich
// languages still count. Precision is recovered later by the confidence
// threshold and the optional semantic judge.
package detection

// Config holds the keyword lists and pruning threshold for detection.
type Config struct {
	// Keywords maps a language tag to its meeting keywords.
	Keywords map[string][]string

	// MinConfidence discards candidates scoring below it.
	MinConfidence float64

	// Weights overrides the canonical scoring table when non-zero.
	Weights Weights
}

// DefaultConfig returns the English and Hebrew keyword lists with the default threshold.
func DefaultConfig() Config {
	return Config{
		Keywords:      DefaultKeywords(),
		MinConfidence: 0.2,
		Weights:       DefaultWeights(),
	}
}

// DefaultKeywords returns the built-in keyword lists.
func DefaultKeywords() map[string][]string {
	return map[string][]string{
		"en": {
			"meet", "meeting", "appointment", "call", "zoom", "schedule",
			"coffee", "lunch", "dinner", "interview", "catch up", "sync",
		},
		"he": {
			"פגישה", "פגישת", "נפגש", "להיפגש", "ניפגש", "שיחה", "זום",
			"קפה", "ארוחת", "ראיון", "תור", "נדבר",
		},
	}
}
