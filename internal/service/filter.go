package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// FilterConfig holds the tunable policy of the relevance filter. The lexicons
// are data, not control flow, so they can be adjusted without code changes.
type FilterConfig struct {
	MinLength        int
	MaxLength        int
	NoisePhrases     []string
	QuestionStarters []string
	FeedbackSignals  []string
	ConfusionSignals []string
}

// DefaultFilterConfig returns the stock relevance policy.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		MinLength: 15,
		MaxLength: 1000,
		NoisePhrases: []string{
			"first", "nice", "great", "love it", "good video",
			"awesome", "cool", "thanks", "thank you",
		},
		QuestionStarters: []string{
			"how", "why", "what", "when", "where", "who", "which",
			"can", "could", "would", "should", "is", "are",
			"does", "do", "did", "will",
			"won't", "can't", "doesn't", "isn't", "aren't",
		},
		FeedbackSignals: []string{
			"wish", "hope", "please", "love", "hate",
			"add", "fix", "change", "stop", "start", "more of",
			"would be great", "suggestion", "request",
		},
		ConfusionSignals: []string{
			"doesn't work", "not working", "won't work", "can't get",
			"stuck", "error", "failed", "problem", "issue", "help",
			"confused", "don't understand", "unclear", "not sure",
			"wondering", "anyone know",
		},
	}
}

// RelevanceFilter classifies raw comments as worth downstream processing.
// It runs before any embedding work to keep provider costs down.
type RelevanceFilter struct {
	cfg *FilterConfig
}

// NewRelevanceFilter creates a RelevanceFilter with the given policy.
// A nil config uses DefaultFilterConfig.
func NewRelevanceFilter(cfg *FilterConfig) *RelevanceFilter {
	if cfg == nil {
		cfg = DefaultFilterConfig()
	}
	return &RelevanceFilter{cfg: cfg}
}

// IsRelevant reports whether a comment should be kept for analysis.
// Spam rejection runs before any acceptance check, so a spammy link that
// happens to contain a question mark is still rejected.
func (f *RelevanceFilter) IsRelevant(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))

	length := utf8.RuneCountInString(normalized)
	if length < f.cfg.MinLength || length > f.cfg.MaxLength {
		return false
	}

	if f.isSpam(normalized) {
		return false
	}

	if strings.Contains(text, "?") {
		return true
	}

	for _, starter := range f.cfg.QuestionStarters {
		if strings.HasPrefix(normalized, starter+" ") {
			return true
		}
	}

	for _, signal := range f.cfg.FeedbackSignals {
		if strings.Contains(normalized, signal) {
			return true
		}
	}
	for _, signal := range f.cfg.ConfusionSignals {
		if strings.Contains(normalized, signal) {
			return true
		}
	}

	return false
}

// IsQuestion reports whether a comment reads as a question. Used by the
// channel profile scorer, not by the relevance gate.
func (f *RelevanceFilter) IsQuestion(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, starter := range f.cfg.QuestionStarters {
		if strings.HasPrefix(normalized, starter+" ") {
			return true
		}
	}
	return false
}

func (f *RelevanceFilter) isSpam(normalized string) bool {
	if strings.Contains(normalized, "http") || strings.Contains(normalized, ".com") {
		return true
	}

	if isTimestampOnly(normalized) {
		return true
	}

	for _, phrase := range f.cfg.NoisePhrases {
		if normalized == phrase {
			return true
		}
	}

	if isSymbolOnly(normalized) {
		return true
	}

	return false
}

// isTimestampOnly matches strings like "12:34" or "1:02:33 2:50" that carry
// no text beyond video timestamps.
func isTimestampOnly(s string) bool {
	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == ':' || unicode.IsSpace(r):
		default:
			return false
		}
	}
	return hasDigit
}

// isSymbolOnly matches strings with no letters or digits at all, which
// covers emoji-only and punctuation-only comments.
func isSymbolOnly(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
