package outline

import (
	"strings"
	"unicode/utf8"
)

const (
	matchMinWordLength = 4
	matchMinOverlap    = 0.5
)

// MatchHeading finds the title a generated heading refers to. A title matches
// when either string contains the other (case-insensitive) or when at least
// half of the title's significant words (longer than three characters) occur
// in the heading. The first matching title wins; ok is false when none does.
func MatchHeading(heading string, titles []string) (index int, ok bool) {
	h := dedupeKey(heading)
	if h == "" {
		return -1, false
	}
	headingWords := significantWords(h)
	for i, title := range titles {
		t := dedupeKey(title)
		if t == "" {
			continue
		}
		if strings.Contains(h, t) || strings.Contains(t, h) {
			return i, true
		}
		if wordOverlap(significantWords(t), headingWords) >= matchMinOverlap {
			return i, true
		}
	}
	return -1, false
}

func significantWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, word := range strings.Fields(text) {
		if utf8.RuneCountInString(word) >= matchMinWordLength {
			words[word] = struct{}{}
		}
	}
	return words
}

func wordOverlap(titleWords, headingWords map[string]struct{}) float64 {
	if len(titleWords) == 0 {
		return 0
	}
	shared := 0
	for word := range titleWords {
		if _, ok := headingWords[word]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(titleWords))
}
