package handwriting

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/rod-records/internal/extract"
)

var domainWords = []string{"marriage", "license", "application", "affidavit"}

// TextConfidence estimates a 0..1 score for text from a recognizer that
// reports no token confidences.
func TextConfidence(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	n := utf8.RuneCountInString(text)
	c := 0.5
	if n > 10 {
		c += 0.1
	}
	if n > 50 {
		c += 0.1
	}
	lower := strings.ToLower(text)
	for _, w := range domainWords {
		if strings.Contains(lower, w) {
			c += 0.2
			break
		}
	}
	if strings.ContainsFunc(text, unicode.IsDigit) {
		c += 0.1
	}
	if strings.ContainsFunc(text, unicode.IsUpper) {
		c += 0.1
	}
	if n < 5 {
		c -= 0.2
	}
	words := strings.Fields(text)
	if len(words) > 5 && distinct(words) < 3 {
		c -= 0.1
	}
	return extract.Clamp(c)
}

func distinct(words []string) int {
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	return len(seen)
}
