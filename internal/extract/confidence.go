package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/rod-records/constants"
)

// ConfidenceIndex maps lowercase tokens to recognition confidence.
// It is read-only after construction and safe to share.
type ConfidenceIndex struct {
	keys []string // insertion order, for deterministic substring lookup
	conf map[string]float64
}

// NewConfidenceIndex builds an index from engine words. The first confidence
// seen for a duplicate token is kept. Returns nil when words carries no tokens.
func NewConfidenceIndex(words []Word) *ConfidenceIndex {
	idx := &ConfidenceIndex{conf: make(map[string]float64, len(words))}
	for _, w := range words {
		k := strings.ToLower(strings.TrimSpace(w.Text))
		if k == "" {
			continue
		}
		if _, seen := idx.conf[k]; seen {
			continue
		}
		idx.keys = append(idx.keys, k)
		idx.conf[k] = Clamp(w.Confidence)
	}
	if len(idx.keys) == 0 {
		return nil
	}
	return idx
}

// Len returns the number of distinct tokens.
func (ci *ConfidenceIndex) Len() int {
	if ci == nil {
		return 0
	}
	return len(ci.keys)
}

// Score averages the confidence of raw's tokens. A nil or empty index means
// the source had no word data and every candidate gets def.
func (ci *ConfidenceIndex) Score(raw string, def float64) float64 {
	if ci.Len() == 0 {
		return Clamp(def)
	}
	tokens := tokenize(raw)
	if len(tokens) == 0 {
		return Clamp(def)
	}
	var sum float64
	for _, t := range tokens {
		sum += ci.lookup(t)
	}
	return Clamp(sum / float64(len(tokens)))
}

func (ci *ConfidenceIndex) lookup(tok string) float64 {
	if c, ok := ci.conf[tok]; ok {
		return c
	}
	// single letters (initials, stray marks) would match nearly every word
	if utf8.RuneCountInString(tok) <= 1 {
		return constants.UnknownTokenConfidence
	}
	for _, k := range ci.keys {
		if utf8.RuneCountInString(k) <= 1 {
			continue
		}
		if strings.Contains(k, tok) || strings.Contains(tok, k) {
			return ci.conf[k]
		}
	}
	return constants.UnknownTokenConfidence
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, `.,;:!?"'()[]`)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
