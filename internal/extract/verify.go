package extract

import (
	"github.com/joseph-ayodele/rod-records/constants"
)

// NeedsVerification is true iff any field is empty or below threshold.
// Low confidence is data, never an error.
func NeedsVerification(fs FieldSet, threshold float64) bool {
	for _, n := range constants.AllFields {
		f := fs.Get(n)
		if f.Empty() || f.Confidence < threshold {
			return true
		}
	}
	return false
}

// MinConfidence returns the lowest confidence across all four fields.
func MinConfidence(fs FieldSet) float64 {
	lowest := 1.0
	for _, n := range constants.AllFields {
		if c := fs.Get(n).Confidence; c < lowest {
			lowest = c
		}
	}
	return lowest
}

// LowFields lists the fields that are empty or below threshold, in schema order.
func LowFields(fs FieldSet, threshold float64) []constants.FieldName {
	var out []constants.FieldName
	for _, n := range constants.AllFields {
		f := fs.Get(n)
		if f.Empty() || f.Confidence < threshold {
			out = append(out, n)
		}
	}
	return out
}

// Build resolves text into a Result and applies the verification threshold.
// text should already be normalized.
func (r *Resolver) Build(text string, words []Word, threshold float64) Result {
	fs := r.Resolve(text, NewConfidenceIndex(words))
	return Result{
		RawText:           text,
		Fields:            fs,
		NeedsVerification: NeedsVerification(fs, threshold),
		Warnings:          []string{},
	}
}
