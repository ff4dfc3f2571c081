package extract

import (
	"math"

	"github.com/joseph-ayodele/rod-records/constants"
)

// Field is one resolved value. An empty Value always carries Confidence 0.
type Field struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Empty reports whether nothing was recovered for the field.
func (f Field) Empty() bool { return f.Value == "" }

// FieldSet is the closed four-field schema.
type FieldSet struct {
	Identifier Field `json:"identifier"`
	PartyA     Field `json:"partyA"`
	PartyB     Field `json:"partyB"`
	Date       Field `json:"date"`
}

// Get returns the field stored under name; unknown names yield a zero Field.
func (fs FieldSet) Get(name constants.FieldName) Field {
	switch name {
	case constants.Identifier:
		return fs.Identifier
	case constants.PartyA:
		return fs.PartyA
	case constants.PartyB:
		return fs.PartyB
	case constants.Date:
		return fs.Date
	}
	return Field{}
}

// With returns a copy of fs with name set to f.
func (fs FieldSet) With(name constants.FieldName, f Field) FieldSet {
	f = newField(f.Value, f.Confidence)
	switch name {
	case constants.Identifier:
		fs.Identifier = f
	case constants.PartyA:
		fs.PartyA = f
	case constants.PartyB:
		fs.PartyB = f
	case constants.Date:
		fs.Date = f
	}
	return fs
}

// AnyValue reports whether at least one field is non-empty.
func (fs FieldSet) AnyValue() bool {
	for _, n := range constants.AllFields {
		if !fs.Get(n).Empty() {
			return true
		}
	}
	return false
}

// Result is the outcome of one document-processing attempt.
type Result struct {
	RawText           string   `json:"rawText"`
	Fields            FieldSet `json:"fields"`
	NeedsVerification bool     `json:"needsVerification"`
	Warnings          []string `json:"warnings"`
	Error             string   `json:"error,omitempty"`
	// Engine names the recognizer whose output produced Fields.
	Engine string `json:"engine,omitempty"`
}

// Failed builds the all-empty result returned when no engine output is usable.
func Failed(err error, warnings []string) Result {
	r := Result{NeedsVerification: true, Warnings: append([]string{}, warnings...)}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Clamp bounds c to [0,1]; NaN becomes 0.
func Clamp(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func newField(value string, conf float64) Field {
	if value == "" {
		return Field{}
	}
	return Field{Value: value, Confidence: Clamp(conf)}
}
