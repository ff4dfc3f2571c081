package cascade

import (
	"fmt"

	"github.com/joseph-ayodele/rod-records/constants"
	"github.com/joseph-ayodele/rod-records/internal/core/ocr"
	"github.com/joseph-ayodele/rod-records/internal/extract"
	"github.com/joseph-ayodele/rod-records/internal/handwriting"
)

const (
	warnSpecializedUsed     = "Processed with handwriting-specialized engine"
	warnSpecializedNoFields = "Handwriting engine returned no usable fields; keeping fast result"
)

// fromSpecialized turns handwriting output into an extraction result. ok is
// false unless the engine succeeded and produced at least one field.
// Output with text but no fields is resolved here, scored by TextConfidence.
func fromSpecialized(hw handwriting.Result, base extract.Options, threshold float64) (extract.Result, bool) {
	if !hw.Success {
		return extract.Result{}, false
	}
	text := ocr.Normalize(hw.RawText)
	fields := hw.Fields
	if !fields.AnyValue() && text != "" {
		opts := base
		opts.DefaultConfidence = handwriting.TextConfidence(text)
		fields = extract.NewResolver(opts).Resolve(text, nil)
	}
	if !fields.AnyValue() {
		return extract.Result{}, false
	}
	return extract.Result{
		RawText:           text,
		Fields:            fields,
		NeedsVerification: extract.NeedsVerification(fields, threshold),
		Warnings:          []string{},
		Engine:            constants.EngineHandwriting,
	}, true
}

// merge applies document-level precedence: a usable specialized result
// replaces the fast one in full, otherwise the fast result stands. Warnings
// from both attempts are kept in order.
func merge(fast, specialized extract.Result, usable bool, hwErr string) extract.Result {
	warnings := append([]string{}, fast.Warnings...)
	if !usable {
		msg := warnSpecializedNoFields
		if hwErr != "" {
			msg = fmt.Sprintf("Handwriting engine reported failure (%s); keeping fast result", hwErr)
		}
		out := fast
		out.Warnings = append(warnings, msg)
		return out
	}
	out := specialized
	out.Warnings = append(append(warnings, specialized.Warnings...), warnSpecializedUsed)
	return out
}
