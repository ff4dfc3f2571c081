package constants

// FieldName identifies one of the four structured values recovered from a license.
type FieldName string

const (
	Identifier FieldName = "identifier"
	PartyA     FieldName = "partyA"
	PartyB     FieldName = "partyB"
	Date       FieldName = "date"
)

// AllFields is the closed schema, in serialization order.
var AllFields = []FieldName{Identifier, PartyA, PartyB, Date}

// Confidence thresholds. Each has one purpose; do not reuse one for another.
const (
	// VerificationThreshold flags fast-path results for human review.
	VerificationThreshold = 0.8
	// SpecializedVerificationThreshold flags handwriting-engine results for review.
	SpecializedVerificationThreshold = 0.6
	// EscalationThreshold gates the handwriting engine in the cascade.
	EscalationThreshold = 0.3

	// DefaultConfidence is assigned to candidates when the source has no word-level scores.
	DefaultConfidence = 0.6
	// UnknownTokenConfidence scores tokens missing from a word-confidence index.
	UnknownTokenConfidence = 0.5

	// MinPDFTextChars is the amount of embedded text needed to skip OCR for a PDF.
	MinPDFTextChars = 20
)
