package constants

// RecordStatus is the canonical status for rows in extraction_records.
type RecordStatus string

// Stable values (store these exact strings in DB).
const (
	RecordStatusOK          RecordStatus = "OK"           // all fields trusted
	RecordStatusNeedsReview RecordStatus = "NEEDS_REVIEW" // a human must verify the fields
	RecordStatusFailed      RecordStatus = "FAILED"       // source unreadable or fast engine failed
)

// Engine names recorded on results.
const (
	EnginePDFText     = "pdf-text"
	EngineFastOCR     = "tesseract"
	EngineHandwriting = "trocr"
)
