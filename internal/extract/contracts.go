package extract

import (
	"time"
)

// Word is one recognized token. Confidence is on the 0..1 scale.
type Word struct {
	Text       string
	Confidence float64
}

// Recognition is what a recognition engine hands to field extraction.
// Words is nil for engines that only return plain text.
type Recognition struct {
	Text       string
	Words      []Word
	Pages      int
	SourceType string // "PDF" | "IMAGE"
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
}
