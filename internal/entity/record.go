package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/rod-records/constants"
	"github.com/joseph-ayodele/rod-records/internal/extract"
)

// Record is one processed license scan for data transfer between layers.
type Record struct {
	ID          uuid.UUID              `json:"id"`
	SourcePath  string                 `json:"source_path"`
	Filename    string                 `json:"filename"`
	ContentHash string                 `json:"content_hash"`
	Format      string                 `json:"format"`
	Status      constants.RecordStatus `json:"status"`
	Result      extract.Result         `json:"result"`
	DurationMs  int64                  `json:"duration_ms"`
	CreatedAt   time.Time              `json:"created_at"`
}

// StatusOf derives the stored status from an extraction result.
func StatusOf(r extract.Result) constants.RecordStatus {
	switch {
	case r.Error != "":
		return constants.RecordStatusFailed
	case r.NeedsVerification:
		return constants.RecordStatusNeedsReview
	default:
		return constants.RecordStatusOK
	}
}
