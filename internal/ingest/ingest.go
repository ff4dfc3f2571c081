// Package ingest discovers license scans on disk and hands them to the
// batch processor.
package ingest

import (
	"context"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/rod-records/internal/entity"
)

// FileResult is the per-file batch outcome.
type FileResult struct {
	Path              string
	RecordID          uuid.UUID
	Deduplicated      bool
	HashHex           string
	Status            string
	NeedsVerification bool
	Err               string
	Record            *entity.Record `json:"-"`
}

// DirStats summarizes a directory batch.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	// Failed counts walk errors, processing errors and documents whose
	// extraction produced an error result.
	Failed            uint32
	NeedsVerification uint32
}

// Options controls the directory walk.
type Options struct {
	SkipHidden bool
	// Exts overrides the default extension filter; entries may carry a dot.
	Exts  []string
	Force bool
}

// Ingestor is the behavior the surfaces depend on.
type Ingestor interface {
	IngestDirectory(ctx context.Context, root string, opts Options) ([]FileResult, DirStats, error)
}
