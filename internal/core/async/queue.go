package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/rod-records/internal/entity"
)

// Job is one document to process.
type Job struct {
	Path        string
	Force       bool // reprocess even if the content was seen before
	SubmittedAt time.Time
	TraceID     string
	// Reply, when set, receives exactly one Outcome. It must be buffered or
	// drained, otherwise the worker blocks.
	Reply chan<- Outcome
}

// Outcome is the result of one Job.
type Outcome struct {
	Path    string
	Record  *entity.Record
	Cached  bool
	Err     error
	TraceID string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// FileProcessor is what the workers call. *core.Processor implements it.
type FileProcessor interface {
	Process(ctx context.Context, path string, force bool) (*entity.Record, bool, error)
}
