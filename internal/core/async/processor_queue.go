package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/rod-records/internal/common"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

type ProcessorQueue struct {
	proc    FileProcessor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	limiter *rate.Limiter

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithRateLimit caps how many documents start per second across all
// workers. perSecond <= 0 disables the limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(q *ProcessorQueue) {
		if perSecond <= 0 {
			q.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		q.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithOptionsFrom applies the queue section of the application config.
func WithOptionsFrom(c common.QueueConfig) []Option {
	return []Option{
		WithWorkers(c.Workers),
		WithQueueSize(c.Size),
		WithProcessTimeout(c.ProcessTimeout),
		WithRateLimit(c.RatePerSecond, c.Burst),
	}
}

func NewProcessorQueue(proc FileProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}

	out := Outcome{Path: job.Path, TraceID: job.TraceID}
	if q.limiter != nil {
		if err := q.limiter.Wait(ctx); err != nil {
			out.Err = err
			q.reply(job, out)
			return
		}
	}

	out.Record, out.Cached, out.Err = q.proc.Process(ctx, job.Path, job.Force)
	if out.Err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "error", out.Err)
	} else {
		q.logger.Info("processed file", "worker_id", workerID, "path", job.Path,
			"cached", out.Cached, "wait_ms", time.Since(job.SubmittedAt).Milliseconds())
	}
	q.reply(job, out)
}

func (q *ProcessorQueue) reply(job Job, out Outcome) {
	if job.Reply != nil {
		job.Reply <- out
	}
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued file for processing", "path", job.Path, "force", job.Force)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessAll enqueues every path and waits for all outcomes, returned in
// input order.
func (q *ProcessorQueue) ProcessAll(ctx context.Context, paths []string, force bool) []Outcome {
	replies := make(chan Outcome, len(paths))
	index := make(map[string][]int, len(paths))
	outcomes := make([]Outcome, len(paths))
	pending := 0
	for i, p := range paths {
		index[p] = append(index[p], i)
		if err := q.Enqueue(ctx, Job{Path: p, Force: force, Reply: replies}); err != nil {
			outcomes[i] = Outcome{Path: p, Err: err}
			index[p] = index[p][:len(index[p])-1]
			continue
		}
		pending++
	}
	for ; pending > 0; pending-- {
		out := <-replies
		slots := index[out.Path]
		outcomes[slots[0]] = out
		index[out.Path] = slots[1:]
	}
	return outcomes
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
