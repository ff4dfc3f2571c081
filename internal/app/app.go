// Package app wires configuration into the running components shared by
// the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/rod-records/internal/cache"
	"github.com/joseph-ayodele/rod-records/internal/cascade"
	"github.com/joseph-ayodele/rod-records/internal/common"
	"github.com/joseph-ayodele/rod-records/internal/core"
	"github.com/joseph-ayodele/rod-records/internal/core/async"
	"github.com/joseph-ayodele/rod-records/internal/core/ocr"
	"github.com/joseph-ayodele/rod-records/internal/export"
	"github.com/joseph-ayodele/rod-records/internal/handwriting"
	"github.com/joseph-ayodele/rod-records/internal/ingest"
	"github.com/joseph-ayodele/rod-records/internal/pdftext"
	"github.com/joseph-ayodele/rod-records/internal/repository"
)

// Options adjusts wiring for one invocation.
type Options struct {
	// NoStore skips the database; records are neither persisted nor deduplicated across runs.
	NoStore bool
	// Runner overrides the process runner for every engine.
	Runner ocr.Runner
}

type App struct {
	Config       *common.Config
	Logger       *slog.Logger
	DB           *repository.DB          // nil with NoStore
	Handwriting  *handwriting.Subprocess // nil when disabled
	Orchestrator *cascade.Orchestrator
	Processor    *core.Processor
	Queue        *async.ProcessorQueue
	Ingestor     *ingest.FSIngestor
	Exporter     *export.Service
}

// New builds every component from cfg. Close releases them.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	runner := opts.Runner
	if runner == nil {
		runner = ocr.ExecRunner{}
	}

	if cfg.OCR.ArtifactCacheDir != "" {
		if err := os.MkdirAll(cfg.OCR.ArtifactCacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("artifact cache dir: %w", err)
		}
	}

	fast, err := newFastEngine(cfg.OCR, runner, logger)
	if err != nil {
		return nil, err
	}
	pdf := pdftext.NewReader(pdftext.Config{Pdftotext: cfg.OCR.PdftotextBin, MaxPages: cfg.OCR.MaxPages}, runner, logger)

	var hw handwriting.Engine
	if cfg.Handwriting.Enabled {
		a.Handwriting = handwriting.NewSubprocess(handwriting.ConfigFrom(cfg.Handwriting, cfg.OCR), runner, logger)
		hw = a.Handwriting
	}

	cascadeOpts, err := cascade.OptionsFrom(cfg.Cascade)
	if err != nil {
		return nil, err
	}
	a.Orchestrator = cascade.New(fast, pdf, hw, cascadeOpts, logger)

	var records repository.RecordRepository
	if !opts.NoStore {
		db, err := repository.Open(ctx, repository.ConfigFrom(cfg.Database), logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		a.DB = db
		records = repository.NewRecordRepository(db, logger)
	}

	results := cache.NewResultCache(cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	a.Processor = core.NewProcessor(logger, a.Orchestrator, records, results)
	a.Queue = async.NewProcessorQueue(a.Processor, logger, async.WithOptionsFrom(cfg.Queue)...)
	a.Ingestor = ingest.NewFSIngestor(a.Queue, logger)
	a.Exporter = export.NewService(a.Processor, logger)
	return a, nil
}

func newFastEngine(c common.OCRConfig, runner ocr.Runner, logger *slog.Logger) (ocr.FastEngine, error) {
	cfg := ocr.ConfigFrom(c)
	switch c.Backend {
	case "gosseract":
		e, err := ocr.NewGosseractEngine(cfg, runner, logger)
		if err != nil {
			return nil, common.NewAppError(common.CodeConfig, "ocr.backend", err)
		}
		return e, nil
	default:
		return ocr.NewTesseractEngine(cfg, runner, logger), nil
	}
}

// Close drains the queue and closes the database.
func (a *App) Close(ctx context.Context) {
	if a.Queue != nil {
		a.Queue.Shutdown(ctx)
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
