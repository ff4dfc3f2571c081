package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/rod-records/internal/core/async"
)

// BatchProcessor runs many documents and returns outcomes in input order.
// *async.ProcessorQueue implements it.
type BatchProcessor interface {
	ProcessAll(ctx context.Context, paths []string, force bool) []async.Outcome
}

// FSIngestor reads from the local filesystem.
type FSIngestor struct {
	Batch  BatchProcessor
	Logger *slog.Logger
}

func NewFSIngestor(batch BatchProcessor, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Batch: batch, Logger: logger}
}

// Walk lists the matching files under root in lexical order. Unreadable
// entries become FileResults carrying the error.
func Walk(root string, opts Options) ([]string, []FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root_path is required")
	}
	exts := extSet(opts.Exts)

	var (
		paths  []string
		failed []FileResult
		stats  DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Scanned++
			failed = append(failed, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if path != root && opts.SkipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if _, ok := exts[ext]; !ok {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, failed, stats, fmt.Errorf("walk: %w", err)
	}
	return paths, failed, stats, nil
}

// IngestDirectory walks root and processes every matching file through the
// batch processor. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, opts Options) ([]FileResult, DirStats, error) {
	paths, results, stats, err := Walk(root, opts)
	if err != nil {
		return results, stats, err
	}
	i.Logger.Info("batch discovered files", "root", root, "scanned", stats.Scanned, "matched", stats.Matched)

	for _, out := range i.Batch.ProcessAll(ctx, paths, opts.Force) {
		fr := FileResult{Path: out.Path, Deduplicated: out.Cached}
		switch {
		case out.Err != nil:
			fr.Err = out.Err.Error()
			stats.Failed++
		case out.Record != nil:
			fr.Record = out.Record
			fr.RecordID = out.Record.ID
			fr.HashHex = out.Record.ContentHash
			fr.Status = string(out.Record.Status)
			fr.NeedsVerification = out.Record.Result.NeedsVerification
			fr.Err = out.Record.Result.Error
			if fr.Err != "" {
				stats.Failed++
				break
			}
			stats.Succeeded++
			if out.Cached {
				stats.Deduplicated++
			}
			if fr.NeedsVerification {
				stats.NeedsVerification++
			}
		}
		results = append(results, fr)
	}

	i.Logger.Info("batch finished", "root", root,
		"succeeded", stats.Succeeded, "failed", stats.Failed,
		"deduplicated", stats.Deduplicated, "needs_verification", stats.NeedsVerification)
	return results, stats, nil
}
