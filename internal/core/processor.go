package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/rod-records/constants"
	"github.com/joseph-ayodele/rod-records/internal/cache"
	"github.com/joseph-ayodele/rod-records/internal/common"
	"github.com/joseph-ayodele/rod-records/internal/entity"
	"github.com/joseph-ayodele/rod-records/internal/extract"
	"github.com/joseph-ayodele/rod-records/internal/repository"
)

// DocumentExtractor turns one document into an extraction result.
// *cascade.Orchestrator implements it.
type DocumentExtractor interface {
	ProcessDocument(ctx context.Context, path string) extract.Result
}

// Processor coordinates hashing, the result cache, extraction and persistence.
type Processor struct {
	logger    *slog.Logger
	extractor DocumentExtractor
	records   repository.RecordRepository
	cache     *cache.ResultCache
	now       func() time.Time
}

func NewProcessor(
	logger *slog.Logger,
	extractor DocumentExtractor,
	records repository.RecordRepository,
	results *cache.ResultCache,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:    logger,
		extractor: extractor,
		records:   records,
		cache:     results,
		now:       time.Now,
	}
}

// Process extracts fields from the document at path and stores a record.
// Unless force is set, a document whose content was already processed
// successfully is answered from the cache or the store; cached reports that.
// Unreadable documents still produce a stored record carrying the error.
func (p *Processor) Process(ctx context.Context, path string, force bool) (rec *entity.Record, cached bool, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	hash, hashErr := hashFile(abs)
	if hashErr != nil {
		p.logger.Warn("hashing source failed", "path", abs, "error", hashErr)
	} else {
		ctx = common.WithContentHash(ctx, hash)
		if !force {
			if prev, ok := p.lookup(ctx, hash); ok {
				p.logger.Info("document already processed", "path", abs, "record_id", prev.ID, "content_hash", hash)
				return prev, true, nil
			}
		}
	}

	start := p.now()
	res := p.extractor.ProcessDocument(ctx, abs)
	source, filename := abs, filepath.Base(abs)
	if name, ok := common.SourceNameFromContext(ctx); ok {
		source, filename = name, filepath.Base(name)
	}
	rec = &entity.Record{
		ID:          uuid.New(),
		SourcePath:  source,
		Filename:    filename,
		ContentHash: hash,
		Format:      constants.MapExtToFormat(filepath.Ext(abs)),
		Status:      entity.StatusOf(res),
		Result:      res,
		DurationMs:  p.now().Sub(start).Milliseconds(),
		CreatedAt:   start.UTC(),
	}

	if p.records != nil {
		if err := p.records.Create(ctx, rec); err != nil {
			p.logger.Error("processor.persist.failed", "path", abs, "err", err, "request_id", common.RequestIDFromContext(ctx))
			return rec, false, fmt.Errorf("persist record: %w", err)
		}
	}
	p.cache.Put(rec)

	p.logger.Info("processed document",
		"record_id", rec.ID,
		"path", abs,
		"status", rec.Status,
		"engine", res.Engine,
		"duration_ms", rec.DurationMs,
		"request_id", common.RequestIDFromContext(ctx),
	)
	return rec, false, nil
}

// lookup finds a prior successful record for hash, in memory first.
func (p *Processor) lookup(ctx context.Context, hash string) (*entity.Record, bool) {
	if rec, ok := p.cache.Get(hash); ok {
		return rec, true
	}
	if p.records == nil {
		return nil, false
	}
	rec, err := p.records.FindByHash(ctx, hash)
	if err != nil {
		if !repository.IsNotFound(err) {
			p.logger.Warn("record lookup by hash failed", "content_hash", hash, "error", err)
		}
		return nil, false
	}
	if rec.Status == constants.RecordStatusFailed {
		return nil, false
	}
	p.cache.Put(rec)
	return rec, true
}

// Get loads a stored record.
func (p *Processor) Get(ctx context.Context, id uuid.UUID) (*entity.Record, error) {
	if p.records == nil {
		return nil, common.NewAppError(common.CodeNotFound, "no record store configured", common.ErrNotFound)
	}
	return p.records.Get(ctx, id)
}

// ListNeedingVerification returns stored records flagged for review, newest first.
func (p *Processor) ListNeedingVerification(ctx context.Context, limit int) ([]*entity.Record, error) {
	if p.records == nil {
		return nil, nil
	}
	return p.records.ListNeedingVerification(ctx, limit)
}

// List returns stored records, newest first.
func (p *Processor) List(ctx context.Context, limit int) ([]*entity.Record, error) {
	if p.records == nil {
		return nil, nil
	}
	return p.records.List(ctx, limit)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	st, err := f.Stat()
	if err != nil {
		return "", err
	}
	if st.IsDir() {
		return "", errors.New("is a directory")
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
