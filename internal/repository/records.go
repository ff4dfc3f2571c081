package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/rod-records/constants"
	"github.com/joseph-ayodele/rod-records/internal/common"
	"github.com/joseph-ayodele/rod-records/internal/entity"
	"github.com/joseph-ayodele/rod-records/internal/extract"
)

type RecordRepository interface {
	Create(ctx context.Context, rec *entity.Record) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Record, error)
	// FindByHash returns the newest record for a content hash.
	FindByHash(ctx context.Context, hash string) (*entity.Record, error)
	ListNeedingVerification(ctx context.Context, limit int) ([]*entity.Record, error)
	List(ctx context.Context, limit int) ([]*entity.Record, error)
}

type recordRepo struct {
	db  *DB
	log *slog.Logger
}

func NewRecordRepository(db *DB, log *slog.Logger) RecordRepository {
	if log == nil {
		log = slog.Default()
	}
	return &recordRepo{db: db, log: log}
}

var selectColumns = func() []string {
	out := make([]string, len(recordColumns))
	for i, c := range recordColumns {
		out[i] = c.Name
	}
	return out
}()

func (r *recordRepo) Create(ctx context.Context, rec *entity.Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	warnings, err := json.Marshal(nonNil(rec.Result.Warnings))
	if err != nil {
		return fmt.Errorf("encoding warnings: %w", err)
	}
	fs := rec.Result.Fields
	query, args := entsql.Dialect(r.db.Dialect()).
		Insert(recordsTableName).
		Columns(selectColumns...).
		Values(
			rec.ID.String(), rec.SourcePath, rec.Filename, rec.ContentHash, rec.Format,
			string(rec.Status), rec.Result.Engine, rec.Result.RawText,
			fs.Identifier.Value, fs.Identifier.Confidence,
			fs.PartyA.Value, fs.PartyA.Confidence,
			fs.PartyB.Value, fs.PartyB.Confidence,
			fs.Date.Value, fs.Date.Confidence,
			rec.Result.NeedsVerification, string(warnings), rec.Result.Error,
			rec.DurationMs, rec.CreatedAt.UTC(),
		).
		Query()
	if err := r.db.Driver().Exec(ctx, query, args, nil); err != nil {
		r.log.Error("record insert failed", "record_id", rec.ID, "err", err)
		return fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	r.log.Info("record stored", "record_id", rec.ID, "status", rec.Status, "engine", rec.Result.Engine)
	return nil
}

func (r *recordRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Record, error) {
	recs, err := r.query(ctx, func(s *entsql.Selector) {
		s.Where(entsql.EQ("id", id.String())).Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, common.NewAppError(common.CodeNotFound, "record "+id.String(), common.ErrNotFound)
	}
	return recs[0], nil
}

func (r *recordRepo) FindByHash(ctx context.Context, hash string) (*entity.Record, error) {
	recs, err := r.query(ctx, func(s *entsql.Selector) {
		s.Where(entsql.EQ("content_hash", hash)).OrderBy(entsql.Desc("created_at")).Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, common.NewAppError(common.CodeNotFound, "record with hash "+hash, common.ErrNotFound)
	}
	return recs[0], nil
}

func (r *recordRepo) ListNeedingVerification(ctx context.Context, limit int) ([]*entity.Record, error) {
	return r.query(ctx, func(s *entsql.Selector) {
		s.Where(entsql.EQ("needs_verification", true)).OrderBy(entsql.Desc("created_at"))
		if limit > 0 {
			s.Limit(limit)
		}
	})
}

func (r *recordRepo) List(ctx context.Context, limit int) ([]*entity.Record, error) {
	return r.query(ctx, func(s *entsql.Selector) {
		s.OrderBy(entsql.Desc("created_at"))
		if limit > 0 {
			s.Limit(limit)
		}
	})
}

func (r *recordRepo) query(ctx context.Context, where func(*entsql.Selector)) ([]*entity.Record, error) {
	sel := entsql.Dialect(r.db.Dialect()).
		Select(selectColumns...).
		From(entsql.Table(recordsTableName))
	where(sel)
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.db.Driver().Query(ctx, query, args, &rows); err != nil {
		r.log.Error("record query failed", "err", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Record
	for rows.Next() {
		rec, err := scanRecord(&rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return out, nil
}

func scanRecord(rows *entsql.Rows) (*entity.Record, error) {
	var (
		rec      entity.Record
		id       string
		status   string
		warnings string
		fs       extract.FieldSet
	)
	err := rows.Scan(
		&id, &rec.SourcePath, &rec.Filename, &rec.ContentHash, &rec.Format,
		&status, &rec.Result.Engine, &rec.Result.RawText,
		&fs.Identifier.Value, &fs.Identifier.Confidence,
		&fs.PartyA.Value, &fs.PartyA.Confidence,
		&fs.PartyB.Value, &fs.PartyB.Confidence,
		&fs.Date.Value, &fs.Date.Confidence,
		&rec.Result.NeedsVerification, &warnings, &rec.Result.Error,
		&rec.DurationMs, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("record id %q: %w", id, err)
	}
	rec.Status = constants.RecordStatus(status)
	rec.Result.Fields = fs
	rec.Result.Warnings = []string{}
	if warnings != "" {
		if err := json.Unmarshal([]byte(warnings), &rec.Result.Warnings); err != nil {
			return nil, fmt.Errorf("record %s warnings: %w", id, err)
		}
	}
	return &rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// IsNotFound reports whether err came from a lookup that matched nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
