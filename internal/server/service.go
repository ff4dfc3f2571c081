package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/rod-records/internal/common"
	"github.com/joseph-ayodele/rod-records/internal/entity"
	"github.com/joseph-ayodele/rod-records/internal/ingest"
)

const defaultListLimit = 100

// DocumentService is what the RPC surface needs from the processor.
type DocumentService interface {
	Process(ctx context.Context, path string, force bool) (*entity.Record, bool, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Record, error)
	ListNeedingVerification(ctx context.Context, limit int) ([]*entity.Record, error)
}

type ExtractionService struct {
	docs     DocumentService
	ingestor ingest.Ingestor // optional
	logger   *slog.Logger
}

func NewExtractionService(docs DocumentService, ing ingest.Ingestor, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{docs: docs, ingestor: ing, logger: logger}
}

// ProcessDocument expects {"path": string, "force": bool} and returns
// {"record": Record, "deduplicated": bool}.
func (s *ExtractionService) ProcessDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path := strings.TrimSpace(stringField(req, "path"))
	if path == "" {
		return nil, common.InvalidArgumentError("path is required")
	}
	rec, cached, err := s.docs.Process(ctx, path, boolField(req, "force"))
	if err != nil {
		s.logger.Error("process document failed", "path", path, "error", err)
		return nil, common.ToGRPC(err)
	}
	return toStruct(map[string]any{"record": rec, "deduplicated": cached})
}

// GetRecord expects {"id": uuid} and returns {"record": Record}.
func (s *ExtractionService) GetRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw := strings.TrimSpace(stringField(req, "id"))
	if raw == "" {
		return nil, common.InvalidArgumentError("id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, common.InvalidArgumentError("id must be a UUID")
	}
	rec, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, common.ToGRPC(err)
	}
	return toStruct(map[string]any{"record": rec})
}

// ListNeedingVerification expects {"limit": number} and returns {"records": [Record]}.
func (s *ExtractionService) ListNeedingVerification(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit := int(numberField(req, "limit"))
	if limit <= 0 {
		limit = defaultListLimit
	}
	recs, err := s.docs.ListNeedingVerification(ctx, limit)
	if err != nil {
		s.logger.Warn("list records failed", "error", err)
		return nil, common.ToGRPC(err)
	}
	if recs == nil {
		recs = []*entity.Record{}
	}
	return toStruct(map[string]any{"records": recs})
}

// IngestDirectory expects {"root_path": string, "skip_hidden": bool,
// "force": bool, "exts": [string]} and returns {"results": [...], "stats": {...}}.
func (s *ExtractionService) IngestDirectory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.ingestor == nil {
		return nil, common.InternalError("directory ingest is not configured")
	}
	root := strings.TrimSpace(stringField(req, "root_path"))
	if root == "" {
		return nil, common.InvalidArgumentError("root_path is required")
	}
	opts := ingest.Options{
		SkipHidden: boolField(req, "skip_hidden"),
		Force:      boolField(req, "force"),
	}
	if v, ok := req.GetFields()["exts"]; ok {
		for _, e := range v.GetListValue().GetValues() {
			opts.Exts = append(opts.Exts, e.GetStringValue())
		}
	}

	s.logger.Info("starting directory ingest", "root", root, "skip_hidden", opts.SkipHidden)
	results, stats, err := s.ingestor.IngestDirectory(ctx, root, opts)
	if err != nil {
		s.logger.Error("directory ingest failed", "root", root, "error", err)
		return nil, common.InvalidArgumentErrorf("ingest %s: %v", root, err)
	}

	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		m := map[string]any{
			"path":               r.Path,
			"deduplicated":       r.Deduplicated,
			"content_hash":       r.HashHex,
			"status":             r.Status,
			"needs_verification": r.NeedsVerification,
		}
		if r.RecordID != uuid.Nil {
			m["record_id"] = r.RecordID.String()
		}
		if r.Err != "" {
			m["error"] = r.Err
		}
		out = append(out, m)
	}
	return toStruct(map[string]any{
		"results": out,
		"stats": map[string]any{
			"scanned":            stats.Scanned,
			"matched":            stats.Matched,
			"succeeded":          stats.Succeeded,
			"deduplicated":       stats.Deduplicated,
			"failed":             stats.Failed,
			"needs_verification": stats.NeedsVerification,
		},
	})
}

// toStruct round-trips v through JSON so struct tags decide the field names.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalError(fmt.Sprintf("encode response: %v", err))
	}
	return st, nil
}

// FromStruct decodes a response field into v, for clients.
func FromStruct(st *structpb.Struct, key string, v any) error {
	field, ok := st.GetFields()[key]
	if !ok {
		return fmt.Errorf("%w: missing %q", common.ErrNotFound, key)
	}
	b, err := field.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func stringField(st *structpb.Struct, key string) string {
	return st.GetFields()[key].GetStringValue()
}

func boolField(st *structpb.Struct, key string) bool {
	return st.GetFields()[key].GetBoolValue()
}

func numberField(st *structpb.Struct, key string) float64 {
	return st.GetFields()[key].GetNumberValue()
}
