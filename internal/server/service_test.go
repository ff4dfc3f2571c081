package server

import (
	"context"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/rod-records/constants"
	"github.com/joseph-ayodele/rod-records/internal/common"
	"github.com/joseph-ayodele/rod-records/internal/entity"
	"github.com/joseph-ayodele/rod-records/internal/extract"
	"github.com/joseph-ayodele/rod-records/internal/ingest"
)

type mockDocs struct{ mock.Mock }

func (m *mockDocs) Process(ctx context.Context, path string, force bool) (*entity.Record, bool, error) {
	args := m.Called(common.RequestIDFromContext(ctx), path, force)
	rec, _ := args.Get(0).(*entity.Record)
	return rec, args.Bool(1), args.Error(2)
}

func (m *mockDocs) Get(_ context.Context, id uuid.UUID) (*entity.Record, error) {
	args := m.Called(id)
	rec, _ := args.Get(0).(*entity.Record)
	return rec, args.Error(1)
}

func (m *mockDocs) ListNeedingVerification(_ context.Context, limit int) ([]*entity.Record, error) {
	args := m.Called(limit)
	recs, _ := args.Get(0).([]*entity.Record)
	return recs, args.Error(1)
}

type mockIngestor struct{ mock.Mock }

func (m *mockIngestor) IngestDirectory(_ context.Context, root string, opts ingest.Options) ([]ingest.FileResult, ingest.DirStats, error) {
	args := m.Called(root, opts)
	return args.Get(0).([]ingest.FileResult), args.Get(1).(ingest.DirStats), args.Error(2)
}

func dial(t *testing.T, docs DocumentService, ing ingest.Ingestor) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs, _ := New(NewExtractionService(docs, ing, nil), nil)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	st, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return st
}

func sampleRecord() *entity.Record {
	return &entity.Record{
		ID:         uuid.New(),
		SourcePath: "/scans/a.png",
		Status:     constants.RecordStatusNeedsReview,
		Result: extract.Result{
			RawText:           "Application No. 12345",
			Fields:            extract.FieldSet{Identifier: extract.Field{Value: "12345", Confidence: 0.2}},
			NeedsVerification: true,
			Warnings:          []string{},
			Engine:            constants.EngineFastOCR,
		},
	}
}

func TestProcessDocument(t *testing.T) {
	docs := &mockDocs{}
	rec := sampleRecord()
	docs.On("Process", "req-1", "/scans/a.png", true).Return(rec, false, nil)
	client := NewExtractionClient(dial(t, docs, nil))

	ctx := metadata.AppendToOutgoingContext(context.Background(), requestIDHeader, "req-1")
	resp, err := client.ProcessDocument(ctx, mustStruct(t, map[string]any{"path": "/scans/a.png", "force": true}))
	require.NoError(t, err)

	var got entity.Record
	require.NoError(t, FromStruct(resp, "record", &got))
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "12345", got.Result.Fields.Identifier.Value)
	assert.Equal(t, 0.2, got.Result.Fields.Identifier.Confidence)
	assert.True(t, got.Result.NeedsVerification)
	assert.False(t, resp.GetFields()["deduplicated"].GetBoolValue())
}

func TestProcessDocument_MissingPath(t *testing.T) {
	client := NewExtractionClient(dial(t, &mockDocs{}, nil))
	_, err := client.ProcessDocument(context.Background(), mustStruct(t, map[string]any{}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetRecord(t *testing.T) {
	docs := &mockDocs{}
	rec := sampleRecord()
	missing := uuid.New()
	docs.On("Get", rec.ID).Return(rec, nil)
	docs.On("Get", missing).Return(nil, common.NewAppError(common.CodeNotFound, "record", common.ErrNotFound))
	client := NewExtractionClient(dial(t, docs, nil))

	resp, err := client.GetRecord(context.Background(), mustStruct(t, map[string]any{"id": rec.ID.String()}))
	require.NoError(t, err)
	var got entity.Record
	require.NoError(t, FromStruct(resp, "record", &got))
	assert.Equal(t, rec.SourcePath, got.SourcePath)

	_, err = client.GetRecord(context.Background(), mustStruct(t, map[string]any{"id": missing.String()}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.GetRecord(context.Background(), mustStruct(t, map[string]any{"id": "nope"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestListNeedingVerification_DefaultLimit(t *testing.T) {
	docs := &mockDocs{}
	docs.On("ListNeedingVerification", defaultListLimit).Return(nil, nil)
	client := NewExtractionClient(dial(t, docs, nil))

	resp, err := client.ListNeedingVerification(context.Background(), mustStruct(t, map[string]any{}))
	require.NoError(t, err)
	var got []entity.Record
	require.NoError(t, FromStruct(resp, "records", &got))
	assert.Empty(t, got)
}

func TestIngestDirectory(t *testing.T) {
	ing := &mockIngestor{}
	id := uuid.New()
	ing.On("IngestDirectory", "/scans", ingest.Options{SkipHidden: true, Exts: []string{"pdf"}}).Return(
		[]ingest.FileResult{{Path: "/scans/a.pdf", RecordID: id, Status: "OK"}},
		ingest.DirStats{Scanned: 2, Matched: 1, Succeeded: 1},
		nil,
	)
	client := NewExtractionClient(dial(t, &mockDocs{}, ing))

	resp, err := client.IngestDirectory(context.Background(), mustStruct(t, map[string]any{
		"root_path": "/scans", "skip_hidden": true, "exts": []any{"pdf"},
	}))
	require.NoError(t, err)
	stats := resp.GetFields()["stats"].GetStructValue().GetFields()
	assert.Equal(t, float64(1), stats["succeeded"].GetNumberValue())
	results := resp.GetFields()["results"].GetListValue().GetValues()
	require.Len(t, results, 1)
	assert.Equal(t, id.String(), results[0].GetStructValue().GetFields()["record_id"].GetStringValue())
}

func TestIngestDirectory_NotConfigured(t *testing.T) {
	client := NewExtractionClient(dial(t, &mockDocs{}, nil))
	_, err := client.IngestDirectory(context.Background(), mustStruct(t, map[string]any{"root_path": "/x"}))
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestHealth(t *testing.T) {
	conn := dial(t, &mockDocs{}, nil)
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
