package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/rod-records/constants"
	"github.com/joseph-ayodele/rod-records/internal/cache"
	"github.com/joseph-ayodele/rod-records/internal/common"
	"github.com/joseph-ayodele/rod-records/internal/entity"
	"github.com/joseph-ayodele/rod-records/internal/extract"
)

type mockExtractor struct{ mock.Mock }

func (m *mockExtractor) ProcessDocument(_ context.Context, path string) extract.Result {
	return m.Called(path).Get(0).(extract.Result)
}

type mockRecords struct{ mock.Mock }

func (m *mockRecords) Create(_ context.Context, rec *entity.Record) error {
	return m.Called(rec).Error(0)
}

func (m *mockRecords) Get(_ context.Context, id uuid.UUID) (*entity.Record, error) {
	args := m.Called(id)
	rec, _ := args.Get(0).(*entity.Record)
	return rec, args.Error(1)
}

func (m *mockRecords) FindByHash(_ context.Context, hash string) (*entity.Record, error) {
	args := m.Called(hash)
	rec, _ := args.Get(0).(*entity.Record)
	return rec, args.Error(1)
}

func (m *mockRecords) ListNeedingVerification(_ context.Context, limit int) ([]*entity.Record, error) {
	args := m.Called(limit)
	recs, _ := args.Get(0).([]*entity.Record)
	return recs, args.Error(1)
}

func (m *mockRecords) List(_ context.Context, limit int) ([]*entity.Record, error) {
	args := m.Called(limit)
	recs, _ := args.Get(0).([]*entity.Record)
	return recs, args.Error(1)
}

var notFound = common.NewAppError(common.CodeNotFound, "record", common.ErrNotFound)

func writeScan(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func goodResult() extract.Result {
	return extract.Result{
		RawText:           "Application No. 1",
		Fields:            extract.FieldSet{Identifier: extract.Field{Value: "1", Confidence: 0.9}},
		Warnings:          []string{},
		Engine:            constants.EngineFastOCR,
		NeedsVerification: true,
	}
}

func TestProcess_StoresAndCaches(t *testing.T) {
	path := writeScan(t, "license")
	ex := &mockExtractor{}
	ex.On("ProcessDocument", path).Return(goodResult()).Once()
	repo := &mockRecords{}
	repo.On("FindByHash", mock.Anything).Return(nil, notFound).Once()
	repo.On("Create", mock.AnythingOfType("*entity.Record")).Return(nil).Once()

	p := NewProcessor(nil, ex, repo, cache.NewResultCache(time.Minute, 0))
	rec, cached, err := p.Process(context.Background(), path, false)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, constants.RecordStatusNeedsReview, rec.Status)
	assert.Equal(t, constants.IMAGE, rec.Format)
	assert.Len(t, rec.ContentHash, 64)
	assert.Equal(t, "scan.png", rec.Filename)

	again, cached, err := p.Process(context.Background(), path, false)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, rec.ID, again.ID)

	ex.AssertNumberOfCalls(t, "ProcessDocument", 1)
	repo.AssertExpectations(t)
}

func TestProcess_UploadKeepsClientName(t *testing.T) {
	path := writeScan(t, "license")
	ex := &mockExtractor{}
	ex.On("ProcessDocument", path).Return(goodResult())
	repo := &mockRecords{}
	repo.On("FindByHash", mock.Anything).Return(nil, notFound)
	repo.On("Create", mock.Anything).Return(nil)

	p := NewProcessor(nil, ex, repo, nil)
	ctx := common.WithSourceName(context.Background(), "upload://county-1952.png")
	rec, _, err := p.Process(ctx, path, false)
	require.NoError(t, err)
	assert.Equal(t, "upload://county-1952.png", rec.SourcePath)
	assert.Equal(t, "county-1952.png", rec.Filename)
}

func TestProcess_ForceReprocesses(t *testing.T) {
	path := writeScan(t, "license")
	ex := &mockExtractor{}
	ex.On("ProcessDocument", path).Return(goodResult())
	repo := &mockRecords{}
	repo.On("FindByHash", mock.Anything).Return(nil, notFound)
	repo.On("Create", mock.Anything).Return(nil)

	p := NewProcessor(nil, ex, repo, cache.NewResultCache(time.Minute, 0))
	first, _, err := p.Process(context.Background(), path, false)
	require.NoError(t, err)
	second, cached, err := p.Process(context.Background(), path, true)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.NotEqual(t, first.ID, second.ID)
	ex.AssertNumberOfCalls(t, "ProcessDocument", 2)
}

func TestProcess_ReusesStoredRecord(t *testing.T) {
	path := writeScan(t, "license")
	stored := &entity.Record{ID: uuid.New(), Status: constants.RecordStatusOK}
	ex := &mockExtractor{}
	repo := &mockRecords{}
	repo.On("FindByHash", mock.Anything).Return(stored, nil)

	p := NewProcessor(nil, ex, repo, nil)
	rec, cached, err := p.Process(context.Background(), path, false)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, stored.ID, rec.ID)
	ex.AssertNotCalled(t, "ProcessDocument", mock.Anything)
}

func TestProcess_StoredFailureIsRetried(t *testing.T) {
	path := writeScan(t, "license")
	ex := &mockExtractor{}
	ex.On("ProcessDocument", path).Return(goodResult())
	repo := &mockRecords{}
	repo.On("FindByHash", mock.Anything).Return(&entity.Record{Status: constants.RecordStatusFailed}, nil)
	repo.On("Create", mock.Anything).Return(nil)

	_, cached, err := NewProcessor(nil, ex, repo, nil).Process(context.Background(), path, false)
	require.NoError(t, err)
	assert.False(t, cached)
	ex.AssertNumberOfCalls(t, "ProcessDocument", 1)
}

func TestProcess_UnreadableSourceIsPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.pdf")
	failed := extract.Failed(common.SourceReadFailed(path, os.ErrNotExist), nil)
	ex := &mockExtractor{}
	ex.On("ProcessDocument", path).Return(failed)
	repo := &mockRecords{}
	repo.On("Create", mock.Anything).Return(nil)

	rec, _, err := NewProcessor(nil, ex, repo, nil).Process(context.Background(), path, false)
	require.NoError(t, err)
	assert.Equal(t, constants.RecordStatusFailed, rec.Status)
	assert.Empty(t, rec.ContentHash)
	assert.NotEmpty(t, rec.Result.Error)
	repo.AssertNotCalled(t, "FindByHash", mock.Anything)
}

func TestProcess_PersistFailure(t *testing.T) {
	path := writeScan(t, "license")
	ex := &mockExtractor{}
	ex.On("ProcessDocument", path).Return(goodResult())
	repo := &mockRecords{}
	repo.On("FindByHash", mock.Anything).Return(nil, notFound)
	repo.On("Create", mock.Anything).Return(common.ErrDatabase)
	results := cache.NewResultCache(time.Minute, 0)

	_, _, err := NewProcessor(nil, ex, repo, results).Process(context.Background(), path, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDatabase))
	assert.Zero(t, results.Len())
}

func TestGetAndList_WithoutStore(t *testing.T) {
	p := NewProcessor(nil, &mockExtractor{}, nil, nil)
	_, err := p.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	recs, err := p.ListNeedingVerification(context.Background(), 10)
	assert.NoError(t, err)
	assert.Empty(t, recs)
}

func TestListNeedingVerification_Delegates(t *testing.T) {
	repo := &mockRecords{}
	want := []*entity.Record{{ID: uuid.New()}}
	repo.On("ListNeedingVerification", 5).Return(want, nil)

	got, err := NewProcessor(nil, &mockExtractor{}, repo, nil).ListNeedingVerification(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
