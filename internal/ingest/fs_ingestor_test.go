package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/rod-records/constants"
	"github.com/joseph-ayodele/rod-records/internal/core/async"
	"github.com/joseph-ayodele/rod-records/internal/entity"
	"github.com/joseph-ayodele/rod-records/internal/extract"
)

func tree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0o600))
	}
	return root
}

func TestWalk_FiltersAndSkipsHidden(t *testing.T) {
	root := tree(t, "a.pdf", "b.JPG", "notes.txt", ".hidden.png", ".git/c.png", "sub/d.tiff", "sub/e.heic")

	paths, failed, stats, err := Walk(root, Options{SkipHidden: true})
	require.NoError(t, err)
	assert.Empty(t, failed)

	var rel []string
	for _, p := range paths {
		r, _ := filepath.Rel(root, p)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{"a.pdf", "b.JPG", "sub/d.tiff", "sub/e.heic"}, rel)
	assert.Equal(t, uint32(4), stats.Matched)
	assert.Equal(t, uint32(5), stats.Scanned)
}

func TestWalk_IncludesHiddenWhenAsked(t *testing.T) {
	root := tree(t, "a.pdf", ".hidden.png")
	paths, _, _, err := Walk(root, Options{})
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestWalk_CustomExtensions(t *testing.T) {
	root := tree(t, "a.pdf", "b.png")
	paths, _, _, err := Walk(root, Options{Exts: []string{".PDF"}})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "a.pdf", filepath.Base(paths[0]))
}

func TestWalk_Errors(t *testing.T) {
	_, _, _, err := Walk("  ", Options{})
	assert.Error(t, err)

	_, _, _, err = Walk(filepath.Join(t.TempDir(), "absent"), Options{})
	assert.Error(t, err)
}

type stubBatch struct {
	gotForce bool
	out      func(path string) async.Outcome
}

func (s *stubBatch) ProcessAll(_ context.Context, paths []string, force bool) []async.Outcome {
	s.gotForce = force
	outs := make([]async.Outcome, len(paths))
	for i, p := range paths {
		outs[i] = s.out(p)
	}
	return outs
}

func TestIngestDirectory_Stats(t *testing.T) {
	root := tree(t, "ok.png", "dup.png", "review.pdf", "broken.png", "crash.png")
	batch := &stubBatch{out: func(p string) async.Outcome {
		rec := &entity.Record{ID: uuid.New(), ContentHash: "h", Status: constants.RecordStatusOK}
		out := async.Outcome{Path: p, Record: rec}
		switch filepath.Base(p) {
		case "dup.png":
			out.Cached = true
		case "review.pdf":
			rec.Status = constants.RecordStatusNeedsReview
			rec.Result.NeedsVerification = true
		case "broken.png":
			rec.Status = constants.RecordStatusFailed
			rec.Result = extract.Result{Error: "SOURCE_READ_FAILED", NeedsVerification: true}
		case "crash.png":
			out.Record = nil
			out.Err = errors.New("database error")
		}
		return out
	}}

	results, stats, err := NewFSIngestor(batch, nil).IngestDirectory(context.Background(), root, Options{Force: true})
	require.NoError(t, err)
	assert.True(t, batch.gotForce)
	assert.Len(t, results, 5)
	assert.Equal(t, DirStats{
		Scanned: 5, Matched: 5, Succeeded: 3, Deduplicated: 1, Failed: 2, NeedsVerification: 1,
	}, stats)

	byName := map[string]FileResult{}
	for _, r := range results {
		byName[filepath.Base(r.Path)] = r
	}
	assert.Equal(t, "database error", byName["crash.png"].Err)
	assert.Equal(t, string(constants.RecordStatusNeedsReview), byName["review.pdf"].Status)
	assert.True(t, byName["dup.png"].Deduplicated)
}
