package handwriting

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/rod-records/internal/common"
)

const scriptOutput = `INFO:__main__:Loading TrOCR model
{
  "license_number": {"value": "A-1187", "confidence": 0.9},
  "name_spouse1": {"value": "Jane Doe", "confidence": 1.1},
  "name_spouse2": {"value": "", "confidence": 0.0},
  "marriage_date": {"value": "1952-June-03", "confidence": 0.7},
  "raw_text": "Application No. A-1187 I, Jane Doe, of lawful age",
  "success": true,
  "error": null
}`

type mockRunner struct{ mock.Mock }

func (m *mockRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	ret := m.Called(name, args)
	out, _ := ret.Get(0).([]byte)
	return out, nil, ret.Error(1)
}

func scriptPath(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "trocr_service.py")
	require.NoError(t, os.WriteFile(p, []byte("# stub"), 0o600))
	return p
}

func TestDecodeOutput(t *testing.T) {
	res, err := decodeOutput([]byte(scriptOutput))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "A-1187", res.Fields.Identifier.Value)
	assert.Equal(t, 1.0, res.Fields.PartyA.Confidence)
	assert.True(t, res.Fields.PartyB.Empty())
	assert.Equal(t, "1952-06-03", res.Fields.Date.Value)
	assert.Contains(t, res.RawText, "Jane Doe")
	assert.Empty(t, res.Error)
}

func TestDecodeOutput_Malformed(t *testing.T) {
	_, err := decodeOutput([]byte("Error: Failed to load TrOCR model"))
	assert.ErrorContains(t, err, "no JSON object")

	_, err = decodeOutput([]byte(`{"success": "yes"}`))
	assert.ErrorContains(t, err, "does not match schema")

	_, err = decodeOutput([]byte(`{"success": true, "license_number": {"value": 12}}`))
	assert.Error(t, err)
}

func TestDecodeOutput_Failure(t *testing.T) {
	res, err := decodeOutput([]byte(`{"success": false, "raw_text": "", "error": "CUDA out of memory"}`))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "CUDA out of memory", res.Error)
	assert.False(t, res.Fields.AnyValue())
}

func TestAvailable_ProbedOnceUntilRefresh(t *testing.T) {
	r := &mockRunner{}
	r.On("Run", "python3", []string{"-c", "import transformers, torch"}).Return([]byte{}, nil)
	e := NewSubprocess(Config{Script: scriptPath(t)}, r, nil)
	ctx := context.Background()

	assert.True(t, e.Available(ctx))
	assert.True(t, e.Available(ctx))
	r.AssertNumberOfCalls(t, "Run", 1)

	assert.True(t, e.Refresh(ctx))
	r.AssertNumberOfCalls(t, "Run", 2)
}

func TestAvailable_MissingScript(t *testing.T) {
	r := &mockRunner{}
	e := NewSubprocess(Config{Script: filepath.Join(t.TempDir(), "absent.py")}, r, nil)

	assert.False(t, e.Available(context.Background()))
	r.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)

	_, err := e.Recognize(context.Background(), "scan.png")
	assert.ErrorIs(t, err, common.ErrEngineUnavailable)
}

func TestAvailable_ProbeFails(t *testing.T) {
	r := &mockRunner{}
	r.On("Run", "python3", mock.Anything).Return(nil, errors.New("ModuleNotFoundError: torch"))
	e := NewSubprocess(Config{Script: scriptPath(t)}, r, nil)

	assert.False(t, e.Available(context.Background()))
}

func TestRecognize(t *testing.T) {
	script := scriptPath(t)
	r := &mockRunner{}
	r.On("Run", "python3", []string{"-c", "import transformers, torch"}).Return([]byte{}, nil)
	r.On("Run", "python3", []string{script, "scan.png"}).Return([]byte(scriptOutput), nil)
	e := NewSubprocess(Config{Script: script}, r, nil)

	res, err := e.Recognize(context.Background(), "scan.png")
	require.NoError(t, err)
	assert.Equal(t, "A-1187", res.Fields.Identifier.Value)
	r.AssertExpectations(t)
}

func TestRecognize_ProcessErrorIsInvocationFailure(t *testing.T) {
	script := scriptPath(t)
	r := &mockRunner{}
	r.On("Run", "python3", []string{"-c", "import transformers, torch"}).Return([]byte{}, nil)
	r.On("Run", "python3", []string{script, "scan.png"}).Return(nil, errors.New("exit status 1"))
	e := NewSubprocess(Config{Script: script}, r, nil)

	_, err := e.Recognize(context.Background(), "scan.png")
	assert.ErrorIs(t, err, common.ErrEngineInvocationFailed)
}

func TestRecognize_PDFUsesFirstPage(t *testing.T) {
	script := scriptPath(t)
	r := &mockRunner{}
	r.On("Run", "python3", []string{"-c", "import transformers, torch"}).Return([]byte{}, nil)
	r.On("Run", "pdftoppm", mock.Anything).Run(func(args mock.Arguments) {
		a := args.Get(1).([]string)
		_ = os.WriteFile(a[len(a)-1]+"-1.png", []byte("png"), 0o600)
	}).Return([]byte{}, nil)
	r.On("Run", "python3", mock.MatchedBy(func(a []string) bool {
		return len(a) == 2 && a[0] == script && filepath.Base(a[1]) == "page-1.png"
	})).Return([]byte(scriptOutput), nil)
	e := NewSubprocess(Config{Script: script}, r, nil)

	res, err := e.Recognize(context.Background(), "license.pdf")
	require.NoError(t, err)
	assert.True(t, res.Success)
	r.AssertExpectations(t)
}

func TestSetup_RefreshesAvailability(t *testing.T) {
	script := scriptPath(t)
	r := &mockRunner{}
	r.On("Run", "python3", []string{"-c", "import transformers, torch"}).Return(nil, errors.New("missing")).Once()
	r.On("Run", "python3", []string{"-m", "pip", "install", "transformers"}).Return([]byte{}, nil)
	r.On("Run", "python3", []string{"-c", "import transformers, torch"}).Return([]byte{}, nil)
	e := NewSubprocess(Config{Script: script, SetupArgs: []string{"-m", "pip", "install", "transformers"}}, r, nil)
	ctx := context.Background()

	require.False(t, e.Available(ctx))
	ok, err := e.Setup(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, e.Available(ctx))
}

func TestTextConfidence(t *testing.T) {
	assert.Zero(t, TextConfidence("   "))
	assert.InDelta(t, 0.3, TextConfidence("abc"), 1e-9)
	assert.InDelta(t, 1.0, TextConfidence("Marriage License Application No. 4471 for John Smith and Jane Doe"), 1e-9)
	assert.InDelta(t, 0.6, TextConfidence("some plain words"), 1e-9)
	assert.InDelta(t, 0.5, TextConfidence("la la la la la la la"), 1e-9)
}

func TestJSONObject(t *testing.T) {
	b, ok := jsonObject([]byte("noise {\"a\": {\"b\": 1}} trailing"))
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, string(b))

	_, ok = jsonObject([]byte("} nothing {"))
	assert.False(t, ok)
}
