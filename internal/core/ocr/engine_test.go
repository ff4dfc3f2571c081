package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/rod-records/constants"
	"github.com/joseph-ayodele/rod-records/internal/common"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t800\t600\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t50\t20\t96.5\tApplication\n" +
	"5\t1\t1\t1\t1\t2\t70\t10\t20\t20\t90\tNo.\n" +
	"5\t1\t1\t1\t1\t3\t95\t10\t40\t20\t88\t12345\n" +
	"5\t1\t1\t1\t2\t1\t10\t40\t10\t20\t71\tI,\n" +
	"5\t1\t1\t1\t2\t2\t25\t40\t40\t20\t-1\tJane\n" +
	"5\t1\t2\t1\t1\t1\t10\t90\t40\t20\t20\tDoe\n"

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []call
	fn    func(name string, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: args})
	f.mu.Unlock()
	return f.fn(name, args)
}

func (f *fakeRunner) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.name)
	}
	return out
}

func TestParseTSV(t *testing.T) {
	text, words := parseTSV([]byte(sampleTSV))

	assert.Equal(t, "Application No. 12345\nI, Jane\n\nDoe", text)
	require.Len(t, words, 5)
	assert.Equal(t, "Application", words[0].Text)
	assert.InDelta(t, 0.965, words[0].Confidence, 1e-9)
	assert.Equal(t, "Doe", words[4].Text)
	assert.InDelta(t, 0.2, words[4].Confidence, 1e-9)
}

func TestParseTSV_Empty(t *testing.T) {
	text, words := parseTSV(nil)
	assert.Empty(t, text)
	assert.Empty(t, words)
}

func TestEngine_RecognizeImage(t *testing.T) {
	r := &fakeRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		return []byte(sampleTSV), nil, nil
	}}
	e := NewTesseractEngine(Config{PSM: 6, OEM: 1}, r, nil)

	rec, err := e.Recognize(context.Background(), "/scans/license.png")
	require.NoError(t, err)

	assert.Equal(t, constants.IMAGE, rec.SourceType)
	assert.Equal(t, "image-ocr", rec.Method)
	assert.Contains(t, rec.Text, "Application No. 12345")
	assert.Len(t, rec.Words, 5)

	require.Len(t, r.calls, 1)
	assert.Equal(t, "tesseract", r.calls[0].name)
	assert.Equal(t, []string{"/scans/license.png", "stdout", "-l", "eng", "--psm", "6", "--oem", "1", "tsv"}, r.calls[0].args)
}

func TestEngine_RecognizeFailureIsEngineError(t *testing.T) {
	r := &fakeRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("Error opening data file"), errors.New("exit status 1")
	}}
	e := NewTesseractEngine(Config{}, r, nil)

	_, err := e.Recognize(context.Background(), "scan.jpg")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrEngineInvocationFailed)
	assert.Contains(t, err.Error(), "Error opening data file")
}

func TestEngine_UnsupportedExtension(t *testing.T) {
	e := NewTesseractEngine(Config{}, &fakeRunner{}, nil)
	_, err := e.Recognize(context.Background(), "notes.docx")
	assert.ErrorContains(t, err, "unsupported extension")
}

func TestEngine_RecognizeScannedPDF(t *testing.T) {
	r := &fakeRunner{}
	r.fn = func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftoppm":
			prefix := args[len(args)-1]
			for _, p := range []string{"-1.png", "-2.png", "-3.png"} {
				if err := os.WriteFile(prefix+p, []byte("png"), 0o600); err != nil {
					return nil, nil, err
				}
			}
			return nil, nil, nil
		case "tesseract":
			if strings.HasSuffix(args[0], "-2.png") {
				return nil, []byte("bad page"), errors.New("exit status 1")
			}
			return []byte(sampleTSV), nil, nil
		}
		return nil, nil, errors.New("unexpected command " + name)
	}
	e := NewTesseractEngine(Config{MaxPages: 3, DPI: 200}, r, nil)

	rec, err := e.Recognize(context.Background(), "license.pdf")
	require.NoError(t, err)

	assert.Equal(t, constants.PDF, rec.SourceType)
	assert.Equal(t, "pdf-ocr", rec.Method)
	assert.Equal(t, 3, rec.Pages)
	assert.Len(t, rec.Words, 10)
	require.Len(t, rec.Warnings, 1)
	assert.Contains(t, rec.Warnings[0], "page-2.png")
	assert.Equal(t, []string{"-r", "200", "-png", "-l", "3"}, r.calls[0].args[:5])
}

func TestEngine_HEICConvertedAndCached(t *testing.T) {
	cacheDir := t.TempDir()
	r := &fakeRunner{}
	r.fn = func(name string, args []string) ([]byte, []byte, error) {
		if name == "magick" {
			return nil, nil, os.WriteFile(args[1], []byte("png"), 0o600)
		}
		assert.Equal(t, filepath.Join(cacheDir, "abc123.png"), args[0])
		return []byte(sampleTSV), nil, nil
	}
	e := NewTesseractEngine(Config{HeicConverter: "magick", ArtifactCacheDir: cacheDir}, r, nil)
	ctx := common.WithContentHash(context.Background(), "abc123")

	_, err := e.Recognize(ctx, "IMG_0001.HEIC")
	require.NoError(t, err)
	_, err = e.Recognize(ctx, "IMG_0001.HEIC")
	require.NoError(t, err)

	assert.Equal(t, []string{"magick", "tesseract", "tesseract"}, r.names())
	assert.FileExists(t, filepath.Join(cacheDir, "abc123.png"))
}

func TestHeicArgs_UnknownConverter(t *testing.T) {
	_, _, err := heicArgs("gimp", "in.heic", "out.png")
	assert.ErrorContains(t, err, "HEIC not supported")
}
