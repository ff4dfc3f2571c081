// Package pdftext pulls embedded text out of PDFs so born-digital licenses
// can skip OCR entirely.
package pdftext

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/rod-records/internal/common"
	"github.com/joseph-ayodele/rod-records/internal/core/ocr"
)

// Extractor returns the embedded text of a PDF. Empty text is not an error;
// it tells the caller to fall back to OCR.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

type Config struct {
	Pdftotext string // fallback binary; empty disables the fallback
	MaxPages  int    // 0 = no limit
}

// Reader reads text with ledongthuc/pdf and falls back to pdftotext when the
// document cannot be parsed in-process.
type Reader struct {
	cfg    Config
	runner ocr.Runner
	logger *slog.Logger
}

func NewReader(cfg Config, runner ocr.Runner, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ocr.ExecRunner{}
	}
	return &Reader{cfg: cfg, runner: runner, logger: logger}
}

func (r *Reader) Extract(ctx context.Context, path string) (string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", common.SourceReadFailed(path, err)
	}
	if st.IsDir() {
		return "", common.SourceReadFailed(path, fmt.Errorf("is a directory"))
	}

	text, pages, err := r.readPlain(path)
	if err == nil {
		r.logger.Debug("pdf text extracted", "path", path, "pages", pages, "chars", len(text))
		return text, nil
	}
	r.logger.Warn("in-process pdf parse failed", "path", path, "error", err)

	if r.cfg.Pdftotext == "" {
		return "", common.EngineFailed("pdf-text", err)
	}
	text, ferr := r.viaPdftotext(ctx, path)
	if ferr != nil {
		return "", common.EngineFailed("pdf-text", fmt.Errorf("%v; pdftotext: %w", err, ferr))
	}
	return text, nil
}

// readPlain extracts page text in order. ledongthuc/pdf panics on some
// malformed inputs, so panics are turned into errors.
func (r *Reader) readPlain(path string) (text string, pages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf parser panic: %v", rec)
		}
	}()

	f, rd, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() { _ = f.Close() }()

	n := rd.NumPage()
	if r.cfg.MaxPages > 0 && n > r.cfg.MaxPages {
		n = r.cfg.MaxPages
	}
	var parts []string
	for i := 1; i <= n; i++ {
		page := rd.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, perr := page.GetPlainText(nil)
		if perr != nil {
			r.logger.Debug("page text failed", "path", path, "page", i, "error", perr)
			continue
		}
		parts = append(parts, content)
	}
	return strings.Join(parts, "\n\n"), n, nil
}

func (r *Reader) viaPdftotext(ctx context.Context, path string) (string, error) {
	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if r.cfg.MaxPages > 0 {
		args = append(args, "-l", fmt.Sprint(r.cfg.MaxPages))
	}
	args = append(args, path, "-")
	out, errb, err := r.runner.Run(ctx, r.cfg.Pdftotext, r.logger, args...)
	if err != nil {
		return "", fmt.Errorf("%w (%s)", err, ocr.Truncate(string(errb), 512))
	}
	// pages are separated by form feeds
	return strings.ReplaceAll(string(out), "\f", "\n\n"), nil
}

// CountNonSpace counts the characters of s that are not whitespace.
func CountNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
