//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/rod-records/internal/extract"
)

// NewGosseractEngine returns an Engine that recognizes pages in-process
// through libtesseract. PDFs are still rasterized with pdftoppm.
func NewGosseractEngine(cfg Config, runner Runner, logger *slog.Logger) (*Engine, error) {
	e := newEngine(cfg, runner, logger)
	e.name = "gosseract"
	e.page = e.gosseractPage
	return e, nil
}

func (e *Engine) gosseractPage(ctx context.Context, path string) (string, []extract.Word, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	c := gosseract.NewClient()
	defer func() { _ = c.Close() }()

	if e.cfg.TessdataDir != "" {
		c.TessdataPrefix = e.cfg.TessdataDir
	}
	if err := c.SetLanguage(e.cfg.TesseractLang); err != nil {
		return "", nil, fmt.Errorf("set language: %w", err)
	}
	if e.cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.cfg.PSM)); err != nil {
			return "", nil, fmt.Errorf("set psm: %w", err)
		}
	}
	if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(e.cfg.DPI)); err != nil {
		return "", nil, fmt.Errorf("set dpi: %w", err)
	}
	if err := c.SetImage(path); err != nil {
		return "", nil, fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", nil, fmt.Errorf("recognize text: %w", err)
	}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		e.logger.Warn("word boxes unavailable", "path", path, "error", err)
		return strings.TrimSpace(text), nil, nil
	}
	words := make([]extract.Word, 0, len(boxes))
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" || b.Confidence < 0 {
			continue
		}
		words = append(words, extract.Word{Text: b.Word, Confidence: extract.Clamp(b.Confidence / 100)})
	}
	return strings.TrimSpace(text), words, nil
}
