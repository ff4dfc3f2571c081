package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/rod-records/constants"
	"github.com/joseph-ayodele/rod-records/internal/common"
	"github.com/joseph-ayodele/rod-records/internal/extract"
)

// FastEngine is the general-purpose recognizer tried first for every document.
type FastEngine interface {
	Recognize(ctx context.Context, path string) (extract.Recognition, error)
}

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit

	TessdataDir   string
	HeicConverter string

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	ArtifactCacheDir string

	Timeout time.Duration // per document; 0 = no limit
}

// ConfigFrom maps application configuration onto engine Config.
func ConfigFrom(c common.OCRConfig) Config {
	return Config{
		Pdftoppm:         c.PdftoppmBin,
		Tesseract:        c.TesseractBin,
		TesseractLang:    c.Language,
		DPI:              c.DPI,
		MaxPages:         c.MaxPages,
		TessdataDir:      c.TessdataDir,
		HeicConverter:    c.HeicConverter,
		PSM:              c.PSM,
		OEM:              c.OEM,
		ArtifactCacheDir: c.ArtifactCacheDir,
		Timeout:          c.Timeout,
	}
}

// pageRecognizer OCRs one raster image.
type pageRecognizer func(ctx context.Context, path string) (text string, words []extract.Word, err error)

// Engine is the fast OCR engine. Images are recognized directly; PDFs are
// rasterized with pdftoppm and recognized page by page.
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
	page   pageRecognizer
	name   string
}

// NewTesseractEngine returns an Engine that shells out to the tesseract CLI.
func NewTesseractEngine(cfg Config, runner Runner, logger *slog.Logger) *Engine {
	e := newEngine(cfg, runner, logger)
	e.page = e.tesseractTSV
	e.name = constants.EngineFastOCR
	return e
}

func newEngine(cfg Config, runner Runner, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Engine{cfg: cfg, runner: runner, logger: logger}
}

// Name identifies the engine on results.
func (e *Engine) Name() string { return e.name }

// Recognize picks a strategy based on file extension.
func (e *Engine) Recognize(ctx context.Context, path string) (extract.Recognition, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting ocr", "path", path, "engine", e.name, "ext", ext)
	ctx, cancel := common.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	var (
		rec extract.Recognition
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		rec, err = e.recognizePDF(ctx, path)
	case constants.IMAGE:
		rec, err = e.recognizeImage(ctx, path, constants.IsHEICExt(ext))
	default:
		return extract.Recognition{}, fmt.Errorf("unsupported extension: %q", ext)
	}
	rec.Duration = time.Since(start)
	if err != nil {
		e.logger.Warn("ocr failed", "path", path, "engine", e.name, "error", err)
		return rec, common.EngineFailed(e.name, err)
	}
	e.logger.Info("ocr done", "path", path, "engine", e.name,
		"pages", rec.Pages, "words", len(rec.Words), "duration_ms", rec.Duration.Milliseconds())
	return rec, nil
}

func (e *Engine) recognizeImage(ctx context.Context, path string, heic bool) (extract.Recognition, error) {
	rec := extract.Recognition{SourceType: constants.IMAGE, Method: "image-ocr", Language: e.cfg.TesseractLang, Pages: 1}
	if heic {
		hashHex, _ := common.ContentHashFromContext(ctx)
		out, cleanup, err := convertHEICtoPNG(ctx, e.runner, e.logger, e.cfg.HeicConverter, path, e.cfg.ArtifactCacheDir, hashHex)
		if err != nil {
			return rec, err
		}
		if cleanup != nil {
			defer cleanup()
		}
		path = out
	}
	text, words, err := e.page(ctx, path)
	if err != nil {
		return rec, err
	}
	rec.Text, rec.Words = text, words
	return rec, nil
}

func (e *Engine) recognizePDF(ctx context.Context, path string) (extract.Recognition, error) {
	rec := extract.Recognition{SourceType: constants.PDF, Method: "pdf-ocr", Language: e.cfg.TesseractLang}

	tmpDir, err := os.MkdirTemp("", "rod-pp-*")
	if err != nil {
		return rec, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, prefix)
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, e.logger, args...); err != nil {
		return rec, fmt.Errorf("pdftoppm: %w (%s)", err, Truncate(string(errb), 512))
	}

	// prefix-1.png, prefix-2.png, ... (zero-padded when there are many pages)
	pages, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(pages)
	if e.cfg.MaxPages > 0 && len(pages) > e.cfg.MaxPages {
		pages = pages[:e.cfg.MaxPages]
	}
	if len(pages) == 0 {
		return rec, fmt.Errorf("pdftoppm produced no images")
	}

	var texts []string
	for _, img := range pages {
		text, words, err := e.page(ctx, img)
		if err != nil {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("page %s: %v", filepath.Base(img), err))
			continue
		}
		texts = append(texts, text)
		rec.Words = append(rec.Words, words...)
	}
	if len(texts) == 0 {
		return rec, fmt.Errorf("no page could be recognized")
	}
	rec.Pages = len(pages)
	rec.Text = strings.Join(texts, "\n\n")
	return rec, nil
}

func (e *Engine) tesseractArgs(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return append(args, "tsv")
}

// tesseractTSV runs `tesseract <img> stdout ... tsv` and parses words.
func (e *Engine) tesseractTSV(ctx context.Context, path string) (string, []extract.Word, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, e.tesseractArgs(path)...)
	if err != nil {
		return "", nil, fmt.Errorf("tesseract: %w (%s)", err, Truncate(string(errb), 512))
	}
	text, words := parseTSV(out)
	return text, words, nil
}
