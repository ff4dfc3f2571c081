// Package handwriting hosts the cursive-handwriting recognizer, a Python
// TrOCR script run as a subprocess, behind the Engine capability.
package handwriting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/rod-records/constants"
	"github.com/joseph-ayodele/rod-records/internal/common"
	"github.com/joseph-ayodele/rod-records/internal/core/ocr"
	"github.com/joseph-ayodele/rod-records/internal/extract"
)

// Result is the recognizer's answer. Fields may be partially empty.
type Result struct {
	Success bool
	RawText string
	Fields  extract.FieldSet
	Error   string
}

// Engine is the slower, handwriting-specialized recognizer.
type Engine interface {
	// Available reports whether the engine is installed. It is probed once
	// and cached until Refresh.
	Available(ctx context.Context) bool
	Recognize(ctx context.Context, path string) (Result, error)
}

type Config struct {
	Python      string
	Script      string
	ProbeImport string   // python statement that must succeed, e.g. "import transformers, torch"
	SetupArgs   []string // python arguments that install the engine's packages
	Timeout     time.Duration

	Pdftoppm string // rasterizes the first page of PDF sources
	DPI      int
}

// ConfigFrom maps application configuration onto engine Config.
func ConfigFrom(h common.HandwritingConfig, o common.OCRConfig) Config {
	return Config{
		Python:      h.Python,
		Script:      h.Script,
		ProbeImport: h.ProbeImport,
		SetupArgs:   h.SetupArgs,
		Timeout:     h.Timeout,
		Pdftoppm:    o.PdftoppmBin,
		DPI:         o.DPI,
	}
}

// Subprocess runs `python <script> <image>` and decodes its JSON output.
type Subprocess struct {
	cfg    Config
	runner ocr.Runner
	logger *slog.Logger

	mu     sync.Mutex
	probed bool
	avail  bool
}

func NewSubprocess(cfg Config, runner ocr.Runner, logger *slog.Logger) *Subprocess {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ocr.ExecRunner{}
	}
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.ProbeImport == "" {
		cfg.ProbeImport = "import transformers, torch"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Subprocess{cfg: cfg, runner: runner, logger: logger.With("engine", constants.EngineHandwriting)}
}

func (s *Subprocess) Available(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.probed {
		s.avail = s.probe(ctx)
		s.probed = true
	}
	return s.avail
}

// Refresh discards the cached availability and probes again.
func (s *Subprocess) Refresh(ctx context.Context) bool {
	s.mu.Lock()
	s.probed = false
	s.mu.Unlock()
	return s.Available(ctx)
}

func (s *Subprocess) probe(ctx context.Context) bool {
	if s.cfg.Script == "" {
		s.logger.Info("handwriting engine disabled: no script configured")
		return false
	}
	if _, err := os.Stat(s.cfg.Script); err != nil {
		s.logger.Info("handwriting engine unavailable", "script", s.cfg.Script, "error", err)
		return false
	}
	if _, _, err := s.runner.Run(ctx, s.cfg.Python, s.logger, "-c", s.cfg.ProbeImport); err != nil {
		s.logger.Info("handwriting engine unavailable", "probe", s.cfg.ProbeImport, "error", err)
		return false
	}
	s.logger.Info("handwriting engine available", "script", s.cfg.Script)
	return true
}

// Setup installs the engine's Python packages and re-probes availability.
func (s *Subprocess) Setup(ctx context.Context) (bool, error) {
	if len(s.cfg.SetupArgs) == 0 {
		return s.Refresh(ctx), nil
	}
	if _, errb, err := s.runner.Run(ctx, s.cfg.Python, s.logger, s.cfg.SetupArgs...); err != nil {
		return false, fmt.Errorf("engine setup: %w (%s)", err, ocr.Truncate(string(errb), 1024))
	}
	return s.Refresh(ctx), nil
}

func (s *Subprocess) Recognize(ctx context.Context, path string) (Result, error) {
	if !s.Available(ctx) {
		return Result{}, common.NewAppError(common.CodeEngineUnavailable, constants.EngineHandwriting, common.ErrEngineUnavailable)
	}
	ctx, cancel := common.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	img, cleanup, err := s.imageFor(ctx, path)
	if err != nil {
		return Result{}, common.EngineFailed(constants.EngineHandwriting, err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	out, errb, err := s.runner.Run(ctx, s.cfg.Python, s.logger, s.cfg.Script, img)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return Result{}, common.EngineFailed(constants.EngineHandwriting,
			fmt.Errorf("%w (%s)", err, ocr.Truncate(string(errb), 1024)))
	}
	res, err := decodeOutput(out)
	if err != nil {
		return Result{}, common.EngineFailed(constants.EngineHandwriting, err)
	}
	s.logger.Info("handwriting recognition done", "path", path, "success", res.Success,
		"chars", len(res.RawText), "duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// imageFor returns a raster image for path; PDFs contribute their first page.
func (s *Subprocess) imageFor(ctx context.Context, path string) (string, func(), error) {
	if constants.MapExtToFormat(filepath.Ext(path)) != constants.PDF {
		return path, nil, nil
	}
	dir, err := os.MkdirTemp("", "rod-hw-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	prefix := filepath.Join(dir, "page")
	args := []string{"-r", strconv.Itoa(s.cfg.DPI), "-png", "-f", "1", "-l", "1", path, prefix}
	if _, errb, err := s.runner.Run(ctx, s.cfg.Pdftoppm, s.logger, args...); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("pdftoppm: %w (%s)", err, ocr.Truncate(string(errb), 512))
	}
	pages, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(pages)
	if len(pages) == 0 {
		cleanup()
		return "", nil, fmt.Errorf("pdftoppm produced no images")
	}
	return pages[0], cleanup, nil
}

type wireField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

type wireOutput struct {
	LicenseNumber *wireField `json:"license_number"`
	NameSpouse1   *wireField `json:"name_spouse1"`
	NameSpouse2   *wireField `json:"name_spouse2"`
	MarriageDate  *wireField `json:"marriage_date"`
	RawText       string     `json:"raw_text"`
	Success       bool       `json:"success"`
	Error         *string    `json:"error"`
}

func decodeOutput(out []byte) (Result, error) {
	payload, ok := jsonObject(out)
	if !ok {
		return Result{}, fmt.Errorf("no JSON object in output: %q", ocr.Truncate(string(out), 256))
	}
	if err := validateOutput(payload); err != nil {
		return Result{}, err
	}
	var w wireOutput
	if err := json.Unmarshal(payload, &w); err != nil {
		return Result{}, fmt.Errorf("decode output: %w", err)
	}

	res := Result{Success: w.Success, RawText: strings.TrimSpace(w.RawText)}
	if w.Error != nil {
		res.Error = *w.Error
	}
	res.Fields = res.Fields.
		With(constants.Identifier, toField(w.LicenseNumber)).
		With(constants.PartyA, toField(w.NameSpouse1)).
		With(constants.PartyB, toField(w.NameSpouse2)).
		With(constants.Date, toDateField(w.MarriageDate))
	return res, nil
}

func toField(w *wireField) extract.Field {
	if w == nil {
		return extract.Field{}
	}
	return extract.Field{Value: strings.TrimSpace(w.Value), Confidence: w.Confidence}
}

// toDateField canonicalizes dates; the script may emit "1952-June-03".
func toDateField(w *wireField) extract.Field {
	f := toField(w)
	if f.Empty() {
		return f
	}
	if v, ok := extract.ParseDate(f.Value); ok {
		f.Value = v
		return f
	}
	if parts := strings.Split(f.Value, "-"); len(parts) == 3 {
		if m, ok := extract.MonthNumber(parts[1]); ok {
			if v, ok := extract.CanonicalDate(parts[0], strconv.Itoa(m), parts[2]); ok {
				f.Value = v
			}
		}
	}
	return f
}
