// Package cascade runs the fast recognition path and, when its confidence is
// too low, escalates to the handwriting engine.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/rod-records/constants"
	"github.com/joseph-ayodele/rod-records/internal/common"
	"github.com/joseph-ayodele/rod-records/internal/core/ocr"
	"github.com/joseph-ayodele/rod-records/internal/extract"
	"github.com/joseph-ayodele/rod-records/internal/handwriting"
	"github.com/joseph-ayodele/rod-records/internal/pdftext"
)

const (
	warnPDFTextEmpty           = "PDF text empty; falling back to OCR"
	warnSpecializedUnavailable = "Handwriting engine unavailable; keeping fast result"
)

// Options holds the cascade's thresholds. Zero values select the defaults.
type Options struct {
	VerificationThreshold            float64
	SpecializedVerificationThreshold float64
	EscalationThreshold              float64
	MinPDFTextChars                  int
	Resolver                         extract.Options
}

// OptionsFrom maps application configuration onto Options.
func OptionsFrom(c common.CascadeConfig) (Options, error) {
	policy, err := extract.ParsePartyPolicy(c.PartyPolicy)
	if err != nil {
		return Options{}, common.NewAppError(common.CodeConfig, "cascade.party_policy", err)
	}
	return Options{
		VerificationThreshold:            c.VerificationThreshold,
		SpecializedVerificationThreshold: c.SpecializedVerificationThreshold,
		EscalationThreshold:              c.EscalationThreshold,
		MinPDFTextChars:                  c.MinPDFTextChars,
		Resolver: extract.Options{
			DefaultConfidence: c.DefaultConfidence,
			Policy:            policy,
		},
	}, nil
}

func (o Options) withDefaults() Options {
	if o.VerificationThreshold <= 0 {
		o.VerificationThreshold = constants.VerificationThreshold
	}
	if o.SpecializedVerificationThreshold <= 0 {
		o.SpecializedVerificationThreshold = constants.SpecializedVerificationThreshold
	}
	if o.EscalationThreshold <= 0 {
		o.EscalationThreshold = constants.EscalationThreshold
	}
	if o.MinPDFTextChars <= 0 {
		o.MinPDFTextChars = constants.MinPDFTextChars
	}
	return o
}

// Orchestrator is the single entry point from a document path to an
// extraction result. It keeps no per-request state and is safe for
// concurrent use; engines run strictly one after the other per document.
type Orchestrator struct {
	fast     ocr.FastEngine
	pdf      pdftext.Extractor  // optional
	hw       handwriting.Engine // optional
	opts     Options
	resolver *extract.Resolver
	logger   *slog.Logger
}

func New(fast ocr.FastEngine, pdf pdftext.Extractor, hw handwriting.Engine, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()
	return &Orchestrator{
		fast:     fast,
		pdf:      pdf,
		hw:       hw,
		opts:     opts,
		resolver: extract.NewResolver(opts.Resolver),
		logger:   logger,
	}
}

// ProcessDocument never fails: engine problems become warnings and a
// degraded result, an unreadable source becomes Result.Error.
func (o *Orchestrator) ProcessDocument(ctx context.Context, path string) extract.Result {
	start := time.Now()
	var (
		out   extract.Result
		snap  Snapshot
		fatal error
	)
	for st := Start; st != Done; st = next(st, snap) {
		switch st {
		case Start:
			out, fatal = o.runFast(ctx, path)
			snap.Fatal = fatal != nil
		case FastAttempted:
			snap.Wanted = ShouldEscalate(out, o.opts.EscalationThreshold)
			if snap.Wanted {
				snap.Available = o.hw != nil && o.hw.Available(ctx)
				if !snap.Available {
					out.Warnings = append(out.Warnings, warnSpecializedUnavailable)
				}
			}
		case Escalated:
			out = o.escalate(ctx, path, out)
		}
	}

	o.logger.Info("document processed",
		"path", path,
		"engine", out.Engine,
		"needs_verification", out.NeedsVerification,
		"escalated", snap.Wanted && snap.Available,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out
}

// runFast produces the fast result. The returned error is non-nil only when
// the document cannot be processed at all.
func (o *Orchestrator) runFast(ctx context.Context, path string) (extract.Result, error) {
	if err := checkReadable(path); err != nil {
		o.logger.Warn("source unreadable", "path", path, "error", err)
		return extract.Failed(err, nil), err
	}
	format := constants.MapExtToFormat(filepath.Ext(path))
	if format == "" {
		err := fmt.Errorf("%w: unsupported file type %q", common.ErrInvalidInput, filepath.Ext(path))
		return extract.Failed(err, nil), err
	}

	var warnings []string
	if format == constants.PDF && o.pdf != nil {
		text, err := o.pdf.Extract(ctx, path)
		switch {
		case errors.Is(err, common.ErrSourceReadFailed):
			return extract.Failed(err, nil), err
		case err != nil:
			o.logger.Warn("pdf text extraction failed", "path", path, "error", err)
			warnings = append(warnings, fmt.Sprintf("PDF text extraction failed (%v); falling back to OCR", err))
		case pdftext.CountNonSpace(text) >= o.opts.MinPDFTextChars:
			res := o.resolver.Build(ocr.Normalize(text), nil, o.opts.VerificationThreshold)
			res.Engine = constants.EnginePDFText
			return res, nil
		default:
			warnings = append(warnings, warnPDFTextEmpty)
		}
	}

	rec, err := o.fast.Recognize(ctx, path)
	if err != nil {
		o.logger.Warn("fast engine failed", "path", path, "error", err)
		res := extract.Failed(err, append(warnings, rec.Warnings...))
		res.Engine = engineName(o.fast)
		return res, nil
	}
	res := o.resolver.Build(ocr.Normalize(rec.Text), rec.Words, o.opts.VerificationThreshold)
	res.Warnings = append(append(res.Warnings, warnings...), rec.Warnings...)
	res.Engine = engineName(o.fast)
	return res, nil
}

func (o *Orchestrator) escalate(ctx context.Context, path string, fast extract.Result) extract.Result {
	fast.Warnings = append(fast.Warnings, fmt.Sprintf(
		"Low confidence (min %.2f < %.2f); escalating to handwriting engine",
		extract.MinConfidence(fast.Fields), o.opts.EscalationThreshold))

	hw, err := o.hw.Recognize(ctx, path)
	if err != nil {
		o.logger.Warn("handwriting engine failed", "path", path, "error", err)
		fast.Warnings = append(fast.Warnings, fmt.Sprintf("Handwriting engine failed (%v); keeping fast result", err))
		return fast
	}
	special, usable := fromSpecialized(hw, o.opts.Resolver, o.opts.SpecializedVerificationThreshold)
	return merge(fast, special, usable, hw.Error)
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return common.SourceReadFailed(path, err)
	}
	defer func() { _ = f.Close() }()
	st, err := f.Stat()
	if err != nil {
		return common.SourceReadFailed(path, err)
	}
	if st.IsDir() {
		return common.SourceReadFailed(path, errors.New("is a directory"))
	}
	return nil
}

func engineName(e ocr.FastEngine) string {
	if n, ok := e.(interface{ Name() string }); ok && n.Name() != "" {
		return n.Name()
	}
	return constants.EngineFastOCR
}
