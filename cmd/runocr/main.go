package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/rod-records/internal/common"
	"github.com/joseph-ayodele/rod-records/internal/core/ocr"
	"github.com/joseph-ayodele/rod-records/internal/extract"
)

// runocr runs only the fast engine on one scan and prints what the resolver
// makes of it. Useful for tuning patterns without the cascade or the store.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <scan-path>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg, err := common.LoadConfig(os.Getenv("ROD_CONFIG"))
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(2)
	}
	policy, err := extract.ParsePartyPolicy(cfg.Cascade.PartyPolicy)
	if err != nil {
		logger.Error("party policy", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	engine := ocr.NewTesseractEngine(ocr.ConfigFrom(cfg.OCR), ocr.ExecRunner{}, logger)

	start := time.Now()
	rec, err := engine.Recognize(ctx, path)
	dur := time.Since(start)
	if err != nil {
		logger.Error("recognition failed", "path", path, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}
	logger.Info("recognition OK",
		"method", rec.Method,
		"pages", rec.Pages,
		"words", len(rec.Words),
		"bytes", len(rec.Text),
		"duration_ms", dur.Milliseconds(),
	)

	resolver := extract.NewResolver(extract.Options{
		DefaultConfidence: cfg.Cascade.DefaultConfidence,
		Policy:            policy,
	})
	res := resolver.Build(ocr.Normalize(rec.Text), rec.Words, cfg.Cascade.VerificationThreshold)
	res.Engine = engine.Name()
	res.Warnings = append(res.Warnings, rec.Warnings...)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
}
