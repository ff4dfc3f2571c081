package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// heicArgs returns the converter command line for in -> out.
func heicArgs(converter, in, out string) (string, []string, error) {
	switch converter {
	case "heif-convert":
		return "heif-convert", []string{in, out}, nil
	case "magick":
		return "magick", []string{in, out}, nil
	case "sips":
		return "sips", []string{"-s", "format", "png", in, "--out", out}, nil
	default:
		return "", nil, fmt.Errorf("HEIC not supported: set ocr.heic_converter to one of: heif-convert | magick | sips")
	}
}

// convertHEICtoPNG converts a HEIC/HEIF scan to PNG. With a cacheDir and a
// content hash the PNG is kept at {cacheDir}/{hash}.png and reused; cleanup
// is then nil. Otherwise the PNG lives in a temp dir removed by cleanup.
func convertHEICtoPNG(ctx context.Context, r Runner, logger *slog.Logger, converter, in, cacheDir, hashHex string) (string, func(), error) {
	cached := ""
	if cacheDir != "" && hashHex != "" {
		cached = filepath.Join(cacheDir, hashHex+".png")
		if st, err := os.Stat(cached); err == nil && !st.IsDir() {
			logger.Debug("using cached heic->png", "cache", cached)
			return cached, nil, nil
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return "", nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "rod-heic-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "page.png")

	name, args, err := heicArgs(converter, in, out)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if _, errb, err := r.Run(ctx, name, logger, args...); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("%s convert failed: %w (%s)", name, err, Truncate(string(errb), 512))
	}
	if _, err := os.Stat(out); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	if cached == "" {
		return out, cleanup, nil
	}

	defer cleanup()
	if err := os.Rename(out, cached); err != nil {
		// cross-device rename; fall back to a copy
		if err := copyFile(out, cached); err != nil {
			return "", nil, err
		}
	}
	logger.Debug("cached heic->png", "cache", cached)
	return cached, nil, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
