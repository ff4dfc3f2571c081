//go:build !gosseract

package ocr

import (
	"errors"
	"log/slog"
)

// ErrGosseractUnavailable is returned when the binary was built without the gosseract tag.
var ErrGosseractUnavailable = errors.New("built without gosseract support (rebuild with -tags gosseract)")

// NewGosseractEngine is unavailable without the gosseract build tag.
func NewGosseractEngine(Config, Runner, *slog.Logger) (*Engine, error) {
	return nil, ErrGosseractUnavailable
}
