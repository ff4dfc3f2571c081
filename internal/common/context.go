package common

import (
	"context"
	"time"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	contentHashKey
	sourceNameKey
)

// WithRequestID tags ctx with the id the surfaces put in their logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the id set by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithContentHash carries the document's hex sha256 so engines can key
// their scratch artifacts on it.
func WithContentHash(ctx context.Context, hex string) context.Context {
	return context.WithValue(ctx, contentHashKey, hex)
}

func ContentHashFromContext(ctx context.Context) (string, bool) {
	v, _ := ctx.Value(contentHashKey).(string)
	return v, v != ""
}

// WithSourceName overrides the source path recorded for a document that is
// processed from a scratch copy, such as an HTTP upload.
func WithSourceName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, sourceNameKey, name)
}

func SourceNameFromContext(ctx context.Context) (string, bool) {
	v, _ := ctx.Value(sourceNameKey).(string)
	return v, v != ""
}

// WithTimeout bounds ctx by timeout. A zero or negative timeout only adds cancellation.
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
