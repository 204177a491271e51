package tts

import (
	"context"
	"os"
)

type tempDirKey struct{}

// WithTempDir returns a context carrying the directory engines should use
// for per-call scratch files.
func WithTempDir(ctx context.Context, dir string) context.Context {
	return context.WithValue(ctx, tempDirKey{}, dir)
}

// TempDir returns the scratch directory carried by ctx, or the system temp
// directory.
func TempDir(ctx context.Context) string {
	if dir, ok := ctx.Value(tempDirKey{}).(string); ok && dir != "" {
		return dir
	}
	return os.TempDir()
}
