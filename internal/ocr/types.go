package ocr

import (
	"context"
	"errors"
	"image"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// ErrNoBackend is returned when no OCR engine is linked into the binary.
var ErrNoBackend = errors.New("ocr: no engine linked; build with -tags=tesseract")

// Backend recognises the text of one image. A Backend is not required to be safe
// for concurrent use; callers create one per worker.
type Backend interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
	Close() error
}

// Options configures a Backend.
type Options struct {
	Languages   []string          `mapstructure:"languages" yaml:"languages" json:"languages"`
	PageSegMode int               `mapstructure:"page_seg_mode" yaml:"page_seg_mode" json:"page_seg_mode"`
	Variables   map[string]string `mapstructure:"variables" yaml:"variables" json:"variables,omitempty"`
}

// DefaultOptions returns options for English text with automatic page segmentation.
func DefaultOptions() Options {
	return Options{Languages: []string{DefaultLanguage}, PageSegMode: 3}
}

// Factory creates a Backend. Workers call it once each.
type Factory func(Options) (Backend, error)

// NewBackend creates the engine linked into this build.
func NewBackend(opts Options) (Backend, error) {
	if len(opts.Languages) == 0 {
		opts.Languages = []string{DefaultLanguage}
	}
	return newDefaultBackend(opts)
}

// Available reports whether an OCR engine is linked into this build.
func Available() bool {
	return engineLinked
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, img image.Image) (string, error)

// Recognize calls f.
func (f BackendFunc) Recognize(ctx context.Context, img image.Image) (string, error) {
	return f(ctx, img)
}

// Close is a no-op.
func (f BackendFunc) Close() error { return nil }

// StaticFactory returns a Factory that always yields b. Close on the returned
// backends is a no-op so b can be shared.
func StaticFactory(b Backend) Factory {
	return func(Options) (Backend, error) {
		return BackendFunc(b.Recognize), nil
	}
}
