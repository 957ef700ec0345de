//go:build !tesseract

package ocr

import (
	"context"
	"image"
)

const engineLinked = false

type noBackend struct{}

func newDefaultBackend(Options) (Backend, error) { return noBackend{}, nil }

func (noBackend) Recognize(context.Context, image.Image) (string, error) {
	return "", ErrNoBackend
}

func (noBackend) Close() error { return nil }
