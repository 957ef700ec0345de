//go:build tesseract

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

const engineLinked = true

type tesseractBackend struct {
	client *gosseract.Client
}

func newDefaultBackend(opts Options) (Backend, error) {
	c := gosseract.NewClient()
	if err := c.SetLanguage(opts.Languages...); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if opts.PageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(opts.PageSegMode)); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("set page segmentation mode: %w", err)
		}
	}
	for k, v := range opts.Variables {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	return &tesseractBackend{client: c}, nil
}

func (b *tesseractBackend) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode page image: %w", err)
	}
	if err := b.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := b.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

func (b *tesseractBackend) Close() error {
	return b.client.Close()
}
