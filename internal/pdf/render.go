package pdf

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultRenderScale is the upscale factor applied to page images before OCR.
const DefaultRenderScale = 2.0

// Renderer turns the scanned pages of a PDF into images ready for OCR.
// A scanned page is represented by its largest embedded image.
type Renderer struct {
	scale     float64
	grayscale bool
	filter    imaging.ResampleFilter
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithGrayscale converts page images to grayscale after scaling.
func WithGrayscale(enabled bool) RendererOption {
	return func(r *Renderer) { r.grayscale = enabled }
}

// WithFilter sets the resampling filter used for scaling.
func WithFilter(f imaging.ResampleFilter) RendererOption {
	return func(r *Renderer) { r.filter = f }
}

// ParseFilter maps a resampling filter name to its imaging filter. The empty
// name selects lanczos.
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lanczos":
		return imaging.Lanczos, nil
	case "catmullrom":
		return imaging.CatmullRom, nil
	case "linear":
		return imaging.Linear, nil
	case "box":
		return imaging.Box, nil
	case "nearest":
		return imaging.NearestNeighbor, nil
	default:
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resampling filter %q", name)
	}
}

// NewRenderer creates a renderer. A non-positive scale falls back to DefaultRenderScale.
func NewRenderer(scale float64, opts ...RendererOption) *Renderer {
	if scale <= 0 {
		scale = DefaultRenderScale
	}
	r := &Renderer{scale: scale, grayscale: true, filter: imaging.Lanczos}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Scale returns the configured upscale factor.
func (r *Renderer) Scale() float64 {
	return r.scale
}

// RenderFile returns one image per page of a pageCount-page document, in page
// order, extracting only the listed pages (all pages when nil). Pages without
// embedded images, or not listed, are nil so callers keep ordinal alignment.
func (r *Renderer) RenderFile(filename string, pageCount int, pages []int) ([]image.Image, error) {
	images, err := ExtractImages(filename, pages)
	if err != nil {
		return nil, err
	}
	return r.Assemble(pageCount, images), nil
}

// Assemble builds the per-page image slice for a document of pageCount pages from
// extracted images grouped by page number. Images for out-of-range pages are ignored.
func (r *Renderer) Assemble(pageCount int, images map[int][]image.Image) []image.Image {
	out := make([]image.Image, pageCount)
	for page, imgs := range images {
		if page < 1 || page > pageCount {
			continue
		}
		if best := largest(imgs); best != nil {
			out[page-1] = r.Prepare(best)
		}
	}
	return out
}

// Prepare scales img by the renderer's factor and applies grayscale conversion.
func (r *Renderer) Prepare(img image.Image) image.Image {
	b := img.Bounds()
	w := int(float64(b.Dx())*r.scale + 0.5)
	h := int(float64(b.Dy())*r.scale + 0.5)
	if w < 1 || h < 1 {
		return img
	}
	var out image.Image = imaging.Resize(img, w, h, r.filter)
	if r.grayscale {
		out = imaging.Grayscale(out)
	}
	return out
}

func largest(imgs []image.Image) image.Image {
	var (
		best image.Image
		area int
	)
	for _, img := range imgs {
		if img == nil {
			continue
		}
		b := img.Bounds()
		if a := b.Dx() * b.Dy(); best == nil || a > area {
			best, area = img, a
		}
	}
	return best
}

// String describes the renderer configuration.
func (r *Renderer) String() string {
	return fmt.Sprintf("scale=%.2f grayscale=%t", r.scale, r.grayscale)
}
