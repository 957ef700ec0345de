// Package scan turns a PDF into recognised page text and classifies it.
package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/ticketscan/internal/classify"
	"github.com/MeKo-Tech/ticketscan/internal/ocr"
	"github.com/MeKo-Tech/ticketscan/internal/pdf"
)

// Options configures a Scanner.
type Options struct {
	// Workers bounds concurrent page recognition. Zero means runtime.NumCPU().
	Workers int
	// RenderScale is the page image upscale factor before OCR.
	RenderScale float64
	// Color keeps page images in colour instead of converting them to grayscale.
	Color bool
	// Filter names the resampling filter used for upscaling (see pdf.ParseFilter).
	Filter string
	// TopLines and TopChars bound the page excerpt used for ticket matching.
	TopLines int
	TopChars int
	// UseTextLayer reads the PDF's vector text where present instead of running OCR.
	UseTextLayer bool
	// CacheSize is the number of recognised pages kept between scans. Zero disables caching.
	CacheSize int
	// OCR configures each worker's OCR engine.
	OCR ocr.Options
	// Credentials open encrypted input.
	Credentials pdf.Credentials
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		RenderScale: pdf.DefaultRenderScale,
		TopLines:    classify.DefaultTopLines,
		TopChars:    classify.DefaultTopChars,
		CacheSize:   512,
		OCR:         ocr.DefaultOptions(),
	}
}

// Report is the outcome of one scan.
type Report struct {
	ID       string              `json:"id,omitempty"`
	Source   string              `json:"source"`
	Digest   string              `json:"digest"`
	Result   classify.ScanResult `json:"result"`
	Pages    []classify.Page     `json:"-"`
	Failures []*PageError        `json:"failures,omitempty"`
	// TextLayerPages and CachedPages count pages that skipped OCR.
	TextLayerPages int           `json:"text_layer_pages"`
	CachedPages    int           `json:"cached_pages"`
	Duration       time.Duration `json:"duration_ns"`
}

// Scanner runs the recognition pipeline. It is safe for concurrent use.
type Scanner struct {
	opts       Options
	factory    ocr.Factory
	customOCR  bool
	renderer   *pdf.Renderer
	classifier *classify.Classifier
	cache      *TextCache
	progress   ProgressCallback
	logger     *slog.Logger
}

// Option customises a Scanner.
type Option func(*Scanner)

// WithOCRFactory replaces the OCR engine factory.
func WithOCRFactory(f ocr.Factory) Option {
	return func(s *Scanner) {
		if f != nil {
			s.factory, s.customOCR = f, true
		}
	}
}

// WithProgress sets the progress callback.
func WithProgress(p ProgressCallback) Option {
	return func(s *Scanner) {
		if p != nil {
			s.progress = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClassifier replaces the classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(s *Scanner) {
		if c != nil {
			s.classifier = c
		}
	}
}

// New creates a Scanner.
func New(opts Options, options ...Option) (*Scanner, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	filter, err := pdf.ParseFilter(opts.Filter)
	if err != nil {
		return nil, err
	}
	cache, err := NewTextCache(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create text cache: %w", err)
	}
	s := &Scanner{
		opts:       opts,
		factory:    ocr.NewBackend,
		renderer:   pdf.NewRenderer(opts.RenderScale, pdf.WithGrayscale(!opts.Color), pdf.WithFilter(filter)),
		classifier: classify.New(),
		cache:      cache,
		progress:   NoOpProgress{},
		logger:     slog.Default(),
	}
	for _, o := range options {
		o(s)
	}
	if !s.customOCR && !ocr.Available() && !opts.UseTextLayer {
		s.logger.Warn("no OCR engine linked and text layer disabled: image-only pages will have no text",
			"hint", "rebuild with -tags tesseract or enable the text layer")
	}
	return s, nil
}

// Classifier returns the classifier in use.
func (s *Scanner) Classifier() *classify.Classifier {
	return s.classifier
}

// ScanBytes scans an in-memory PDF.
func (s *Scanner) ScanBytes(ctx context.Context, data []byte, mode classify.Mode) (*Report, error) {
	if len(data) == 0 {
		return nil, ErrNoInput
	}
	tmp, err := os.CreateTemp("", "ticketscan-upload-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temporary file: %w", err)
	}
	return s.ScanFile(ctx, tmp.Name(), mode)
}

// ScanFile recognises every page of the PDF at path and classifies the result.
// Page-level failures are recorded in the report; the affected pages are classified
// with empty text. A cancelled context aborts the scan with ctx.Err().
func (s *Scanner) ScanFile(ctx context.Context, path string, mode classify.Mode) (*Report, error) {
	if path == "" {
		return nil, ErrNoInput
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %s", classify.ErrInvalidMode, mode)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoInput, err)
	}
	start := time.Now()

	digest, err := FileDigest(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	working, cleanup, err := pdf.Decrypt(path, s.opts.Credentials)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pageCount, err := pdf.PageCount(working)
	if err != nil {
		return nil, err
	}

	report := &Report{Source: path, Digest: digest}
	texts, failures, err := s.recognize(ctx, working, digest, pageCount, report)
	if err != nil {
		return nil, err
	}
	report.Failures = failures

	report.Pages = classify.NewPagesWithLimits(texts, s.opts.TopLines, s.opts.TopChars)
	result, err := s.classifier.Classify(mode, report.Pages)
	if err != nil {
		return nil, err
	}
	report.Result = result
	report.Duration = time.Since(start)

	s.logger.Info("scan complete",
		"source", path,
		"mode", mode.String(),
		"pages", pageCount,
		"count", result.Count,
		"selected", len(result.SelectedPages),
		"failures", len(failures),
		"render_scale", s.renderer.Scale(),
		"cached_entries", s.cache.Len(),
		"duration", report.Duration.Round(time.Millisecond),
	)
	return report, nil
}

// recognize returns the text of every page, filling from the text layer and cache
// before running OCR on what remains.
func (s *Scanner) recognize(ctx context.Context, path, digest string, pageCount int, report *Report) ([]string, []*PageError, error) {
	texts := make([]string, pageCount)
	done := make([]bool, pageCount)

	if s.opts.UseTextLayer {
		layer, err := pdf.ExtractTextLayer(path)
		if err != nil {
			s.logger.Warn("text layer unavailable", "source", path, "error", err)
		}
		for page, text := range layer {
			if page < 1 || page > pageCount {
				continue
			}
			if q := pdf.AssessText(text); !q.Acceptable() {
				s.logger.Debug("text layer rejected", "page", page, "score", q.Score)
				continue
			}
			texts[page-1], done[page-1] = text, true
			report.TextLayerPages++
		}
	}

	for i := range texts {
		if done[i] {
			continue
		}
		if text, ok := s.cache.Get(digest, i+1); ok {
			texts[i], done[i] = text, true
			report.CachedPages++
		}
	}

	var pending []int
	for i := range done {
		if !done[i] {
			pending = append(pending, i+1)
		}
	}
	if len(pending) == 0 {
		return texts, nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var failures []*PageError
	images, err := s.renderer.RenderFile(path, pageCount, pending)
	if err != nil {
		// Without images every pending page degrades to empty text.
		s.logger.Warn("page image extraction failed", "source", path, "error", err)
		for _, p := range pending {
			failures = append(failures, &PageError{Page: p, Err: err})
		}
		return texts, failures, nil
	}

	ocrTexts, ocrFailures, err := s.RecognizeImages(ctx, images, pending)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range pending {
		texts[p-1] = ocrTexts[p-1]
	}
	failed := make(map[int]bool, len(ocrFailures))
	for _, f := range ocrFailures {
		failed[f.Page] = true
	}
	for _, p := range pending {
		if !failed[p] {
			s.cache.Add(digest, p, texts[p-1])
		}
	}
	return texts, append(failures, ocrFailures...), nil
}

// RecognizeImages runs OCR on the listed 1-based pages of images using a bounded pool
// of OCR engines. A nil image is a page-level failure. The returned slice is indexed
// like images; failures are sorted by page.
func (s *Scanner) RecognizeImages(ctx context.Context, images []image.Image, pages []int) ([]string, []*PageError, error) {
	texts := make([]string, len(images))
	errs := make([]error, len(images))

	workers := min(s.opts.Workers, len(pages))
	if workers < 1 {
		return texts, nil, nil
	}

	engines := make(chan ocr.Backend, workers)
	var created []ocr.Backend
	defer func() {
		for _, b := range created {
			_ = b.Close()
		}
	}()
	for range workers {
		b, err := s.factory(s.opts.OCR)
		if err != nil {
			return nil, nil, fmt.Errorf("create OCR engine: %w", err)
		}
		created = append(created, b)
		engines <- b
	}

	s.progress.OnStart(len(pages))
	var (
		mu       sync.Mutex
		finished int
	)
	step := func(page int, err error) {
		mu.Lock()
		defer mu.Unlock()
		finished++
		if err != nil {
			s.progress.OnError(page, err)
		}
		s.progress.OnProgress(finished, len(pages))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, page := range pages {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			idx := page - 1
			img := images[idx]
			if img == nil {
				errs[idx] = ErrNoPageImage
				step(page, ErrNoPageImage)
				return nil
			}

			engine := <-engines
			defer func() { engines <- engine }()

			text, err := engine.Recognize(gctx, img)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				errs[idx] = err
				step(page, err)
				return nil
			}
			texts[idx] = text
			step(page, nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.progress.OnComplete()

	var failures []*PageError
	for i, err := range errs {
		if err != nil {
			failures = append(failures, &PageError{Page: i + 1, Err: err})
		}
	}
	return texts, failures, nil
}

// Failed reports whether page failed during the scan.
func (r *Report) Failed(page int) bool {
	for _, f := range r.Failures {
		if f.Page == page {
			return true
		}
	}
	return false
}

// Err joins all page-level failures, or returns nil.
func (r *Report) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}
