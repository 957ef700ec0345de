package scan

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MeKo-Tech/ticketscan/internal/classify"
	"github.com/MeKo-Tech/ticketscan/internal/ocr"
	"github.com/MeKo-Tech/ticketscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// widthOCR recognises an image by its width, so tests can tell pages apart.
func widthOCR(byWidth map[int]string) ocr.Factory {
	return ocr.StaticFactory(ocr.BackendFunc(func(_ context.Context, img image.Image) (string, error) {
		text, ok := byWidth[img.Bounds().Dx()]
		if !ok {
			return "", errors.New("unreadable page")
		}
		return text, nil
	}))
}

func gray(w int) image.Image {
	return image.NewGray(image.Rect(0, 0, w, w))
}

func newTestScanner(t *testing.T, opts Options, options ...Option) *Scanner {
	t.Helper()
	s, err := New(opts, options...)
	require.NoError(t, err)
	return s
}

func TestRecognizeImages_PreservesOrder(t *testing.T) {
	var inFlight, peak atomic.Int32
	slow := ocr.StaticFactory(ocr.BackendFunc(func(_ context.Context, img image.Image) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		// Wider images finish first.
		time.Sleep(time.Duration(10-img.Bounds().Dx()) * time.Millisecond)
		return string(rune('a' + img.Bounds().Dx())), nil
	}))

	s := newTestScanner(t, Options{Workers: 3}, WithOCRFactory(slow))
	images := []image.Image{gray(1), gray(2), gray(3), gray(4), gray(5), gray(6)}

	texts, failures, err := s.RecognizeImages(context.Background(), images, []int{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Equal(t, []string{"b", "c", "d", "e", "f", "g"}, texts)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRecognizeImages_IsolatesFailures(t *testing.T) {
	var progress bytes.Buffer
	s := newTestScanner(t, Options{Workers: 2},
		WithOCRFactory(widthOCR(map[int]string{1: "one", 3: "three"})),
		WithProgress(NewConsoleProgress(&progress, "").WithUpdateInterval(0)),
	)
	images := []image.Image{gray(1), gray(2), gray(3), nil}

	texts, failures, err := s.RecognizeImages(context.Background(), images, []int{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "", "three", ""}, texts)

	require.Len(t, failures, 2)
	assert.Equal(t, 2, failures[0].Page)
	assert.Equal(t, 4, failures[1].Page)
	assert.ErrorIs(t, failures[1], ErrNoPageImage)
	assert.Contains(t, progress.String(), "Page 2 failed")
	assert.Contains(t, progress.String(), "Completed")
}

func TestRecognizeImages_OnlyListedPages(t *testing.T) {
	var calls atomic.Int32
	f := ocr.StaticFactory(ocr.BackendFunc(func(context.Context, image.Image) (string, error) {
		calls.Add(1)
		return "x", nil
	}))
	s := newTestScanner(t, Options{Workers: 4}, WithOCRFactory(f))

	texts, _, err := s.RecognizeImages(context.Background(), []image.Image{gray(1), gray(1), gray(1)}, []int{2})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "x", ""}, texts)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRecognizeImages_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := ocr.StaticFactory(ocr.BackendFunc(func(ctx context.Context, _ image.Image) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}))
	s := newTestScanner(t, Options{Workers: 1}, WithOCRFactory(f))

	_, _, err := s.RecognizeImages(ctx, []image.Image{gray(1), gray(1), gray(1)}, []int{1, 2, 3})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRecognizeImages_FactoryError(t *testing.T) {
	boom := errors.New("no engine")
	s := newTestScanner(t, Options{Workers: 2}, WithOCRFactory(func(ocr.Options) (ocr.Backend, error) {
		return nil, boom
	}))
	_, _, err := s.RecognizeImages(context.Background(), []image.Image{gray(1)}, []int{1})
	require.ErrorIs(t, err, boom)
}

func TestScanFile_InputErrors(t *testing.T) {
	s := newTestScanner(t, DefaultOptions())

	_, err := s.ScanFile(context.Background(), "", classify.ModeACGold)
	require.ErrorIs(t, err, ErrNoInput)

	_, err = s.ScanFile(context.Background(), "/nonexistent/x.pdf", classify.ModeACGold)
	require.ErrorIs(t, err, ErrNoInput)

	_, err = s.ScanBytes(context.Background(), nil, classify.ModeBMD)
	require.ErrorIs(t, err, ErrNoInput)

	_, err = s.ScanFile(context.Background(), "x.pdf", classify.Mode(9))
	require.ErrorIs(t, err, classify.ErrInvalidMode)
}

func TestScanFile_OCR(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WritePDF(t, dir, "tickets.pdf", []testutil.PDFPage{
		{Image: gray(10)},
		{Image: gray(20)},
		{Image: gray(30)},
		{Image: gray(40)},
	})

	var logs bytes.Buffer
	opts := DefaultOptions()
	opts.Workers = 2
	// Rendered at 2x: 10 -> 20, 20 -> 40, ...
	s := newTestScanner(t, opts,
		WithOCRFactory(widthOCR(map[int]string{
			20: "Trade: PA job ticket",
			40: "more detail",
			60: "HEALTH AND SAFETY CHECK LIST",
			80: "trade: LB",
		})),
		WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))),
	)

	report, err := s.ScanFile(context.Background(), path, classify.ModeACGold)
	require.NoError(t, err)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 2, report.Result.Count)
	assert.Equal(t, []int{1, 2, 3, 4}, report.Result.SelectedPages)
	assert.Equal(t, 4, report.Result.PageCount)
	assert.NotEmpty(t, report.Digest)
	assert.Contains(t, logs.String(), "scan complete")
	assert.Contains(t, logs.String(), `"render_scale":2`)
	assert.Contains(t, logs.String(), `"cached_entries":4`)

	// Second scan of the same document is served from the cache.
	report, err = s.ScanFile(context.Background(), path, classify.ModeBMD)
	require.NoError(t, err)
	assert.Equal(t, 4, report.CachedPages)
	assert.Equal(t, 2, report.Result.Count)
}

func TestScanFile_DegradesMissingImages(t *testing.T) {
	path := testutil.WritePDF(t, t.TempDir(), "mixed.pdf", []testutil.PDFPage{
		{Image: gray(10)},
		{Text: "no scan here"},
	})

	s := newTestScanner(t, Options{Workers: 1, RenderScale: 1},
		WithOCRFactory(widthOCR(map[int]string{10: "Trade: LB"})))

	report, err := s.ScanFile(context.Background(), path, classify.ModeACGold)
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, 2, report.Failures[0].Page)
	assert.True(t, report.Failed(2))
	assert.ErrorIs(t, report.Err(), ErrNoPageImage)
	assert.Equal(t, 2, report.Result.PageCount)
	assert.Equal(t, []int{1, 2}, report.Result.SelectedPages)
}

func TestScanFile_TextLayer(t *testing.T) {
	data := testutil.TextPDF("Trade: PA", "more detail", "HEALTH AND SAFETY CHECK LIST", "other")

	noOCR := func(ocr.Options) (ocr.Backend, error) { return nil, errors.New("OCR must not run") }
	opts := DefaultOptions()
	opts.UseTextLayer = true
	s := newTestScanner(t, opts, WithOCRFactory(noOCR))

	report, err := s.ScanBytes(context.Background(), data, classify.ModeACGold)
	require.NoError(t, err)
	assert.Equal(t, 4, report.TextLayerPages)
	assert.Equal(t, 1, report.Result.Count)
	assert.Equal(t, []int{1, 2, 3}, report.Result.SelectedPages)
	assert.Equal(t, classify.ScopeFiltered, report.Result.Scope)
}

func TestScanFile_TextLayerFallsBackToOCR(t *testing.T) {
	path := testutil.WritePDF(t, t.TempDir(), "garbled.pdf", []testutil.PDFPage{
		{Image: gray(10), Text: "@@ ## $$ %%"},
		{Text: "HEALTH AND SAFETY CHECK LIST"},
	})

	opts := Options{Workers: 1, RenderScale: 1, UseTextLayer: true}
	s := newTestScanner(t, opts, WithOCRFactory(widthOCR(map[int]string{10: "Trade: PA"})))

	report, err := s.ScanFile(context.Background(), path, classify.ModeACGold)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TextLayerPages)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 1, report.Result.Count)
	assert.Equal(t, []int{1, 2}, report.Result.SelectedPages)
}

func TestNew_WarnsWithoutOCREngine(t *testing.T) {
	if ocr.Available() {
		t.Skip("OCR engine linked")
	}
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	_, err := New(DefaultOptions(), WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "no OCR engine linked")

	logs.Reset()
	opts := DefaultOptions()
	opts.UseTextLayer = true
	_, err = New(opts, WithLogger(logger))
	require.NoError(t, err)
	assert.Empty(t, logs.String())

	_, err = New(DefaultOptions(), WithLogger(logger), WithOCRFactory(widthOCR(nil)))
	require.NoError(t, err)
	assert.Empty(t, logs.String())
}

func TestNew_InvalidFilter(t *testing.T) {
	_, err := New(Options{Filter: "bicubic"})
	require.Error(t, err)
}

func TestTextCache(t *testing.T) {
	var nilCache *TextCache
	_, ok := nilCache.Get("d", 1)
	assert.False(t, ok)
	nilCache.Add("d", 1, "x")
	assert.Zero(t, nilCache.Len())

	c, err := NewTextCache(2)
	require.NoError(t, err)
	c.Add("a", 1, "one")
	c.Add("a", 2, "two")
	c.Add("b", 1, "other")

	_, ok = c.Get("a", 1)
	assert.False(t, ok, "oldest entry evicted")
	got, ok := c.Get("b", 1)
	assert.True(t, ok)
	assert.Equal(t, "other", got)
	assert.Equal(t, 2, c.Len())

	off, err := NewTextCache(0)
	require.NoError(t, err)
	assert.Nil(t, off)
}

func TestPageError(t *testing.T) {
	inner := errors.New("tesseract crashed")
	err := error(&PageError{Page: 7, Err: inner})
	assert.EqualError(t, err, "page 7: tesseract crashed")
	assert.ErrorIs(t, err, inner)

	var pe *PageError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 7, pe.Page)
}
