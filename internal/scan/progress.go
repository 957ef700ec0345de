package scan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives page recognition progress. Calls may come from several
// workers; implementations must be safe for concurrent use.
type ProgressCallback interface {
	// OnStart is called once with the number of pages that need recognition.
	OnStart(total int)
	// OnProgress is called after each page with the number of finished pages.
	OnProgress(done, total int)
	// OnComplete is called when recognition has finished.
	OnComplete()
	// OnError is called for each page-level failure.
	OnError(page int, err error)
}

// NoOpProgress ignores all progress.
type NoOpProgress struct{}

func (NoOpProgress) OnStart(int)        {}
func (NoOpProgress) OnProgress(int, int) {}
func (NoOpProgress) OnComplete()        {}
func (NoOpProgress) OnError(int, error) {}

// ConsoleProgress draws a progress bar to a writer, usually stderr.
type ConsoleProgress struct {
	writer         io.Writer
	prefix         string
	width          int
	updateInterval time.Duration

	mu         sync.Mutex
	lastUpdate time.Time
	startTime  time.Time
}

// NewConsoleProgress creates a console reporter. A nil writer means stderr.
func NewConsoleProgress(writer io.Writer, prefix string) *ConsoleProgress {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleProgress{
		writer:         writer,
		prefix:         prefix,
		width:          40,
		updateInterval: 100 * time.Millisecond,
	}
}

// WithWidth sets the bar width.
func (c *ConsoleProgress) WithWidth(width int) *ConsoleProgress {
	c.width = width
	return c
}

// WithUpdateInterval sets the minimum time between redraws.
func (c *ConsoleProgress) WithUpdateInterval(d time.Duration) *ConsoleProgress {
	c.updateInterval = d
	return c
}

func (c *ConsoleProgress) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	c.lastUpdate = time.Time{}
	_, _ = fmt.Fprintf(c.writer, "%sRecognising %d page(s)\n", c.prefix, total)
}

func (c *ConsoleProgress) OnProgress(done, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.lastUpdate) < c.updateInterval && done < total {
		return
	}
	c.lastUpdate = now
	if total <= 0 {
		return
	}

	filled := c.width * done / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", c.width-filled)
	_, _ = fmt.Fprintf(c.writer, "\r%s[%s] page %d of %d (%.1f%%)",
		c.prefix, bar, done, total, float64(done)/float64(total)*100)
}

func (c *ConsoleProgress) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = fmt.Fprintf(c.writer, "\n%sCompleted in %v\n", c.prefix, time.Since(c.startTime).Round(time.Millisecond))
}

func (c *ConsoleProgress) OnError(page int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = fmt.Fprintf(c.writer, "\n%sPage %d failed: %v\n", c.prefix, page, err)
}

// LogProgress reports progress through slog every interval pages.
type LogProgress struct {
	logger   *slog.Logger
	level    slog.Level
	interval int

	mu        sync.Mutex
	lastLog   int
	startTime time.Time
}

// NewLogProgress creates a log reporter. A nil logger means slog.Default().
func NewLogProgress(logger *slog.Logger, level slog.Level) *LogProgress {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgress{logger: logger, level: level, interval: 10}
}

// WithInterval sets how many pages pass between log lines.
func (l *LogProgress) WithInterval(n int) *LogProgress {
	if n > 0 {
		l.interval = n
	}
	return l
}

func (l *LogProgress) OnStart(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.startTime = time.Now()
	l.lastLog = 0
	l.logger.Log(context.Background(), l.level, "recognition started", "pages", total)
}

func (l *LogProgress) OnProgress(done, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if done-l.lastLog < l.interval && done != total {
		return
	}
	l.lastLog = done
	l.logger.Log(context.Background(), l.level, "recognition progress",
		"done", done,
		"total", total,
		"elapsed", time.Since(l.startTime).Round(time.Millisecond),
	)
}

func (l *LogProgress) OnComplete() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Log(context.Background(), l.level, "recognition completed",
		"elapsed", time.Since(l.startTime).Round(time.Millisecond))
}

func (l *LogProgress) OnError(page int, err error) {
	l.logger.Warn("page recognition failed", "page", page, "error", err)
}

// MultiProgress fans progress out to several callbacks.
type MultiProgress []ProgressCallback

func (m MultiProgress) OnStart(total int) {
	for _, cb := range m {
		cb.OnStart(total)
	}
}

func (m MultiProgress) OnProgress(done, total int) {
	for _, cb := range m {
		cb.OnProgress(done, total)
	}
}

func (m MultiProgress) OnComplete() {
	for _, cb := range m {
		cb.OnComplete()
	}
}

func (m MultiProgress) OnError(page int, err error) {
	for _, cb := range m {
		cb.OnError(page, err)
	}
}
