// Package classify selects job-ticket pages from recognised page text.
//
// A Classifier is a pure function over a page sequence: it performs no I/O and holds
// no mutable state, so a single instance may be shared between goroutines.
package classify

import (
	"fmt"
)

// Strategy classifies an ordered page sequence for one Mode.
type Strategy func(c *Classifier, pages []Page) ScanResult

// Classifier applies a PatternSet to page sequences.
type Classifier struct {
	patterns *PatternSet
	topLines int
	topChars int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithPatterns replaces the default pattern set.
func WithPatterns(p *PatternSet) Option {
	return func(c *Classifier) {
		if p != nil {
			c.patterns = p
		}
	}
}

// WithExcerptLimits sets the excerpt line and character limits used by ClassifyTexts.
func WithExcerptLimits(topLines, topChars int) Option {
	return func(c *Classifier) {
		c.topLines = topLines
		c.topChars = topChars
	}
}

// New creates a Classifier with the default patterns and excerpt limits.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		patterns: DefaultPatterns(),
		topLines: DefaultTopLines,
		topChars: DefaultTopChars,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Patterns returns the pattern set in use.
func (c *Classifier) Patterns() *PatternSet {
	return c.patterns
}

var strategies = map[Mode]Strategy{
	ModeACGold: selective,
	ModeBMD:    aggregate,
}

// Classify runs the strategy for mode over pages. Pages must be in ordinal order and
// carry their excerpts (see NewPages).
func (c *Classifier) Classify(mode Mode, pages []Page) (ScanResult, error) {
	strategy, ok := strategies[mode]
	if !ok {
		return ScanResult{}, fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
	return strategy(c, pages), nil
}

// ClassifyTexts builds pages from raw per-page texts using the classifier's excerpt
// limits and classifies them.
func (c *Classifier) ClassifyTexts(mode Mode, texts []string) (ScanResult, error) {
	return c.Classify(mode, NewPagesWithLimits(texts, c.topLines, c.topChars))
}

// IsBlocked reports whether any blocker in text occurs before the trade match.
// When trade is NotFound, any blocker occurrence blocks.
func (c *Classifier) IsBlocked(text string, trade Match) bool {
	blocked := false
	for _, b := range c.patterns.Blockers {
		m := Search(b, text)
		if !m.Matched {
			continue
		}
		if !trade.Matched || m.Before(trade) {
			blocked = true
		}
	}
	return blocked
}

// IsCandidate reports whether a page excerpt carries a trade label and a qualifier,
// returning the trade match alongside.
func (c *Classifier) IsCandidate(excerpt string) (bool, Match) {
	trade := Search(c.patterns.Trade, excerpt)
	if !trade.Matched {
		return false, trade
	}
	return Test(c.patterns.QualifierA, excerpt) || Test(c.patterns.QualifierB, excerpt), trade
}

func selective(c *Classifier, pages []Page) ScanResult {
	blocks := excerpts(pages)
	var (
		count    int
		selected []int
		runs     []Run
	)
	for i := 0; i < len(blocks); {
		candidate, trade := c.IsCandidate(blocks[i])
		if !candidate || c.IsBlocked(blocks[i], trade) {
			i++
			continue
		}
		end := FindRunEnd(c.patterns.Stop, blocks, i)
		run := Run{Start: i + 1, End: end + 1}
		count++
		runs = append(runs, run)
		selected = append(selected, run.Pages()...)
		i = end + 1
	}
	return newResult(ModeACGold, count, selected, len(pages), runs)
}

func aggregate(c *Classifier, pages []Page) ScanResult {
	count := 0
	selected := make([]int, len(pages))
	for i, p := range pages {
		count += CountAll(c.patterns.Keyword, p.Text)
		selected[i] = i + 1
	}
	return newResult(ModeBMD, count, selected, len(pages), nil)
}
