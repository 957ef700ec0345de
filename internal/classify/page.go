package classify

import "strings"

// Page is one recognised page of a document.
type Page struct {
	// Number is the 1-based ordinal of the page in the source document.
	Number int `json:"number" yaml:"number"`
	// Text is the full recognised text.
	Text string `json:"text" yaml:"text"`
	// Excerpt is the header region used for ticket matching.
	Excerpt string `json:"-" yaml:"-"`
}

// Excerpt returns the first topLines lines of text, further capped at topChars characters.
// Non-positive limits disable the respective truncation.
func Excerpt(text string, topLines, topChars int) string {
	if topLines > 0 {
		lines := strings.SplitN(text, "\n", topLines+1)
		if len(lines) > topLines {
			lines = lines[:topLines]
		}
		text = strings.Join(lines, "\n")
	}
	if topChars > 0 {
		// Count characters, not bytes, so multi-byte OCR glyphs are not split.
		n := 0
		for i := range text {
			if n == topChars {
				return text[:i]
			}
			n++
		}
	}
	return text
}

// NewPages builds pages with 1-based ordinals from per-page texts, computing excerpts
// with the default limits.
func NewPages(texts []string) []Page {
	return NewPagesWithLimits(texts, DefaultTopLines, DefaultTopChars)
}

// NewPagesWithLimits is NewPages with explicit excerpt limits.
func NewPagesWithLimits(texts []string, topLines, topChars int) []Page {
	pages := make([]Page, len(texts))
	for i, t := range texts {
		pages[i] = Page{
			Number:  i + 1,
			Text:    t,
			Excerpt: Excerpt(t, topLines, topChars),
		}
	}
	return pages
}

// Texts returns the full text of each page in order.
func Texts(pages []Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Text
	}
	return out
}

func excerpts(pages []Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Excerpt
	}
	return out
}
