package pdf

import (
	"strings"
	"unicode"
)

// MinTextQuality is the score a text layer page needs to be used instead of OCR.
const MinTextQuality = 0.75

// TextQuality summarises how usable an extracted text layer is. Broken font
// encodings produce layers full of symbols and control characters; those pages
// are better recognised from their image.
type TextQuality struct {
	Score      float64 `json:"score"`
	Words      int     `json:"words"`
	AlnumRatio float64 `json:"alnum_ratio"`
}

// AssessText scores text between 0 and 1.
func AssessText(text string) TextQuality {
	text = strings.TrimSpace(text)
	if text == "" {
		return TextQuality{}
	}

	var total, alnum int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}

	q := TextQuality{Words: len(strings.Fields(text))}
	if total > 0 {
		q.AlnumRatio = float64(alnum) / float64(total)
	}

	q.Score = 0.4
	if q.AlnumRatio >= 0.5 {
		q.Score += 0.4
	}
	if q.Words > 5 {
		q.Score += 0.2
	}
	return q
}

// Acceptable reports whether the text is good enough to skip OCR.
func (q TextQuality) Acceptable() bool {
	return q.Score >= MinTextQuality
}
