package pdf

import (
	"fmt"
	"strings"

	"github.com/dslipak/pdf"
)

// ExtractTextLayer reads the vector text of every page that has one. The map is keyed
// by 1-based page number; pages without text, or whose content cannot be decoded, are absent.
func ExtractTextLayer(filename string) (map[int]string, error) {
	reader, err := pdf.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %q: %w", filename, err)
	}

	out := make(map[int]string)
	for n := 1; n <= reader.NumPage(); n++ {
		text, ok := pageText(reader, n)
		if ok {
			out[n] = text
		}
	}
	return out, nil
}

func pageText(reader *pdf.Reader, n int) (text string, ok bool) {
	defer func() {
		// Malformed content streams panic inside the parser.
		if recover() != nil {
			text, ok = "", false
		}
	}()

	page := reader.Page(n)
	if page.V.IsNull() {
		return "", false
	}
	plain, err := page.GetPlainText(nil)
	if err != nil {
		return "", false
	}
	plain = strings.TrimSpace(plain)
	return plain, plain != ""
}
