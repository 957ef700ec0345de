package testutil

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// PDFPage describes one page of a generated test PDF.
type PDFPage struct {
	// Text is drawn as a Helvetica text layer, one line per "\n".
	Text string
	// Image, when set, is embedded as a Flate-compressed grayscale XObject covering the page.
	Image image.Image
}

// BuildPDF returns a minimal, well-formed PDF with the given pages.
func BuildPDF(pages []PDFPage) []byte {
	var objs []string
	add := func(body string) int {
		objs = append(objs, body)
		return len(objs)
	}

	catalog := add("")
	root := add("")
	font := add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	kids := make([]string, 0, len(pages))
	for _, p := range pages {
		var content strings.Builder
		resources := fmt.Sprintf("/Font << /F1 %d 0 R >>", font)
		if p.Image != nil {
			img := add(imageObject(p.Image))
			resources += fmt.Sprintf(" /XObject << /Im0 %d 0 R >>", img)
			content.WriteString("q 612 0 0 792 0 0 cm /Im0 Do Q\n")
		}
		if p.Text != "" {
			content.WriteString("BT /F1 12 Tf 14 TL 72 720 Td\n")
			for _, line := range strings.Split(p.Text, "\n") {
				fmt.Fprintf(&content, "(%s) Tj T*\n", escapePDFString(line))
			}
			content.WriteString("ET\n")
		}
		c := add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()))
		page := add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /Contents %d 0 R /Resources << %s >> >>",
			root, c, resources))
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
	}

	objs[catalog-1] = fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", root)
	objs[root-1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>",
		strings.Join(kids, " "), len(pages))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, catalog, xref)
	return buf.Bytes()
}

// TextPDF builds a PDF with one text-only page per entry.
func TextPDF(texts ...string) []byte {
	pages := make([]PDFPage, len(texts))
	for i, t := range texts {
		pages[i] = PDFPage{Text: t}
	}
	return BuildPDF(pages)
}

// WritePDF writes a generated PDF into dir and returns its path.
func WritePDF(t *testing.T, dir, name string, pages []PDFPage) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, BuildPDF(pages), 0o600))
	return path
}

func imageObject(img image.Image) string {
	b := img.Bounds()
	var raw bytes.Buffer
	zw := zlib.NewWriter(&raw)
	row := make([]byte, b.Dx())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			row[x-b.Min.X] = color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
		}
		_, _ = zw.Write(row)
	}
	_ = zw.Close()

	return fmt.Sprintf("<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceGray "+
		"/BitsPerComponent 8 /Filter /FlateDecode /Length %d >>\nstream\n%s\nendstream",
		b.Dx(), b.Dy(), raw.Len(), raw.String())
}

func escapePDFString(s string) string {
	return strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(s)
}
