package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/MeKo-Tech/ticketscan/internal/fileutil"
)

// DefaultSearchAddress is the address replaced in DOCX templates.
const DefaultSearchAddress = "6 Garry Place Falkirk"

const documentPart = "word/document.xml"

var (
	// ErrNoAddress is returned when no replacement address is given.
	ErrNoAddress = errors.New("replacement address is required")
	// ErrNotDOCX is returned when the input is not a Word document package.
	ErrNotDOCX = errors.New("input is not a DOCX document")
	// ErrTooFewTables is returned when the template has fewer than two top-level tables.
	ErrTooFewTables = errors.New("expected at least 2 pages in DOCX")
)

// DOCXOptions controls a DOCX build.
type DOCXOptions struct {
	// Address replaces every occurrence of Search. Required.
	Address string
	// Search defaults to DefaultSearchAddress.
	Search string
	// Copies is the number of extra copies of the second table, normally the scan count.
	Copies int
}

// DOCXStats describes what a build changed.
type DOCXStats struct {
	Replacements int `json:"replacements"`
	Tables       int `json:"tables"`
	Copies       int `json:"copies"`
}

// BuildDOCX rewrites the DOCX package in data and returns the new package.
//
// Every literal occurrence of the search address inside a text run is replaced,
// Copies deep copies of the second table are inserted directly after it, and the
// document body is reduced to its tables and section properties. All other parts
// of the package are copied unchanged.
func BuildDOCX(data []byte, opts DOCXOptions) ([]byte, DOCXStats, error) {
	if strings.TrimSpace(opts.Address) == "" {
		return nil, DOCXStats{}, ErrNoAddress
	}
	if opts.Search == "" {
		opts.Search = DefaultSearchAddress
	}
	if opts.Copies < 0 {
		return nil, DOCXStats{}, fmt.Errorf("invalid copy count: %d", opts.Copies)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, DOCXStats{}, fmt.Errorf("%w: %w", ErrNotDOCX, err)
	}
	doc, err := readDocumentPart(zr)
	if err != nil {
		return nil, DOCXStats{}, err
	}

	stats, err := rewriteDocument(doc, opts)
	if err != nil {
		return nil, DOCXStats{}, err
	}

	var buf bytes.Buffer
	if err := writePackage(&buf, zr, doc); err != nil {
		return nil, DOCXStats{}, err
	}
	return buf.Bytes(), stats, nil
}

// BuildDOCXFile reads the template at source and writes the rebuilt document to
// dest. Nothing is written when the build fails.
func BuildDOCXFile(source, dest string, opts DOCXOptions) (DOCXStats, error) {
	if strings.TrimSpace(opts.Address) == "" {
		return DOCXStats{}, ErrNoAddress
	}
	data, err := os.ReadFile(source) //nolint:gosec // G304: template path is chosen by the caller
	if err != nil {
		return DOCXStats{}, fmt.Errorf("failed to read %s: %w", source, err)
	}
	out, stats, err := BuildDOCX(data, opts)
	if err != nil {
		return DOCXStats{}, err
	}
	if err := fileutil.WriteFileAtomic(dest, out, 0o644); err != nil {
		return DOCXStats{}, fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return stats, nil
}

func readDocumentPart(zr *zip.Reader) (*xmlquery.Node, error) {
	for _, f := range zr.File {
		if f.Name != documentPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotDOCX, err)
		}
		defer func() { _ = rc.Close() }()

		doc, err := xmlquery.Parse(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotDOCX, documentPart, err)
		}
		return doc, nil
	}
	return nil, fmt.Errorf("%w: missing %s", ErrNotDOCX, documentPart)
}

func rewriteDocument(doc *xmlquery.Node, opts DOCXOptions) (DOCXStats, error) {
	body := xmlquery.FindOne(doc, "//*[local-name()='document']/*[local-name()='body']")
	if body == nil {
		return DOCXStats{}, fmt.Errorf("%w: document has no body", ErrNotDOCX)
	}
	tables := xmlquery.Find(body, "./*[local-name()='tbl']")
	if len(tables) < 2 {
		return DOCXStats{}, fmt.Errorf("%w: found %d", ErrTooFewTables, len(tables))
	}

	stats := DOCXStats{Copies: opts.Copies}
	for _, t := range xmlquery.Find(doc, "//*[local-name()='t']") {
		for c := t.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.TextNode && c.Type != xmlquery.CharDataNode {
				continue
			}
			if n := strings.Count(c.Data, opts.Search); n > 0 {
				c.Data = strings.ReplaceAll(c.Data, opts.Search, opts.Address)
				stats.Replacements += n
			}
		}
	}

	second := tables[1]
	for range opts.Copies {
		xmlquery.AddImmediateSibling(second, cloneNode(second))
	}

	for c := body.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type != xmlquery.ElementNode || (c.Data != "tbl" && c.Data != "sectPr") {
			xmlquery.RemoveFromTree(c)
		}
		c = next
	}
	stats.Tables = len(tables) + opts.Copies
	return stats, nil
}

// cloneNode returns a deep copy of n detached from any tree.
func cloneNode(n *xmlquery.Node) *xmlquery.Node {
	c := &xmlquery.Node{
		Type:         n.Type,
		Data:         n.Data,
		Prefix:       n.Prefix,
		NamespaceURI: n.NamespaceURI,
	}
	if n.Attr != nil {
		c.Attr = append([]xmlquery.Attr(nil), n.Attr...)
	}
	if n.ProcInst != nil {
		pi := *n.ProcInst
		c.ProcInst = &pi
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		xmlquery.AddChild(c, cloneNode(child))
	}
	return c
}

// writePackage copies every entry of zr to w, substituting the rewritten document part.
func writePackage(w io.Writer, zr *zip.Reader, doc *xmlquery.Node) error {
	zw := zip.NewWriter(w)
	for _, f := range zr.File {
		if f.Name == documentPart {
			dst, err := zw.CreateHeader(&zip.FileHeader{
				Name:     f.Name,
				Method:   zip.Deflate,
				Modified: f.Modified,
			})
			if err != nil {
				return err
			}
			if err := doc.WriteWithOptions(dst, xmlquery.WithEmptyTagSupport()); err != nil {
				return fmt.Errorf("failed to serialise %s: %w", documentPart, err)
			}
			continue
		}
		if err := zw.Copy(f); err != nil {
			return fmt.Errorf("failed to copy %s: %w", f.Name, err)
		}
	}
	return zw.Close()
}
