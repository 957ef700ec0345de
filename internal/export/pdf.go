// Package export writes scan results back out as documents: the selected pages
// of the source PDF, or a DOCX report with one ticket table per counted run.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/ticketscan/internal/classify"
	"github.com/MeKo-Tech/ticketscan/internal/fileutil"
	"github.com/MeKo-Tech/ticketscan/internal/pdf"
)

// Output file names.
const (
	FilteredPDFName = "acgold-extracted.pdf"
	FullPDFName     = "bmd-full.pdf"
	DOCXName        = "modified.docx"
)

var (
	// ErrNothingSelected is returned when a filtered export has no pages to write.
	ErrNothingSelected = errors.New("scan result selects no pages")
	// ErrPageMismatch is returned when the result does not fit the source document.
	ErrPageMismatch = errors.New("scan result does not match source document")
)

// PDFName returns the file name used for a PDF export of result.
func PDFName(result classify.ScanResult) string {
	if result.ExportScope() == classify.ScopeFull {
		return FullPDFName
	}
	return FilteredPDFName
}

// PDFPlan is the page sequence an export will write.
type PDFPlan struct {
	Scope classify.ExportScope
	// Pages is nil for a full export.
	Pages []int
}

// PlanPDF decides what a PDF export of result writes, checked against the page
// count of the source document.
func PlanPDF(result classify.ScanResult, sourcePages int) (PDFPlan, error) {
	if result.PageCount != sourcePages {
		return PDFPlan{}, fmt.Errorf("%w: result covers %d page(s), document has %d",
			ErrPageMismatch, result.PageCount, sourcePages)
	}
	scope := result.ExportScope()
	if scope == classify.ScopeFull {
		return PDFPlan{Scope: scope}, nil
	}
	if len(result.SelectedPages) == 0 {
		return PDFPlan{}, ErrNothingSelected
	}
	for _, p := range result.SelectedPages {
		if p < 1 || p > sourcePages {
			return PDFPlan{}, fmt.Errorf("%w: page %d out of range 1-%d", ErrPageMismatch, p, sourcePages)
		}
	}
	pages := make([]int, len(result.SelectedPages))
	copy(pages, result.SelectedPages)
	return PDFPlan{Scope: scope, Pages: pages}, nil
}

// ExportPDF writes the pages of source chosen by result to dest. A full-scope
// result copies the document; a filtered result collects the selected pages in
// listed order. dest is only replaced on success.
func ExportPDF(source string, result classify.ScanResult, dest string) (PDFPlan, error) {
	if source == "" || dest == "" {
		return PDFPlan{}, errors.New("source and destination are required")
	}
	n, err := pdf.PageCount(source)
	if err != nil {
		return PDFPlan{}, err
	}
	plan, err := PlanPDF(result, n)
	if err != nil {
		return PDFPlan{}, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return PDFPlan{}, fmt.Errorf("create output directory: %w", err)
	}
	if plan.Scope == classify.ScopeFull {
		if err := fileutil.CopyFile(source, dest, 0o644); err != nil {
			return PDFPlan{}, fmt.Errorf("failed to copy %s: %w", source, err)
		}
		return plan, nil
	}
	if err := pdf.Collect(source, dest, plan.Pages); err != nil {
		return PDFPlan{}, err
	}
	return plan, nil
}
