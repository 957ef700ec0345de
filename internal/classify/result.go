package classify

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ExportScope tells the export stage which pages to emit.
type ExportScope string

const (
	// ScopeFull emits every source page.
	ScopeFull ExportScope = "full"
	// ScopeFiltered emits only the selected pages.
	ScopeFiltered ExportScope = "filtered"
)

// Run is a contiguous, inclusive range of 1-based page ordinals forming one ticket.
type Run struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of pages in the run.
func (r Run) Len() int {
	return r.End - r.Start + 1
}

// Pages returns the ordinals covered by the run.
func (r Run) Pages() []int {
	out := make([]int, 0, r.Len())
	for p := r.Start; p <= r.End; p++ {
		out = append(out, p)
	}
	return out
}

// ScanResult is the hand-off record between classification and export.
// It is built once by a Classifier and treated as read-only afterwards.
type ScanResult struct {
	Mode          Mode        `json:"mode,omitempty"`
	Count         int         `json:"count"`
	SelectedPages []int       `json:"selected_pages"`
	PageCount     int         `json:"page_count"`
	Scope         ExportScope `json:"scope,omitempty"`
	Runs          []Run       `json:"runs,omitempty"`
}

func newResult(mode Mode, count int, selected []int, pageCount int, runs []Run) ScanResult {
	if selected == nil {
		selected = []int{}
	}
	return ScanResult{
		Mode:          mode,
		Count:         count,
		SelectedPages: selected,
		PageCount:     pageCount,
		Scope:         deriveScope(len(selected), pageCount),
		Runs:          runs,
	}
}

func deriveScope(selected, pageCount int) ExportScope {
	if selected == pageCount {
		return ScopeFull
	}
	return ScopeFiltered
}

// ExportScope returns the persisted scope, falling back to comparing the number of
// selected pages with the page count for records that carry no scope.
func (r ScanResult) ExportScope() ExportScope {
	switch r.Scope {
	case ScopeFull, ScopeFiltered:
		return r.Scope
	default:
		return deriveScope(len(r.SelectedPages), r.PageCount)
	}
}

// Clone returns a deep copy of r.
func (r ScanResult) Clone() ScanResult {
	c := r
	c.SelectedPages = slices.Clone(r.SelectedPages)
	c.Runs = slices.Clone(r.Runs)
	return c
}

// Validate checks the structural invariants of a result loaded from storage.
func (r ScanResult) Validate() error {
	if r.Count < 0 {
		return fmt.Errorf("negative count %d", r.Count)
	}
	if r.PageCount < 0 {
		return fmt.Errorf("negative page count %d", r.PageCount)
	}
	prev := 0
	for _, p := range r.SelectedPages {
		if p < 1 || p > r.PageCount {
			return fmt.Errorf("selected page %d outside 1..%d", p, r.PageCount)
		}
		if p <= prev {
			return fmt.Errorf("selected pages not strictly ascending at %d", p)
		}
		prev = p
	}
	return nil
}

// Summary returns a one-line human readable description of the result.
func (r ScanResult) Summary() string {
	pages := make([]string, len(r.SelectedPages))
	for i, p := range r.SelectedPages {
		pages[i] = strconv.Itoa(p)
	}
	return fmt.Sprintf("Found %d result(s). Bundle pages = [%s]", r.Count, strings.Join(pages, ", "))
}

// UnmarshalJSON accepts both the current field names and the legacy
// countForReports/selectedPages/pageCount keys.
func (r *ScanResult) UnmarshalJSON(data []byte) error {
	type current ScanResult
	var aux struct {
		current
		LegacyCount     *int  `json:"countForReports"`
		LegacySelected  []int `json:"selectedPages"`
		LegacyPageCount *int  `json:"pageCount"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	// Legacy keys only fill fields the record does not carry under their current name.
	var present struct {
		Count     *int `json:"count"`
		PageCount *int `json:"page_count"`
	}
	if err := json.Unmarshal(data, &present); err != nil {
		return err
	}
	*r = ScanResult(aux.current)
	if aux.LegacyCount != nil && present.Count == nil {
		r.Count = *aux.LegacyCount
	}
	if aux.LegacySelected != nil && r.SelectedPages == nil {
		r.SelectedPages = aux.LegacySelected
	}
	if aux.LegacyPageCount != nil && present.PageCount == nil {
		r.PageCount = *aux.LegacyPageCount
	}
	if r.SelectedPages == nil {
		r.SelectedPages = []int{}
	}
	return nil
}
