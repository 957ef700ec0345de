package classify

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stopPage = "HEALTH AND SAFETY CHECK LIST"
	filler   = "more detail"
)

func classifyTexts(t *testing.T, mode Mode, texts ...string) ScanResult {
	t.Helper()
	res, err := New().ClassifyTexts(mode, texts)
	require.NoError(t, err)
	return res
}

func TestClassify_Selective(t *testing.T) {
	tests := []struct {
		name     string
		pages    []string
		count    int
		selected []int
		runs     []Run
	}{
		{
			name:     "single run closed by stop marker",
			pages:    []string{"Trade: PA job ticket", filler, stopPage},
			count:    1,
			selected: []int{1, 2, 3},
			runs:     []Run{{1, 3}},
		},
		{
			name:     "blocker before trade label",
			pages:    []string{"Additional Info ... Trade: LB"},
			count:    0,
			selected: []int{},
		},
		{
			name:     "blocker after trade label does not block",
			pages:    []string{"Trade: PA\nAdditional Info", stopPage},
			count:    1,
			selected: []int{1, 2},
			runs:     []Run{{1, 2}},
		},
		{
			name:     "job visit blocker",
			pages:    []string{"Job Visit Details for 12\nTrade: PA", stopPage},
			count:    0,
			selected: []int{},
		},
		{
			name:     "trade label without qualifier",
			pages:    []string{"Trade: Joiner", stopPage},
			count:    0,
			selected: []int{},
		},
		{
			name:     "qualifier without trade label",
			pages:    []string{"PA LB", stopPage},
			count:    0,
			selected: []int{},
		},
		{
			name:     "unterminated run extends to last page",
			pages:    []string{filler, "Trade: LB", filler, filler},
			count:    1,
			selected: []int{2, 3, 4},
			runs:     []Run{{2, 4}},
		},
		{
			name:     "start page carries stop marker",
			pages:    []string{"Trade: LB\n" + stopPage, "Trade: PA", filler},
			count:    2,
			selected: []int{1, 2, 3},
			runs:     []Run{{1, 1}, {2, 3}},
		},
		{
			name:     "pages inside a run are not re-examined",
			pages:    []string{"Trade: PA", "Trade: LB", stopPage, filler},
			count:    1,
			selected: []int{1, 2, 3},
			runs:     []Run{{1, 3}},
		},
		{
			name:     "two runs separated by unrelated pages",
			pages:    []string{"Trade: PA", stopPage, filler, "Trade; LB", filler, stopPage, filler},
			count:    2,
			selected: []int{1, 2, 4, 5, 6},
			runs:     []Run{{1, 2}, {4, 6}},
		},
		{
			name:     "OCR noise in label",
			pages:    []string{"TRAD0: pa", stopPage},
			count:    1,
			selected: []int{1, 2},
			runs:     []Run{{1, 2}},
		},
		{
			name:     "blocked candidate re-examined next page",
			pages:    []string{"Additional Info Trade: PA", "Trade: PA", stopPage},
			count:    1,
			selected: []int{2, 3},
			runs:     []Run{{2, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := classifyTexts(t, ModeACGold, tt.pages...)
			assert.Equal(t, ModeACGold, res.Mode)
			assert.Equal(t, tt.count, res.Count)
			assert.Equal(t, tt.selected, res.SelectedPages)
			assert.Equal(t, len(tt.pages), res.PageCount)
			assert.Equal(t, tt.runs, res.Runs)
		})
	}
}

func TestClassify_SelectiveUsesExcerptOnly(t *testing.T) {
	lines := make([]string, DefaultTopLines)
	for i := range lines {
		lines[i] = filler
	}
	late := strings.Join(append(lines, "Trade: PA"), "\n")

	res := classifyTexts(t, ModeACGold, late, stopPage)
	assert.Equal(t, 0, res.Count)
	assert.Empty(t, res.SelectedPages)

	res = classifyTexts(t, ModeBMD, late, stopPage)
	assert.Equal(t, 1, res.Count, "aggregate mode reads full text")
}

func TestClassify_Aggregate(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		count int
	}{
		{"one per page", []string{"Trade: PA", "trade", "TRADE item"}, 3},
		{"occurrences not pages", []string{"Trade trade tRaDe", filler}, 3},
		{"substrings count", []string{"Trades and tradesmen"}, 2},
		{"no keyword", []string{filler, stopPage}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := classifyTexts(t, ModeBMD, tt.pages...)
			assert.Equal(t, ModeBMD, res.Mode)
			assert.Equal(t, tt.count, res.Count)
			assert.Len(t, res.SelectedPages, len(tt.pages))
			for i, p := range res.SelectedPages {
				assert.Equal(t, i+1, p)
			}
			assert.Equal(t, ScopeFull, res.Scope)
			assert.Nil(t, res.Runs)
		})
	}
}

func TestClassify_ZeroPages(t *testing.T) {
	for _, mode := range []Mode{ModeACGold, ModeBMD} {
		t.Run(mode.String(), func(t *testing.T) {
			res := classifyTexts(t, mode)
			assert.Equal(t, 0, res.Count)
			assert.Equal(t, []int{}, res.SelectedPages)
			assert.Equal(t, 0, res.PageCount)
		})
	}
}

func TestClassify_InvalidMode(t *testing.T) {
	_, err := New().Classify(Mode(0), nil)
	require.ErrorIs(t, err, ErrInvalidMode)
}

func TestClassify_ExportScope(t *testing.T) {
	full := classifyTexts(t, ModeACGold, "Trade: PA", filler)
	assert.Equal(t, ScopeFull, full.Scope)
	assert.Equal(t, ScopeFull, full.ExportScope())

	filtered := classifyTexts(t, ModeACGold, filler, "Trade: PA", stopPage, filler)
	assert.Equal(t, ScopeFiltered, filtered.Scope)
	assert.Equal(t, []int{2, 3}, filtered.SelectedPages)
}

func TestScanResult_ExportScopeFallback(t *testing.T) {
	tests := []struct {
		name string
		res  ScanResult
		want ExportScope
	}{
		{"equal lengths", ScanResult{SelectedPages: []int{1, 2}, PageCount: 2}, ScopeFull},
		{"fewer selected", ScanResult{SelectedPages: []int{2}, PageCount: 2}, ScopeFiltered},
		{"persisted scope wins", ScanResult{SelectedPages: []int{1, 2}, PageCount: 2, Scope: ScopeFiltered}, ScopeFiltered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.res.ExportScope())
		})
	}
}

func TestScanResult_JSON(t *testing.T) {
	res := classifyTexts(t, ModeACGold, "Trade: PA", stopPage, filler)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mode":"ACGOLD"`)
	assert.Contains(t, string(data), `"scope":"filtered"`)

	var back ScanResult
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, res, back)
}

func TestScanResult_LegacyJSON(t *testing.T) {
	var res ScanResult
	err := json.Unmarshal([]byte(`{"countForReports":2,"selectedPages":[1,2,5],"pageCount":5}`), &res)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Count)
	assert.Equal(t, []int{1, 2, 5}, res.SelectedPages)
	assert.Equal(t, 5, res.PageCount)
	assert.Equal(t, ExportScope(""), res.Scope)
	assert.Equal(t, ScopeFiltered, res.ExportScope())
	require.NoError(t, res.Validate())
}

func TestScanResult_LegacyJSONDoesNotOverride(t *testing.T) {
	var res ScanResult
	data := `{"count":1,"selected_pages":[2,3],"page_count":4,` +
		`"countForReports":7,"selectedPages":[1],"pageCount":9}`
	require.NoError(t, json.Unmarshal([]byte(data), &res))

	assert.Equal(t, 1, res.Count)
	assert.Equal(t, []int{2, 3}, res.SelectedPages)
	assert.Equal(t, 4, res.PageCount)

	// A current key set to zero still wins.
	require.NoError(t, json.Unmarshal([]byte(`{"count":0,"countForReports":3}`), &res))
	assert.Zero(t, res.Count)
}

func TestScanResult_Validate(t *testing.T) {
	tests := []struct {
		name    string
		res     ScanResult
		wantErr bool
	}{
		{"valid", ScanResult{Count: 1, SelectedPages: []int{1, 2}, PageCount: 3}, false},
		{"empty", ScanResult{SelectedPages: []int{}}, false},
		{"negative count", ScanResult{Count: -1}, true},
		{"out of range", ScanResult{SelectedPages: []int{4}, PageCount: 3}, true},
		{"zero ordinal", ScanResult{SelectedPages: []int{0}, PageCount: 3}, true},
		{"duplicate", ScanResult{SelectedPages: []int{1, 1}, PageCount: 3}, true},
		{"descending", ScanResult{SelectedPages: []int{2, 1}, PageCount: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.res.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScanResult_SummaryAndClone(t *testing.T) {
	res := classifyTexts(t, ModeACGold, "Trade: PA", stopPage, filler)
	assert.Equal(t, "Found 1 result(s). Bundle pages = [1, 2]", res.Summary())

	c := res.Clone()
	c.SelectedPages[0] = 99
	c.Runs[0].End = 99
	assert.Equal(t, 1, res.SelectedPages[0])
	assert.Equal(t, 2, res.Runs[0].End)
}

func TestIsBlocked(t *testing.T) {
	c := New()
	tests := []struct {
		name  string
		text  string
		trade Match
		want  bool
	}{
		{"no blockers", "Trade: PA", Found(0), false},
		{"blocker before", "Additional Info Trade: PA", Found(16), true},
		{"blocker after", "Trade: PA Additional Info", Found(0), false},
		{"trade not found, blocker present", "Additional Info", NotFound, true},
		{"trade not found, no blocker", filler, NotFound, false},
		{"second blocker after", "Trade: PA Job Visit Details for x", Found(0), false},
		{"second blocker before", "Job Visit Details for x Trade: PA", Found(24), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsBlocked(tt.text, tt.trade))
		})
	}
}

func TestWithPatterns(t *testing.T) {
	p := DefaultPatterns()
	p.Stop = nil

	res, err := New(WithPatterns(p)).ClassifyTexts(ModeACGold, []string{"Trade: PA", stopPage, filler})
	require.NoError(t, err)
	assert.Equal(t, []Run{{1, 3}}, res.Runs, "without a stop pattern runs extend to the end")
}

func TestWithExcerptLimits(t *testing.T) {
	text := "header\nTrade: PA"
	c := New(WithExcerptLimits(1, 0))
	res, err := c.ClassifyTexts(ModeACGold, []string{text})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)

	c = New(WithExcerptLimits(0, 0))
	res, err = c.ClassifyTexts(ModeACGold, []string{text})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
}

func TestExplain(t *testing.T) {
	c := New()
	pages := NewPages([]string{
		"Falkirk JOB TICKET\nTrade: PA",
		filler,
		stopPage,
		"Additional Info Trade: LB",
	})

	reports := c.Explain(pages)
	require.Len(t, reports, 4)

	assert.True(t, reports[0].RunStart)
	assert.True(t, reports[0].QualifierA)
	assert.True(t, reports[0].Candidate())
	assert.Len(t, reports[0].Headers, 2)
	assert.Equal(t, 1, reports[1].InRun)
	assert.True(t, reports[2].Stop)
	assert.Equal(t, 1, reports[2].InRun)

	assert.True(t, reports[3].Blocked)
	assert.True(t, reports[3].Candidate())
	assert.False(t, reports[3].RunStart)
	assert.Zero(t, reports[3].InRun)
	assert.Contains(t, reports[3].String(), "BLOCKED")
	assert.Contains(t, reports[0].String(), "[run start]")
}
