package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MeKo-Tech/ticketscan/internal/classify"
	"github.com/MeKo-Tech/ticketscan/internal/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "scans"))
	require.NoError(t, err)

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func testReport(t *testing.T, digest string, texts ...string) *scan.Report {
	t.Helper()
	src := filepath.Join(t.TempDir(), "tickets.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF-1.4 test"), 0o600))

	pages := classify.NewPages(texts)
	res, err := classify.New().Classify(classify.ModeACGold, pages)
	require.NoError(t, err)
	return &scan.Report{
		Source:   src,
		Digest:   digest,
		Result:   res,
		Pages:    pages,
		Failures: []*scan.PageError{{Page: 2, Err: scan.ErrNoPageImage}},
	}
}

func TestStore_SaveLoad(t *testing.T) {
	s := newTestStore(t)
	report := testReport(t, "abcdef0123456789abcdef", "Trade: PA", "HEALTH AND SAFETY CHECK LIST", "other")

	rec, err := s.Save(report)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, report.ID)
	assert.Contains(t, rec.ID, "-abcdef012345")
	assert.Equal(t, "tickets.pdf", rec.Source)
	assert.Equal(t, []string{"page 2: page has no image to recognise"}, rec.Failures)

	loaded, err := s.Load(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Result, loaded.Result)
	assert.Equal(t, classify.ScopeFiltered, loaded.Result.ExportScope())
	assert.Equal(t, rec.CreatedAt, loaded.CreatedAt)

	pages, err := s.Pages(rec.ID)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "Trade: PA", pages[0].Text)
	assert.Equal(t, 3, pages[2].Number)

	src, err := s.SourcePath(rec.ID)
	require.NoError(t, err)
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test", string(data))
}

func TestStore_Latest(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Latest()
	require.ErrorIs(t, err, ErrNoScan)

	first, err := s.Save(testReport(t, "aaaa", "Trade: PA"))
	require.NoError(t, err)
	second, err := s.Save(testReport(t, "bbbb", "nothing"))
	require.NoError(t, err)

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	resolved, err := s.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, second.ID, resolved.ID)

	resolved, err = s.Resolve(first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved.Result.Count)

	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, ids)
}

func TestStore_IgnoresIncompleteScans(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Save(testReport(t, "cccc", "x"))
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "20990101T000000.000000000-ffff"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "not-a-scan"), 0o750))

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, rec.ID, latest.ID)
}

func TestStore_InvalidIDs(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"../etc", "latest", "20260101T000000.000000000-../x", ""} {
		_, err := s.Load(id)
		assert.ErrorIs(t, err, ErrInvalidID, id)
	}

	_, err := s.Load("20260101T000000.000000000-abc")
	assert.ErrorIs(t, err, ErrNoScan)
	_, err = s.SourcePath("20260101T000000.000000000-abc")
	assert.ErrorIs(t, err, ErrNoScan)
}

func TestStore_LegacyResult(t *testing.T) {
	s := newTestStore(t)
	id := "20260101T000000.000000000-abc"
	dir := filepath.Join(s.Root(), id)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	legacy := `{"id":"` + id + `","result":{"countForReports":1,"selectedPages":[2,3],"pageCount":4}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, resultFile), []byte(legacy), 0o600))

	rec, err := s.Load(id)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Result.Count)
	assert.Equal(t, classify.ScopeFiltered, rec.Result.ExportScope())
}

func TestStore_DeleteAndPrune(t *testing.T) {
	s := newTestStore(t)
	var ids []string
	for _, d := range []string{"01", "02", "03", "04"} {
		rec, err := s.Save(testReport(t, d, "x"))
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	require.NoError(t, s.Delete(ids[0]))
	assert.ErrorIs(t, s.Delete(ids[0]), ErrNoScan)

	removed, err := s.Prune(1)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	left, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{ids[3]}, left)
}

func TestOpen_EmptyRoot(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
