// Package store persists scans so later export steps can pick them up.
//
// Each scan lives in its own directory:
//
//	<root>/<id>/result.json   scan metadata and the classification result
//	<root>/<id>/source.pdf    the scanned document
//	<root>/<id>/pages.yaml    recognised text per page
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/ticketscan/internal/classify"
	"github.com/MeKo-Tech/ticketscan/internal/fileutil"
	"github.com/MeKo-Tech/ticketscan/internal/scan"
)

const (
	resultFile = "result.json"
	sourceFile = "source.pdf"
	pagesFile  = "pages.yaml"
)

var (
	// ErrNoScan is returned when no stored scan matches the request.
	ErrNoScan = errors.New("no scan data found; run a scan first")
	// ErrInvalidID is returned for identifiers that could escape the store directory.
	ErrInvalidID = errors.New("invalid scan id")
)

var idPattern = regexp.MustCompile(`^[0-9]{8}T[0-9]{6}\.[0-9]{9}-[0-9a-f]{1,16}$`)

// Record is the persisted form of a scan.
type Record struct {
	ID        string              `json:"id"`
	CreatedAt time.Time           `json:"created_at"`
	Source    string              `json:"source"`
	Digest    string              `json:"digest"`
	Result    classify.ScanResult `json:"result"`
	Failures  []string            `json:"failures,omitempty"`
}

type pagesDoc struct {
	Pages []classify.Page `yaml:"pages"`
}

// Store is a directory of scans. It is safe for concurrent use by separate processes
// as long as they do not write the same id.
type Store struct {
	root string
	now  func() time.Time
}

// Open creates the store directory if needed.
func Open(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("store directory not set")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{root: root, now: time.Now}, nil
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

func newID(at time.Time, digest string) string {
	short := digest
	if len(short) > 12 {
		short = short[:12]
	}
	if short == "" {
		short = "0"
	}
	return at.UTC().Format("20060102T150405.000000000") + "-" + short
}

func (s *Store) dir(id string) (string, error) {
	if !idPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.root, id), nil
}

// Save persists a scan report and a copy of its source document, assigning report.ID.
func (s *Store) Save(report *scan.Report) (*Record, error) {
	if report == nil {
		return nil, scan.ErrNoInput
	}
	now := s.now().UTC()
	rec := &Record{
		ID:        newID(now, report.Digest),
		CreatedAt: now,
		Source:    filepath.Base(report.Source),
		Digest:    report.Digest,
		Result:    report.Result.Clone(),
	}
	for _, f := range report.Failures {
		rec.Failures = append(rec.Failures, f.Error())
	}

	dir, err := s.dir(rec.ID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create scan directory: %w", err)
	}
	if err := fileutil.CopyFile(report.Source, filepath.Join(dir, sourceFile), 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("store source document: %w", err)
	}
	pages, err := yaml.Marshal(pagesDoc{Pages: report.Pages})
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("encode page texts: %w", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(dir, pagesFile), pages, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("store page texts: %w", err)
	}
	// result.json last: its presence marks a complete scan.
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("encode result: %w", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(dir, resultFile), data, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("store result: %w", err)
	}

	report.ID = rec.ID
	return rec, nil
}

// Load returns the record for id.
func (s *Store) Load(id string) (*Record, error) {
	dir, err := s.dir(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, resultFile)) //nolint:gosec // G304: id validated above
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoScan, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read scan %s: %w", id, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode scan %s: %w", id, err)
	}
	if err := rec.Result.Validate(); err != nil {
		return nil, fmt.Errorf("scan %s is corrupt: %w", id, err)
	}
	return &rec, nil
}

// Pages returns the recognised page texts of a scan.
func (s *Store) Pages(id string) ([]classify.Page, error) {
	dir, err := s.dir(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, pagesFile)) //nolint:gosec // G304: id validated above
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoScan, id)
	}
	if err != nil {
		return nil, err
	}
	var doc pagesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode pages of %s: %w", id, err)
	}
	return doc.Pages, nil
}

// SourcePath returns the path of the stored source document.
func (s *Store) SourcePath(id string) (string, error) {
	dir, err := s.dir(id)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, sourceFile)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoScan, id)
	}
	return path, nil
}

// List returns the ids of complete scans, oldest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() || !idPattern.MatchString(e.Name()) {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, e.Name(), resultFile)); err == nil {
			ids = append(ids, e.Name())
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Latest returns the most recent complete scan.
func (s *Store) Latest() (*Record, error) {
	ids, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoScan
	}
	return s.Load(ids[len(ids)-1])
}

// Resolve loads id, or the latest scan when id is empty or "latest".
func (s *Store) Resolve(id string) (*Record, error) {
	if id == "" || id == "latest" {
		return s.Latest()
	}
	return s.Load(id)
}

// Delete removes a scan.
func (s *Store) Delete(id string) error {
	dir, err := s.dir(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNoScan, id)
	}
	return os.RemoveAll(dir)
}

// Prune keeps the newest keep scans and deletes the rest, returning how many were removed.
func (s *Store) Prune(keep int) (int, error) {
	ids, err := s.List()
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	removed := 0
	for len(ids)-removed > keep {
		if err := s.Delete(ids[removed]); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
