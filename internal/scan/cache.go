package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey struct {
	digest string
	page   int
}

// TextCache keeps recognised page text keyed by document digest and page number,
// so rescanning the same document in another mode skips OCR.
type TextCache struct {
	entries *lru.Cache[cacheKey, string]
}

// NewTextCache creates a cache holding up to size pages. A non-positive size returns nil,
// which is a valid, always-missing cache.
func NewTextCache(size int) (*TextCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New[cacheKey, string](size)
	if err != nil {
		return nil, err
	}
	return &TextCache{entries: c}, nil
}

// Get returns the cached text for a page.
func (c *TextCache) Get(digest string, page int) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.entries.Get(cacheKey{digest, page})
}

// Add stores the text for a page.
func (c *TextCache) Add(digest string, page int, text string) {
	if c == nil {
		return
	}
	c.entries.Add(cacheKey{digest, page}, text)
}

// Len returns the number of cached pages.
func (c *TextCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// FileDigest returns the hex SHA-256 of a file's contents.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // G304: scanning user-provided files is the purpose
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
