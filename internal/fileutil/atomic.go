// Package fileutil writes output files so that readers never observe a partial file.
package fileutil

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic streams r into a temporary file next to dest and renames it over dest.
// On any error dest is left untouched and the temporary file is removed.
func WriteAtomic(dest string, r io.Reader, perm os.FileMode) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	bw := bufio.NewWriter(tmp)
	if _, err := io.Copy(bw, r); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// WriteFileAtomic is WriteAtomic for an in-memory payload.
func WriteFileAtomic(dest string, data []byte, perm os.FileMode) error {
	return WriteAtomic(dest, bytes.NewReader(data), perm)
}

// CopyFile copies src to dest atomically.
func CopyFile(src, dest string, perm os.FileMode) error {
	f, err := os.Open(src) //nolint:gosec // G304: copying caller-chosen files is the purpose
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return WriteAtomic(dest, f, perm)
}
