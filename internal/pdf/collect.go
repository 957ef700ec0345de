package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Collect writes a new PDF to dest holding the pages of filename in the given
// order. Pages may repeat. dest is replaced only when the collection succeeds.
func Collect(filename, dest string, pages []int) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages to collect from %s", filename)
	}
	selected := make([]string, len(pages))
	for i, p := range pages {
		if p < 1 {
			return fmt.Errorf("invalid page number: %d", p)
		}
		selected[i] = strconv.Itoa(p)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".collect-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	if err := api.CollectFile(filename, tmpPath, selected, model.NewDefaultConfiguration()); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to collect pages from %s: %w", filename, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
