package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInput is returned when no document was supplied.
	ErrNoInput = errors.New("no input document")
	// ErrNoPageImage marks a page that has neither a usable text layer nor an embedded image.
	ErrNoPageImage = errors.New("page has no image to recognise")
)

// PageError records a failure isolated to one page. The page is classified with empty text.
type PageError struct {
	Page int   `json:"page"`
	Err  error `json:"-"`
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// MarshalText renders the error message for JSON reports.
func (e *PageError) MarshalText() ([]byte, error) {
	return []byte(e.Error()), nil
}
