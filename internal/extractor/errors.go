package extractor

import (
	"errors"
	"strings"
)

// ErrLayoutMismatch is returned when the document is not a readable
// Outstanding Sales Order Listing.
var ErrLayoutMismatch = errors.New("layout mismatch")

// LayoutError lists every problem found while checking the layout
type LayoutError struct {
	Problems []string
}

func (e *LayoutError) Error() string {
	return ErrLayoutMismatch.Error() + ": " + strings.Join(e.Problems, ", ")
}

// Unwrap lets errors.Is match ErrLayoutMismatch
func (e *LayoutError) Unwrap() error {
	return ErrLayoutMismatch
}

// Summary is the comma separated problem list shown to the sender
func (e *LayoutError) Summary() string {
	return strings.Join(e.Problems, ", ")
}
