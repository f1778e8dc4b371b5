package extract

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-train-punctuality/models"
)

// ErrNoSections means the document holds no dated tables at all.
var ErrNoSections = errors.New("no dated report sections found")

// StructuralError reports a document that cannot be extracted from.
type StructuralError struct {
	Sections int
	Err      error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural: %v (sections scanned: %d)", e.Err, e.Sections)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// AmbiguousPeriodError reports a month table found before any year heading.
type AmbiguousPeriodError struct {
	Month   models.Month
	Section int
}

func (e *AmbiguousPeriodError) Error() string {
	return fmt.Sprintf("table for %s in section %d found before any year context", e.Month, e.Section)
}
