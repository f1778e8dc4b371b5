package extract

import "github.com/aluiziolira/go-train-punctuality/models"

// SkipReason labels why a table row produced no record.
type SkipReason string

const (
	SkipHeader              SkipReason = "header"
	SkipDivider             SkipReason = "divider"
	SkipAfterDivider        SkipReason = "after_divider"
	SkipCellCount           SkipReason = "cell_count"
	SkipEmptyRoute          SkipReason = "empty_route"
	SkipMissingTarget       SkipReason = "missing_target"
	SkipMissingCompensation SkipReason = "missing_compensation"
)

// Observer receives extraction events. Implementations must be safe for
// concurrent use when documents are extracted in parallel.
type Observer interface {
	TableLocated(period models.PeriodKey)
	RowSkipped(period models.PeriodKey, reason SkipReason)
	RecordExtracted(period models.PeriodKey)
	AmbiguousTable(err *AmbiguousPeriodError)
}

type nopObserver struct{}

func (nopObserver) TableLocated(models.PeriodKey) {}
func (nopObserver) RowSkipped(models.PeriodKey, SkipReason) {}
func (nopObserver) RecordExtracted(models.PeriodKey) {}
func (nopObserver) AmbiguousTable(*AmbiguousPeriodError) {}
