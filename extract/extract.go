package extract

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-train-punctuality/models"
)

// Options configures an Extractor.
type Options struct {
	SectionSelector string
	HeadingSelector string
	TableSelector   string
	// Strict turns a table found before any year heading into a hard error
	// instead of a skipped table with a warning.
	Strict   bool
	Observer Observer
	Logger   *slog.Logger
	Now      func() time.Time
}

// Result is the outcome of extracting one document.
type Result struct {
	Source      string
	Records     models.Dataset
	Tables      int
	RowsSkipped int
	Warnings    []error
}

// Extractor runs the locator and row normalizer over documents. It holds
// no per-document state and is safe for concurrent use.
type Extractor struct {
	locator Locator
	strict  bool
	obs     Observer
	logger  *slog.Logger
}

// NewExtractor builds an Extractor from opts.
func NewExtractor(opts Options) *Extractor {
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		locator: Locator{
			SectionSelector: opts.SectionSelector,
			HeadingSelector: opts.HeadingSelector,
			TableSelector:   opts.TableSelector,
			Now:             opts.Now,
		},
		strict: opts.Strict,
		obs:    obs,
		logger: logger,
	}
}

// ExtractReader parses HTML markup and extracts records from it.
func (e *Extractor) ExtractReader(r io.Reader) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return e.Extract(doc.Selection)
}

// Extract walks the document in order and normalizes every dated table.
// It fails with *StructuralError when no dated table exists, and with
// *AmbiguousPeriodError in strict mode.
func (e *Extractor) Extract(doc *goquery.Selection) (*Result, error) {
	if doc == nil {
		return nil, &StructuralError{Err: errors.New("nil document")}
	}

	counter := &skipCounter{Observer: e.obs}
	normalizer := &RowNormalizer{Observer: counter, Logger: e.logger}
	result := &Result{}

	for section := range e.locator.Sections(doc) {
		if section.Err != nil {
			var ambiguous *AmbiguousPeriodError
			if errors.As(section.Err, &ambiguous) {
				e.obs.AmbiguousTable(ambiguous)
			}
			if e.strict {
				return nil, section.Err
			}
			e.logger.Warn("skipping table without year context",
				slog.String("heading", section.Heading),
				slog.Int("section", section.Index),
			)
			result.Warnings = append(result.Warnings, section.Err)
			result.Tables++
			continue
		}

		e.obs.TableLocated(section.Period)
		result.Tables++
		records := normalizer.Normalize(section.Period, section.Table)
		result.Records = append(result.Records, records...)
	}

	if result.Tables == 0 {
		return nil, &StructuralError{
			Sections: doc.Find(e.locator.sectionSelector()).Length(),
			Err:      ErrNoSections,
		}
	}

	result.RowsSkipped = counter.skipped
	e.logger.Debug("document extracted",
		slog.Int("tables", result.Tables),
		slog.Int("records", len(result.Records)),
		slog.Int("rows_skipped", result.RowsSkipped),
		slog.Int("warnings", len(result.Warnings)),
	)
	return result, nil
}

// skipCounter tallies skipped rows for one document before forwarding.
type skipCounter struct {
	Observer
	skipped int
}

func (c *skipCounter) RowSkipped(period models.PeriodKey, reason SkipReason) {
	c.skipped++
	c.Observer.RowSkipped(period, reason)
}
