package extract

import (
	"errors"
	"iter"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-train-punctuality/models"
	"github.com/aluiziolira/go-train-punctuality/parser"
)

const (
	DefaultSectionSelector = "section"
	DefaultHeadingSelector = "h2"
	DefaultTableSelector   = "table"
)

// HeadingKind classifies a section heading.
type HeadingKind int

const (
	HeadingNone HeadingKind = iota
	HeadingYear
	HeadingMonth
)

// PeriodTracker carries the most recent year and month headings across a
// document traversal.
type PeriodTracker struct {
	now   func() time.Time
	year  int
	month models.Month
}

// NewPeriodTracker returns a tracker with no year or month seen yet.
// now bounds the accepted years; nil means time.Now.
func NewPeriodTracker(now func() time.Time) *PeriodTracker {
	if now == nil {
		now = time.Now
	}
	return &PeriodTracker{now: now}
}

// Observe feeds one trimmed heading to the tracker and reports what it was.
func (t *PeriodTracker) Observe(heading string) HeadingKind {
	if year, ok := parser.ParseYear(heading, t.now()); ok {
		t.year = year
		return HeadingYear
	}
	if month, ok := parser.ParseMonthHeading(heading); ok {
		t.month = month
		return HeadingMonth
	}
	return HeadingNone
}

// Period returns the current period key. It fails with
// *AmbiguousPeriodError while no year heading has been seen.
func (t *PeriodTracker) Period() (models.PeriodKey, error) {
	if t.year == 0 {
		return models.PeriodKey{Month: t.month}, &AmbiguousPeriodError{Month: t.month}
	}
	return models.PeriodKey{Year: t.year, Month: t.month}, nil
}

// Section is a month table located in the document.
type Section struct {
	Index   int
	Heading string
	Period  models.PeriodKey
	Table   *goquery.Selection
	// Err is an *AmbiguousPeriodError when the table precedes every year heading.
	Err error
}

// Locator finds dated tables in a report.
type Locator struct {
	SectionSelector string
	HeadingSelector string
	TableSelector   string
	Now             func() time.Time
}

// Sections yields one Section per month table, in document order.
// Sections are visited strictly sequentially since period state carries
// forward from one to the next.
func (l *Locator) Sections(doc *goquery.Selection) iter.Seq[Section] {
	return func(yield func(Section) bool) {
		tracker := NewPeriodTracker(l.Now)
		doc.Find(l.sectionSelector()).EachWithBreak(func(i int, sec *goquery.Selection) bool {
			heading := sec.Find(l.headingSelector()).First()
			if heading.Length() == 0 {
				return true
			}
			text := parser.NormalizeHeading(heading.Text())
			if tracker.Observe(text) != HeadingMonth {
				return true
			}

			table := sec.Find(l.tableSelector()).First()
			if table.Length() == 0 {
				return true
			}

			located := Section{Index: i, Heading: text, Table: table}
			period, err := tracker.Period()
			located.Period = period
			var ambiguous *AmbiguousPeriodError
			if errors.As(err, &ambiguous) {
				ambiguous.Section = i
				located.Err = ambiguous
			}
			return yield(located)
		})
	}
}

func (l *Locator) sectionSelector() string {
	if l.SectionSelector == "" {
		return DefaultSectionSelector
	}
	return l.SectionSelector
}

func (l *Locator) headingSelector() string {
	if l.HeadingSelector == "" {
		return DefaultHeadingSelector
	}
	return l.HeadingSelector
}

func (l *Locator) tableSelector() string {
	if l.TableSelector == "" {
		return DefaultTableSelector
	}
	return l.TableSelector
}
