package extract

import (
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/aluiziolira/go-train-punctuality/models"
	"github.com/aluiziolira/go-train-punctuality/parser"
)

// dataColumns is the cell count of a data row: route, target, actual, compensation.
const dataColumns = 4

type rowState int

const (
	rowAccepting rowState = iota
	rowSkipping
)

// rowLatch is the per-table row classifier. Once a full-width (4 cell)
// emphasized row is seen it stays in rowSkipping for the rest of the table.
// Rows of any other shape never reach it.
type rowLatch struct {
	state rowState
}

// admit classifies a row after the header. emphasized reports whether the
// row carries bold markup.
func (l *rowLatch) admit(emphasized bool) (bool, SkipReason) {
	if emphasized {
		l.state = rowSkipping
		return false, SkipDivider
	}
	if l.state == rowSkipping {
		return false, SkipAfterDivider
	}
	return true, ""
}

// RowNormalizer converts the rows of one table into records.
type RowNormalizer struct {
	Observer Observer
	Logger   *slog.Logger
}

// Normalize returns the records of table, stamped with period.
func (n *RowNormalizer) Normalize(period models.PeriodKey, table *goquery.Selection) models.Dataset {
	observer := n.observer()
	logger := n.logger()

	var (
		out   models.Dataset
		latch rowLatch
	)
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		skip := func(reason SkipReason) {
			observer.RowSkipped(period, reason)
			logger.Debug("row skipped",
				slog.String("period", period.String()),
				slog.Int("row", i),
				slog.String("reason", string(reason)),
			)
		}

		if i == 0 {
			skip(SkipHeader)
			return
		}
		cells := row.Find("td")
		if cells.Length() != dataColumns {
			skip(SkipCellCount)
			return
		}
		if ok, reason := latch.admit(hasEmphasis(row)); !ok {
			skip(reason)
			return
		}

		var texts [dataColumns]string
		cells.Each(func(j int, cell *goquery.Selection) {
			texts[j] = cell.Text()
		})

		record, reason := normalizeCells(period, texts)
		if record == nil {
			skip(reason)
			return
		}
		observer.RecordExtracted(period)
		out = append(out, record)
	})
	return out
}

func normalizeCells(period models.PeriodKey, cells [dataColumns]string) (*models.PunctualityRecord, SkipReason) {
	route := parser.NormalizeRoute(cells[0])
	if route == "" {
		return nil, SkipEmptyRoute
	}
	target := parser.ParsePercent(cells[1])
	if !target.Valid {
		return nil, SkipMissingTarget
	}
	compensation := parser.ParsePercent(cells[3])
	if !compensation.Valid {
		return nil, SkipMissingCompensation
	}

	return &models.PunctualityRecord{
		Year:              period.Year,
		Month:             period.Month,
		Route:             route,
		TargetPunctuality: target,
		ActualPunctuality: parser.ParsePercent(cells[2]),
		Compensation:      compensation,
	}, ""
}

// hasEmphasis reports whether any node under the row is <strong> or <b>.
func hasEmphasis(row *goquery.Selection) bool {
	for _, node := range row.Nodes {
		if containsEmphasis(node) {
			return true
		}
	}
	return false
}

func containsEmphasis(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Strong || c.DataAtom == atom.B) {
			return true
		}
		if containsEmphasis(c) {
			return true
		}
	}
	return false
}

func (n *RowNormalizer) observer() Observer {
	if n.Observer == nil {
		return nopObserver{}
	}
	return n.Observer
}

func (n *RowNormalizer) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}
