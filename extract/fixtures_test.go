package extract

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-train-punctuality/models"
)

var fixedNow = func() time.Time {
	return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
}

const headerRow = "<tr><th>Strækning</th><th>Mål</th><th>Faktisk</th><th>Kompensation</th></tr>"

func report(sections ...string) string {
	return "<html><body><main>" + strings.Join(sections, "\n") + "</main></body></html>"
}

func yearSection(year string) string {
	return fmt.Sprintf("<section><h2>%s</h2></section>", year)
}

func monthSection(month string, rows ...string) string {
	return fmt.Sprintf("<section><h2>%s</h2><table><tbody>%s%s</tbody></table></section>",
		month, headerRow, strings.Join(rows, ""))
}

func dataRow(cells ...string) string {
	var b strings.Builder
	b.WriteString("<tr>")
	for _, c := range cells {
		fmt.Fprintf(&b, "<td>%s</td>", c)
	}
	b.WriteString("</tr>")
	return b.String()
}

// dividerRow is a four-cell emphasized row, such as a subtotal line.
func dividerRow(label string) string {
	return dataRow("<strong>"+label+"</strong>", "", "", "")
}

// headingRow is a single cell spanning the table, such as a category title.
func headingRow(label string) string {
	return `<tr><td colspan="4"><strong>` + label + `</strong></td></tr>`
}

type skipEvent struct {
	period models.PeriodKey
	reason SkipReason
}

type recordingObserver struct {
	mu        sync.Mutex
	tables    []models.PeriodKey
	skips     []skipEvent
	records   int
	ambiguous []*AmbiguousPeriodError
}

func (o *recordingObserver) TableLocated(p models.PeriodKey) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tables = append(o.tables, p)
}

func (o *recordingObserver) RowSkipped(p models.PeriodKey, r SkipReason) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skips = append(o.skips, skipEvent{period: p, reason: r})
}

func (o *recordingObserver) RecordExtracted(models.PeriodKey) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records++
}

func (o *recordingObserver) AmbiguousTable(err *AmbiguousPeriodError) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ambiguous = append(o.ambiguous, err)
}

func (o *recordingObserver) reasons() map[SkipReason]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[SkipReason]int)
	for _, s := range o.skips {
		out[s.reason]++
	}
	return out
}
