package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/nao1215/markdown"

	"github.com/aluiziolira/go-train-punctuality/models"
)

const absentCell = "N/A"

// MarkdownWriter buffers records and renders them as a Markdown report,
// one table per source, when closed.
type MarkdownWriter struct {
	filename string
	title    string
	records  models.Dataset
	closed   bool
	mu       sync.Mutex
}

// NewMarkdownWriter prepares a report at filename. The file is created on
// Close.
func NewMarkdownWriter(filename, title string) (*MarkdownWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	if title == "" {
		title = "Train punctuality"
	}
	return &MarkdownWriter{filename: filename, title: title}, nil
}

func (mw *MarkdownWriter) Write(records []*models.PunctualityRecord) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.closed {
		return ErrPipelineClosed
	}
	mw.records = append(mw.records, records...)
	return nil
}

// Close renders the buffered records and closes the file.
func (mw *MarkdownWriter) Close() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.closed {
		return nil
	}
	mw.closed = true

	f, err := os.Create(mw.filename)
	if err != nil {
		return fmt.Errorf("create markdown file: %w", err)
	}

	md := markdown.NewMarkdown(f)
	md.H1(mw.title)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Records", "Routes", "First period", "Last period"},
		Rows:   [][]string{summaryRow(mw.records)},
	})
	md.PlainText("")

	for _, group := range groupBySource(mw.records) {
		name := group.source
		if name == "" {
			name = "Report"
		}
		md.H2(name)
		md.PlainText("")
		rows := make([][]string, 0, len(group.records))
		for _, r := range group.records {
			rows = append(rows, []string{
				r.Period().String(),
				r.Route,
				percentCell(r.TargetPunctuality),
				percentCell(r.ActualPunctuality),
				percentCell(r.Compensation),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Period", "Route", "Target %", "Actual %", "Compensation %"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if err := md.Build(); err != nil {
		f.Close()
		return fmt.Errorf("render markdown: %w", err)
	}
	return f.Close()
}

// Validate ensures the report was rendered with content.
func (mw *MarkdownWriter) Validate() error {
	mw.mu.Lock()
	closed := mw.closed
	mw.mu.Unlock()
	if !closed {
		return fmt.Errorf("markdown report not rendered yet")
	}

	info, err := os.Stat(mw.filename)
	if err != nil {
		return fmt.Errorf("stat markdown file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("markdown file is empty")
	}
	return nil
}

type sourceGroup struct {
	source  string
	records models.Dataset
}

func groupBySource(records models.Dataset) []sourceGroup {
	index := make(map[string]int)
	var groups []sourceGroup
	for _, r := range records {
		i, ok := index[r.Source]
		if !ok {
			i = len(groups)
			index[r.Source] = i
			groups = append(groups, sourceGroup{source: r.Source})
		}
		groups[i].records = append(groups[i].records, r)
	}
	return groups
}

func summaryRow(records models.Dataset) []string {
	first, last := "-", "-"
	var earliest, latest models.PeriodKey
	for i, r := range records {
		p := r.Period()
		if i == 0 || before(p, earliest) {
			earliest = p
		}
		if i == 0 || before(latest, p) {
			latest = p
		}
	}
	if len(records) > 0 {
		first, last = earliest.String(), latest.String()
	}
	return []string{strconv.Itoa(len(records)), strconv.Itoa(len(records.Routes())), first, last}
}

func before(a, b models.PeriodKey) bool {
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	return a.Month < b.Month
}

func percentCell(p models.Percent) string {
	if !p.Valid {
		return absentCell
	}
	return p.String()
}
