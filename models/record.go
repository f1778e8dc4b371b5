// Package models defines data structures for the punctuality extractor.
package models

import (
	"fmt"
	"time"
)

// PeriodKey stamps a report table with the year and month it belongs to.
type PeriodKey struct {
	Year  int
	Month Month
}

// Date returns the first day of the period in UTC.
func (k PeriodKey) Date() time.Time {
	return time.Date(k.Year, time.Month(k.Month), 1, 0, 0, 0, 0, time.UTC)
}

func (k PeriodKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// PunctualityRecord is one route's figures for one month.
type PunctualityRecord struct {
	Source            string  `json:"source,omitempty"`
	Year              int     `json:"year"`
	Month             Month   `json:"month"`
	Route             string  `json:"route"`
	TargetPunctuality Percent `json:"target_punctuality"`
	ActualPunctuality Percent `json:"actual_punctuality"`
	Compensation      Percent `json:"compensation"`
}

// Period returns the record's period key.
func (r *PunctualityRecord) Period() PeriodKey {
	return PeriodKey{Year: r.Year, Month: r.Month}
}

// Key identifies a record for de-duplication.
func (r *PunctualityRecord) Key() string {
	return fmt.Sprintf("%s|%04d|%02d|%s", r.Source, r.Year, int(r.Month), r.Route)
}

// Dataset is an ordered sequence of records.
type Dataset []*PunctualityRecord

// Routes returns the distinct routes in first-seen order.
func (d Dataset) Routes() []string {
	seen := make(map[string]struct{}, len(d))
	out := make([]string, 0)
	for _, r := range d {
		if _, ok := seen[r.Route]; ok {
			continue
		}
		seen[r.Route] = struct{}{}
		out = append(out, r.Route)
	}
	return out
}

// SourceSummary holds per-source counters for one run.
type SourceSummary struct {
	Name        string
	URL         string
	Tables      int
	Records     int
	RowsSkipped int
	Warnings    int
	Cached      bool
}

// ScrapeResult holds the overall result of a scraping operation.
type ScrapeResult struct {
	Records      Dataset
	Sources      []SourceSummary
	StartTime    time.Time
	EndTime      time.Time
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
	RetryCount   int
	RequestCount int
}
