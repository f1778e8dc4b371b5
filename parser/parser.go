package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-train-punctuality/models"
)

// ValidateRecord ensures a record carries the fields every consumer relies on.
func ValidateRecord(r *models.PunctualityRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.Route) == "" {
		return fmt.Errorf("record missing route")
	}
	if r.Year < FirstReportYear {
		return fmt.Errorf("record %s has invalid year %d", r.Route, r.Year)
	}
	if !r.Month.Valid() {
		return fmt.Errorf("record %s has invalid month %d", r.Route, int(r.Month))
	}
	if !r.TargetPunctuality.Valid {
		return fmt.Errorf("record %s missing target punctuality", r.Route)
	}
	if !r.Compensation.Valid {
		return fmt.Errorf("record %s missing compensation", r.Route)
	}
	for name, p := range map[string]models.Percent{
		"target":       r.TargetPunctuality,
		"actual":       r.ActualPunctuality,
		"compensation": r.Compensation,
	} {
		if p.Valid && (p.Value < 0 || p.Value > 100) {
			return fmt.Errorf("record %s %s out of range: %v", r.Route, name, p.Value)
		}
	}
	return nil
}

// NormalizeHeading trims a section heading for lexicon matching.
func NormalizeHeading(text string) string {
	return CollapseWhitespace(text)
}
