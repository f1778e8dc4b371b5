package parser

import (
	"strconv"
	"time"

	"github.com/aluiziolira/go-train-punctuality/models"
)

// FirstReportYear is the earliest year the report publishes.
const FirstReportYear = 2014

// ParseYear accepts a 4-digit heading between FirstReportYear and the
// current year of now.
func ParseYear(text string, now time.Time) (int, bool) {
	if len(text) != 4 {
		return 0, false
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return 0, false
		}
	}
	year, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	if year < FirstReportYear || year > now.Year() {
		return 0, false
	}
	return year, true
}

// ParseMonthHeading matches a heading against the Danish month lexicon.
func ParseMonthHeading(text string) (models.Month, bool) {
	return models.ParseMonth(text)
}
