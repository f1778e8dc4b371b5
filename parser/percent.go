package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-train-punctuality/models"
)

// ParsePercent converts a report cell to a percentage. Empty cells, "N/A"
// and anything unparseable yield models.Absent; it never fails.
//
// The report writes most figures with one implicit decimal digit ("853"
// is 85.3%), so a value with no separator at all is scaled by 1/10. A value
// that still exceeds 100 is scaled once more, and anything left outside
// [0, 100] is treated as absent.
func ParsePercent(raw string) models.Percent {
	text := strings.TrimSpace(raw)
	if text == "" || strings.EqualFold(text, "N/A") {
		return models.Absent
	}

	cleaned := keepNumeric(text)
	if cleaned == "" {
		return models.Absent
	}

	first := strings.IndexAny(cleaned, ".,")
	implicit := first < 0
	if first >= 0 && strings.Count(cleaned, ".")+strings.Count(cleaned, ",") > 1 {
		// Duplicated separators come from markup artifacts; only the first one is real.
		cleaned = cleaned[:first+1] + leadingDigits(cleaned[first+1:])
	}
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return models.Absent
	}
	if implicit {
		value /= 10
	}
	if value > 100 {
		value /= 10
	}
	if value < 0 || value > 100 {
		return models.Absent
	}
	return models.PercentOf(value)
}

func keepNumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
