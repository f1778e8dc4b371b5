package models

import "fmt"

// Month is a calendar month as named in the Danish report headings.
type Month int

const (
	MonthUnknown Month = iota
	January
	February
	March
	April
	May
	June
	July
	August
	September
	October
	November
	December
)

// danishMonths is the heading lexicon. Matching is exact.
var danishMonths = map[string]Month{
	"Januar":    January,
	"Februar":   February,
	"Marts":     March,
	"April":     April,
	"Maj":       May,
	"Juni":      June,
	"Juli":      July,
	"August":    August,
	"September": September,
	"Oktober":   October,
	"November":  November,
	"December":  December,
}

var monthNames = func() map[Month]string {
	out := make(map[Month]string, len(danishMonths))
	for name, m := range danishMonths {
		out[m] = name
	}
	return out
}()

// ParseMonth looks up a Danish month name.
func ParseMonth(name string) (Month, bool) {
	m, ok := danishMonths[name]
	return m, ok
}

// Valid reports whether m is one of the twelve months.
func (m Month) Valid() bool {
	return m >= January && m <= December
}

// String returns the Danish month name, or "" for an invalid month.
func (m Month) String() string {
	return monthNames[m]
}

// MarshalText encodes the month by its Danish name.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a Danish month name.
func (m *Month) UnmarshalText(text []byte) error {
	parsed, ok := ParseMonth(string(text))
	if !ok {
		return &UnknownMonthError{Name: string(text)}
	}
	*m = parsed
	return nil
}

// UnknownMonthError is returned when a name is not in the lexicon.
type UnknownMonthError struct {
	Name string
}

func (e *UnknownMonthError) Error() string {
	return fmt.Sprintf("unknown month %q", e.Name)
}
