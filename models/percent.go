package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Percent is a percentage that may be absent in the source report.
// An absent value is distinct from zero.
type Percent struct {
	Value float64
	Valid bool
}

// Absent is the missing-value marker.
var Absent = Percent{}

// PercentOf wraps a present value.
func PercentOf(v float64) Percent {
	return Percent{Value: v, Valid: true}
}

// String formats the value at full precision with at least one decimal,
// or "" when absent.
func (p Percent) String() string {
	if !p.Valid {
		return ""
	}
	s := strconv.FormatFloat(p.Value, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// MarshalJSON encodes an absent value as null.
func (p Percent) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

// UnmarshalJSON accepts a number or null.
func (p *Percent) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Absent
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = PercentOf(v)
	return nil
}
