package parser

import (
	"math"
	"testing"
	"time"

	"github.com/aluiziolira/go-train-punctuality/models"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		valid bool
	}{
		{name: "implicit decimal", input: "853", want: 85.3, valid: true},
		{name: "implicit decimal two digits", input: "50", want: 5.0, valid: true},
		{name: "implicit decimal four digits", input: "8530", want: 85.3, valid: true},
		{name: "comma separator", input: "85,3", want: 85.3, valid: true},
		{name: "dot separator", input: "85.3", want: 85.3, valid: true},
		{name: "explicit hundred", input: "100,0", want: 100, valid: true},
		{name: "explicit zero", input: "0,0", want: 0, valid: true},
		{name: "percent sign and spaces", input: " 90,0 % ", want: 90.0, valid: true},
		{name: "footnote marker", input: "85,5*", want: 85.5, valid: true},
		{name: "duplicated separators", input: "85,,3", want: 85, valid: true},
		{name: "mixed separators", input: "85.3,7", want: 85.3, valid: true},
		{name: "separator then garbage digits", input: "85,3.9.1", want: 85.3, valid: true},
		{name: "separator above hundred", input: "853,0", want: 85.3, valid: true},
		{name: "trailing separator", input: "85,", want: 85, valid: true},
		{name: "empty", input: "", valid: false},
		{name: "whitespace", input: "   ", valid: false},
		{name: "na upper", input: "N/A", valid: false},
		{name: "na lower", input: "n/a", valid: false},
		{name: "na mixed", input: " N/a ", valid: false},
		{name: "letters only", input: "ikke oplyst", valid: false},
		{name: "separator only", input: ",", valid: false},
		{name: "far out of range", input: "99999", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePercent(tt.input)
			if got.Valid != tt.valid {
				t.Fatalf("ParsePercent(%q).Valid = %v, want %v (value %v)", tt.input, got.Valid, tt.valid, got.Value)
			}
			if tt.valid && !approxEqual(got.Value, tt.want) {
				t.Fatalf("ParsePercent(%q) = %v, want %v", tt.input, got.Value, tt.want)
			}
			if !tt.valid && got.Value != 0 {
				t.Fatalf("absent value must carry no number, got %v", got.Value)
			}
		})
	}
}

func TestParsePercentImplicitDecimalProperty(t *testing.T) {
	for n := 0; n <= 1000; n++ {
		raw := itoa(n)
		got := ParsePercent(raw)
		if !got.Valid || !approxEqual(got.Value, float64(n)/10) {
			t.Fatalf("ParsePercent(%q) = %+v, want %v", raw, got, float64(n)/10)
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "Aarhus - Aalborg", expected: "Aarhus - Aalborg"},
		{name: "whitespace runs", input: "  Aarhus \n\t -   Aalborg ", expected: "Aarhus - Aalborg"},
		{name: "non-breaking space", input: "Aarhus\u00a0-\u00a0Aalborg", expected: "Aarhus - Aalborg"},
		{name: "slash spacing", input: "Odense/ Svendborg", expected: "Odense/Svendborg"},
		{name: "airport long form", input: "København - København Lufthavn (CPH Lufthavn)", expected: CanonicalAirportRoute},
		{name: "airport kastrup", input: "København -  Kastrup (CPH Lufthavn)", expected: CanonicalAirportRoute},
		{name: "airport canonical", input: "København - CPH Lufthavn", expected: CanonicalAirportRoute},
		{name: "decomposed characters", input: "Ko\u0308ge - Na\u030astved", expected: "K\u00f6ge - N\u00e5stved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeRoute(tt.input); got != tt.expected {
				t.Fatalf("NormalizeRoute(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRegisterRouteAlias(t *testing.T) {
	RegisterRouteAlias("Kbh H  - Lufthavnen", CanonicalAirportRoute)
	if got := NormalizeRoute("Kbh H - Lufthavnen"); got != CanonicalAirportRoute {
		t.Fatalf("registered alias not applied, got %q", got)
	}
}

func TestParseYear(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{input: "2014", want: 2014, ok: true},
		{input: "2023", want: 2023, ok: true},
		{input: "2026", want: 2026, ok: true},
		{input: "2027", ok: false},
		{input: "2013", ok: false},
		{input: "202", ok: false},
		{input: "20233", ok: false},
		{input: "２０２３", ok: false},
		{input: "Året 2023", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseYear(tt.input, now)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("ParseYear(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseYearFollowsClock(t *testing.T) {
	if _, ok := ParseYear("2031", time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC)); ok {
		t.Fatalf("2031 must be rejected in 2030")
	}
	if _, ok := ParseYear("2031", time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)); !ok {
		t.Fatalf("2031 must be accepted in 2031")
	}
}

func TestValidateRecord(t *testing.T) {
	valid := func() *models.PunctualityRecord {
		return &models.PunctualityRecord{
			Year:              2023,
			Month:             models.January,
			Route:             "Aarhus - Aalborg",
			TargetPunctuality: models.PercentOf(90),
			ActualPunctuality: models.Absent,
			Compensation:      models.PercentOf(5),
		}
	}

	tests := []struct {
		name    string
		mutate  func(*models.PunctualityRecord)
		wantErr bool
	}{
		{name: "valid with absent actual", mutate: func(*models.PunctualityRecord) {}},
		{name: "missing route", mutate: func(r *models.PunctualityRecord) { r.Route = " " }, wantErr: true},
		{name: "missing year", mutate: func(r *models.PunctualityRecord) { r.Year = 0 }, wantErr: true},
		{name: "invalid month", mutate: func(r *models.PunctualityRecord) { r.Month = 13 }, wantErr: true},
		{name: "missing target", mutate: func(r *models.PunctualityRecord) { r.TargetPunctuality = models.Absent }, wantErr: true},
		{name: "missing compensation", mutate: func(r *models.PunctualityRecord) { r.Compensation = models.Absent }, wantErr: true},
		{name: "actual out of range", mutate: func(r *models.PunctualityRecord) { r.ActualPunctuality = models.PercentOf(120) }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid()
			tt.mutate(rec)
			err := ValidateRecord(rec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if err := ValidateRecord(nil); err == nil {
		t.Fatalf("nil record must fail validation")
	}
}
