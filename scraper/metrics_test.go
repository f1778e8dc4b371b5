package scraper

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/aluiziolira/go-train-punctuality/extract"
	"github.com/aluiziolira/go-train-punctuality/models"
)

func gatherCounters(t *testing.T, m *Metrics) map[string]float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]float64)
	for _, family := range families {
		if family.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, metric := range family.GetMetric() {
			name := family.GetName()
			for _, label := range metric.GetLabel() {
				name += "{" + label.GetName() + "=" + label.GetValue() + "}"
			}
			out[name] += metric.GetCounter().GetValue()
		}
	}
	return out
}

func TestMetricsObserver(t *testing.T) {
	m := NewMetrics()
	period := models.PeriodKey{Year: 2023, Month: models.January}

	m.TableLocated(period)
	m.RecordExtracted(period)
	m.RecordExtracted(period)
	m.RowSkipped(period, extract.SkipDivider)
	m.RowSkipped(period, extract.SkipAfterDivider)
	m.RowSkipped(period, extract.SkipAfterDivider)
	m.AmbiguousTable(&extract.AmbiguousPeriodError{Month: models.March})
	m.IncError("not_found")
	m.IncCacheHit()
	m.IncRetries()
	m.IncRequest("started")
	m.ObserveDuration(20 * time.Millisecond)

	counters := gatherCounters(t, m)
	want := map[string]float64{
		"punctuality_tables_located_total":                     1,
		"punctuality_records_extracted_total":                  2,
		"punctuality_rows_skipped_total{reason=divider}":       1,
		"punctuality_rows_skipped_total{reason=after_divider}": 2,
		"punctuality_ambiguous_tables_total":                   1,
		"punctuality_errors_total{error_type=not_found}":       1,
		"punctuality_cache_hits_total":                         1,
		"punctuality_retries_total":                            1,
		"punctuality_requests_total{phase=started}":            1,
	}
	for name, value := range want {
		if got := counters[name]; got != value {
			t.Fatalf("%s = %v, want %v (all: %v)", name, got, value, counters)
		}
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.IncRequest("started")
	m.ObserveDuration(time.Second)
	m.IncRetries()
	m.IncCacheHit()
	m.IncError("other")
	m.TableLocated(models.PeriodKey{})
	m.RowSkipped(models.PeriodKey{}, extract.SkipHeader)
	m.RecordExtracted(models.PeriodKey{})
	m.AmbiguousTable(nil)
}

func TestDatasetCache(t *testing.T) {
	if c := NewDatasetCache(0, time.Hour); c != nil {
		t.Fatalf("size 0 should disable the cache")
	}
	var disabled *DatasetCache
	disabled.Add("u", models.Dataset{})
	if _, ok := disabled.Get("u"); ok {
		t.Fatalf("disabled cache returned a hit")
	}

	c := NewDatasetCache(2, time.Hour)
	original := models.Dataset{{Source: "regional", Year: 2023, Month: models.January, Route: "A"}}
	c.Add("http://example.test/regional", original)
	original[0].Route = "mutated"

	got, ok := c.Get("http://example.test/regional")
	if !ok || len(got) != 1 {
		t.Fatalf("cache miss")
	}
	if got[0].Route != "A" {
		t.Fatalf("cache shares records with the caller: %q", got[0].Route)
	}
	got[0].Route = "changed"
	again, _ := c.Get("http://example.test/regional")
	if again[0].Route != "A" {
		t.Fatalf("cache returned shared records")
	}

	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("len after purge = %d", c.Len())
	}
}

func TestDatasetCacheExpires(t *testing.T) {
	c := NewDatasetCache(2, 10*time.Millisecond)
	c.Add("u", models.Dataset{{Route: "A"}})
	time.Sleep(50 * time.Millisecond)
	if _, ok := c.Get("u"); ok {
		t.Fatalf("entry should have expired")
	}
}
