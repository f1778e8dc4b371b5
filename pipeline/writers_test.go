package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aluiziolira/go-train-punctuality/config"
	"github.com/aluiziolira/go-train-punctuality/models"
)

func sampleRecords() []*models.PunctualityRecord {
	withAbsent := newRecord("København - CPH Lufthavn", models.February)
	withAbsent.ActualPunctuality = models.Absent
	strain := newRecord("Hillerød - Køge", models.January)
	strain.Source = config.SourceSTrain
	return []*models.PunctualityRecord{
		newRecord("Aarhus - Aalborg", models.January),
		withAbsent,
		strain,
	}
}

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "punctuality.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}

	if err := writer.Write(sampleRecords()); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows=%d, want 4", len(rows))
	}
	if strings.Join(rows[0], ",") != "Source,Year,Month,Date,Route,Target_Punctuality,Actual_Punctuality,Compensation" {
		t.Fatalf("unexpected header: %v", rows[0])
	}

	want := []string{"regional", "2023", "Januar", "2023-01-01", "Aarhus - Aalborg", "90.0", "85.5", "5.0"}
	if strings.Join(rows[1], "|") != strings.Join(want, "|") {
		t.Fatalf("row = %v, want %v", rows[1], want)
	}
	if rows[2][6] != "" {
		t.Fatalf("absent actual should be an empty field, got %q", rows[2][6])
	}
	if rows[2][3] != "2023-02-01" {
		t.Fatalf("date = %q", rows[2][3])
	}
}

func TestCSVWriterKeepsPrecision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "precise.csv")
	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}

	record := newRecord("Aarhus - Aalborg", models.March)
	record.ActualPunctuality = models.PercentOf(85.35)
	if err := writer.Write([]*models.PunctualityRecord{record}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !strings.Contains(string(data), ",85.35,") {
		t.Fatalf("actual value rounded:\n%s", data)
	}
}

func TestJSONWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "punctuality.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}

	if err := writer.Write(sampleRecords()); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var decoded []models.PunctualityRecord
	for scanner.Scan() {
		var record models.PunctualityRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		if strings.Contains(scanner.Text(), `"actual_punctuality":0`) {
			t.Fatalf("absent value written as zero: %s", scanner.Text())
		}
		decoded = append(decoded, record)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("json lines=%d, want 3", len(decoded))
	}
	if decoded[1].ActualPunctuality.Valid {
		t.Fatalf("absent actual decoded as present")
	}
	if decoded[0].Month != models.January || decoded[0].Compensation.Value != 5 {
		t.Fatalf("decoded = %+v", decoded[0])
	}
}

func TestDualWriterWrite(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "punctuality.csv")
	jsonPath := JSONPathFor(csvPath)
	if jsonPath != filepath.Join(dir, "punctuality.jsonl") {
		t.Fatalf("json path = %q", jsonPath)
	}

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}

	if err := writer.Write(sampleRecords()); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate dual: %v", err)
	}

	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Fatalf("csv file missing or empty")
	}
	if info, err := os.Stat(jsonPath); err != nil || info.Size() == 0 {
		t.Fatalf("json file missing or empty")
	}
}

func TestMarkdownWriterRendersTables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.md")

	writer, err := NewMarkdownWriter(path, "")
	if err != nil {
		t.Fatalf("create markdown writer: %v", err)
	}
	if err := writer.Validate(); err == nil {
		t.Fatalf("validate before close should fail")
	}

	if err := writer.Write(sampleRecords()); err != nil {
		t.Fatalf("write markdown: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close markdown: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate markdown: %v", err)
	}
	if err := writer.Write(sampleRecords()); err == nil {
		t.Fatalf("write after close should fail")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	output := string(data)

	for _, want := range []string{
		"# Train punctuality",
		"## regional",
		"## s-train",
		"Aarhus - Aalborg",
		"2023-02",
		"N/A",
		"85.5",
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("markdown output missing %q:\n%s", want, output)
		}
	}
	if strings.Index(output, "## regional") > strings.Index(output, "## s-train") {
		t.Fatalf("sources rendered out of order")
	}
}

func TestSummaryRow(t *testing.T) {
	records := models.Dataset{
		newRecord("B", models.March),
		newRecord("A", models.January),
		newRecord("B", models.February),
	}
	got := summaryRow(records)
	want := []string{"3", "2", "2023-01", "2023-03"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("summary = %v, want %v", got, want)
	}
	if empty := summaryRow(nil); empty[2] != "-" {
		t.Fatalf("empty summary = %v", empty)
	}
}
