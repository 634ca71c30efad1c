package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendAndLoadCases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.jsonl")

	first := []CaseRecord{
		{
			URL:        "https://dejure.org/2025,17804",
			Court:      "BGH",
			Date:       "2025-06-12",
			FileNumber: "III ZR 109/24",
			Title:      "BGH, 12.06.2025 - III ZR 109/24",
			Leitsatz:   "Zur Haftung des Betreibers.",
			References: &References{
				Laws:  []string{"https://dejure.org/gesetze/BGB/823.html"},
				Cases: []string{},
			},
		},
	}
	second := []CaseRecord{
		{URL: "https://dejure.org/2025,18001", Court: "BVerfG"},
	}

	if err := AppendCases(path, first); err != nil {
		t.Fatalf("AppendCases failed: %v", err)
	}
	if err := AppendCases(path, second); err != nil {
		t.Fatalf("second AppendCases failed: %v", err)
	}

	records, err := LoadCases(path)
	if err != nil {
		t.Fatalf("LoadCases failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].FileNumber != "III ZR 109/24" {
		t.Errorf("unexpected file number: %q", records[0].FileNumber)
	}
	if records[0].References == nil || len(records[0].References.Laws) != 1 {
		t.Errorf("expected one law reference, got %+v", records[0].References)
	}
	if records[1].Court != "BVerfG" {
		t.Errorf("unexpected court: %q", records[1].Court)
	}
}

func TestLoadCasesSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.jsonl")
	content := `{"url":"https://dejure.org/2025,1"}` + "\n\n" + `{"url":"https://dejure.org/2025,2"}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	records, err := LoadCases(path)
	if err != nil {
		t.Fatalf("LoadCases failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestLoadCasesReportsBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.jsonl")
	content := `{"url":"https://dejure.org/2025,1"}` + "\n{not json\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	_, err := LoadCases(path)
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error should name the bad line, got: %v", err)
	}
}

func TestAppendCasesCSVCreatesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.csv")

	err := AppendCasesCSV(path, []CaseRecord{
		{URL: "https://dejure.org/2025,1", Court: "BGH", Date: "2025-06-12"},
	})
	if err != nil {
		t.Fatalf("AppendCasesCSV failed: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d rows", len(rows))
	}
	if rows[0][0] != "url" || rows[0][3] != "file_number" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "BGH" {
		t.Errorf("unexpected row: %v", rows[1])
	}
}

func TestAppendCasesCSVAppendsWithoutDuplicateHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.csv")

	if err := AppendCasesCSV(path, []CaseRecord{{URL: "https://dejure.org/2025,1"}}); err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	if err := AppendCasesCSV(path, []CaseRecord{{URL: "https://dejure.org/2025,2"}}); err != nil {
		t.Fatalf("second append failed: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected one header and two rows, got %d", len(rows))
	}
	if rows[0][0] != "url" {
		t.Errorf("expected a single header row, got %v", rows[0])
	}
	if rows[2][0] != "https://dejure.org/2025,2" {
		t.Errorf("unexpected appended row: %v", rows[2])
	}
}

func TestAppendCasesCSVMigratesOldHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.csv")

	// Old schema: no leitsatz/tenor/full_text columns, different order.
	old := "court,url,date\nBGH,\"https://dejure.org/2024,9\",2024-01-01\n"
	if err := os.WriteFile(path, []byte(old), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	err := AppendCasesCSV(path, []CaseRecord{
		{URL: "https://dejure.org/2025,1", Court: "BVerfG", Leitsatz: "Neu."},
	})
	if err != nil {
		t.Fatalf("AppendCasesCSV failed: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header plus migrated row plus new row, got %d", len(rows))
	}
	if len(rows[0]) != 8 || rows[0][0] != "url" {
		t.Errorf("expected the new 8-column header, got %v", rows[0])
	}
	// Migrated row keeps its old values under the new columns.
	if rows[1][0] != "https://dejure.org/2024,9" || rows[1][1] != "BGH" {
		t.Errorf("migrated row lost values: %v", rows[1])
	}
	if rows[1][5] != "" {
		t.Errorf("missing old column should be empty, got %q", rows[1][5])
	}
	if rows[2][5] != "Neu." {
		t.Errorf("new row should carry leitsatz, got %v", rows[2])
	}
}

func TestAppendCasesCSVRewritesUnreadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.csv")
	if err := os.WriteFile(path, []byte("\x00garbage"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	err := AppendCasesCSV(path, []CaseRecord{{URL: "https://dejure.org/2025,1"}})
	if err != nil {
		t.Fatalf("AppendCasesCSV failed: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 2 {
		t.Fatalf("expected fresh header plus one row, got %d", len(rows))
	}
}

func TestServiceRecordsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.csv")

	records := []ServiceRecord{
		{Date: "2024-01-10", Vehicle: "VW Golf", Customer: "Meier", Odometer: 83200, Work: "brake pad replacement", Parts: "front pads", Cost: "289.00"},
		{Date: "2024-02-03", Vehicle: "Audi A4", Customer: "Schulz", Odometer: 121050, Work: "oil change", Parts: "filter, 5W30", Cost: "129.50"},
	}
	if err := AppendServiceRecords(path, records); err != nil {
		t.Fatalf("AppendServiceRecords failed: %v", err)
	}

	loaded, err := LoadServiceRecords(path)
	if err != nil {
		t.Fatalf("LoadServiceRecords failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(loaded))
	}
	if loaded[0].Odometer != 83200 {
		t.Errorf("expected odometer 83200, got %d", loaded[0].Odometer)
	}
	if loaded[1].Work != "oil change" {
		t.Errorf("unexpected work field: %q", loaded[1].Work)
	}
}

func TestLoadServiceRecordsOldSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.csv")
	old := "date,vehicle,work_performed\n2023-12-01,BMW 320i,tire rotation\n"
	if err := os.WriteFile(path, []byte(old), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	loaded, err := LoadServiceRecords(path)
	if err != nil {
		t.Fatalf("LoadServiceRecords failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 record, got %d", len(loaded))
	}
	if loaded[0].Vehicle != "BMW 320i" || loaded[0].Customer != "" {
		t.Errorf("old-schema record mapped wrong: %+v", loaded[0])
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return rows
}
