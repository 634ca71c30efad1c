package storage

import (
	"path/filepath"
	"testing"

	"gesagent/dataset"
)

func testCases() []dataset.CaseRecord {
	return []dataset.CaseRecord{
		{
			URL:        "https://dejure.org/2025,17804",
			Court:      "BGH",
			Date:       "2025-06-12",
			FileNumber: "III ZR 109/24",
			Title:      "BGH, 12.06.2025 - III ZR 109/24",
			Leitsatz:   "Zur Haftung des Plattformbetreibers.",
			References: &dataset.References{
				Laws: []string{"https://dejure.org/gesetze/BGB/823.html"},
			},
		},
		{
			URL:      "https://dejure.org/2024,11111",
			Court:    "BVerfG",
			Date:     "2024-03-01",
			Title:    "BVerfG, 01.03.2024 - 1 BvR 12/23",
			Tenor:    "Die Verfassungsbeschwerde wird nicht zur Entscheidung angenommen.",
			FullText: "Gründe: Die Beschwerde ist unzulässig.",
		},
		{
			URL:   "https://dejure.org/2023,5000",
			Court: "BGH",
			Date:  "2023-11-20",
			Title: "BGH, 20.11.2023 - VI ZR 33/22",
		},
	}
}

func newTestCaseStore(t *testing.T) *CaseStore {
	t.Helper()
	store, err := NewCaseStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewCaseStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Ingest(testCases()); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	return store
}

func TestCaseStoreIngestAndCount(t *testing.T) {
	store := newTestCaseStore(t)

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 cases, got %d", count)
	}

	// Re-ingesting the same records keys on URL and must not duplicate.
	if err := store.Ingest(testCases()); err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}
	count, err = store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected upsert to keep 3 cases, got %d", count)
	}
}

func TestCaseStoreLoad(t *testing.T) {
	store := newTestCaseStore(t)

	rec, err := store.Load("https://dejure.org/2025,17804")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.FileNumber != "III ZR 109/24" {
		t.Errorf("unexpected file number: %q", rec.FileNumber)
	}
	if rec.References == nil || len(rec.References.Laws) != 1 {
		t.Errorf("references lost in round trip: %+v", rec.References)
	}

	missing, err := store.Load("https://dejure.org/9999,1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown URL, got %+v", missing)
	}
}

func TestCaseStoreSearch(t *testing.T) {
	store := newTestCaseStore(t)

	tests := []struct {
		name     string
		filter   CaseFilter
		wantURLs []string
	}{
		{
			"query over leitsatz",
			CaseFilter{Query: "Plattformbetreibers"},
			[]string{"https://dejure.org/2025,17804"},
		},
		{
			"query over full text",
			CaseFilter{Query: "unzulässig"},
			[]string{"https://dejure.org/2024,11111"},
		},
		{
			"court filter newest first",
			CaseFilter{Court: "BGH"},
			[]string{"https://dejure.org/2025,17804", "https://dejure.org/2023,5000"},
		},
		{
			"since filter",
			CaseFilter{Since: "2024-01-01"},
			[]string{"https://dejure.org/2025,17804", "https://dejure.org/2024,11111"},
		},
		{
			"combined",
			CaseFilter{Court: "BGH", Since: "2024-01-01"},
			[]string{"https://dejure.org/2025,17804"},
		},
		{
			"limit",
			CaseFilter{Limit: 1},
			[]string{"https://dejure.org/2025,17804"},
		},
		{
			"no hits",
			CaseFilter{Query: "does not exist"},
			[]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := store.Search(tt.filter)
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if len(records) != len(tt.wantURLs) {
				t.Fatalf("expected %d records, got %d", len(tt.wantURLs), len(records))
			}
			for i, url := range tt.wantURLs {
				if records[i].URL != url {
					t.Errorf("record %d: expected %s, got %s", i, url, records[i].URL)
				}
			}
		})
	}
}

func TestCaseStoreCourts(t *testing.T) {
	store := newTestCaseStore(t)

	courts, err := store.Courts()
	if err != nil {
		t.Fatalf("Courts failed: %v", err)
	}
	if len(courts) != 2 || courts[0] != "BGH" || courts[1] != "BVerfG" {
		t.Errorf("expected [BGH BVerfG], got %v", courts)
	}
}

func TestCaseStoreIngestJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cases.jsonl")
	if err := dataset.AppendCases(path, testCases()); err != nil {
		t.Fatalf("AppendCases failed: %v", err)
	}

	store, err := NewCaseStore(dir)
	if err != nil {
		t.Fatalf("NewCaseStore failed: %v", err)
	}
	defer store.Close()

	n, err := store.IngestJSONL(path)
	if err != nil {
		t.Fatalf("IngestJSONL failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 ingested records, got %d", n)
	}
}
