// Package dataset holds the record types and file formats of the two
// data set variants the assistant answers questions about: repair-shop
// service records (CSV) and a German case-law corpus (JSONL).
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// References collects the statute and case links cited by a decision.
type References struct {
	Laws  []string `json:"laws"`
	Cases []string `json:"cases"`
}

// CaseRecord is one scraped court decision.
type CaseRecord struct {
	URL        string      `json:"url"`
	Court      string      `json:"court,omitempty"`
	Date       string      `json:"date,omitempty"`
	FileNumber string      `json:"file_number,omitempty"`
	Title      string      `json:"title,omitempty"`
	Leitsatz   string      `json:"leitsatz,omitempty"`
	Tenor      string      `json:"tenor,omitempty"`
	References *References `json:"references,omitempty"`
	FullText   string      `json:"full_text,omitempty"`
}

// caseCSVHeader is the flattened subset written next to the JSONL.
// References are omitted from the CSV form.
var caseCSVHeader = []string{
	"url",
	"court",
	"date",
	"file_number",
	"title",
	"leitsatz",
	"tenor",
	"full_text",
}

// AppendCases appends records to a JSONL file, one JSON object per line.
func AppendCases(path string, records []CaseRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to write record to %s: %w", path, err)
		}
	}
	return w.Flush()
}

// LoadCases reads a JSONL corpus file. Blank lines are skipped;
// a malformed line aborts the load with its line number.
func LoadCases(path string) ([]CaseRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var records []CaseRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec CaseRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}

// AppendCasesCSV appends the flattened subset of records to a CSV file,
// migrating the file when it carries an older header.
func AppendCasesCSV(path string, records []CaseRecord) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.URL,
			rec.Court,
			rec.Date,
			rec.FileNumber,
			rec.Title,
			rec.Leitsatz,
			rec.Tenor,
			rec.FullText,
		})
	}
	return appendCSV(path, caseCSVHeader, rows)
}
