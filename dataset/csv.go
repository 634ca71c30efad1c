package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// appendCSV appends rows to a CSV file, migrating the file to the given
// header when an older schema is found. Columns shared with the old
// header keep their values; columns the old file lacked come out empty.
// An unreadable existing file is rewritten fresh.
func appendCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	existing, migrate := readForMigration(path, header)
	if !migrate {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		w := csv.NewWriter(f)
		if err := w.WriteAll(rows); err != nil {
			return fmt.Errorf("failed to append to %s: %w", path, err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	if err := w.WriteAll(existing); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return nil
}

// readForMigration reports whether the file must be rewritten with the
// new header, and if so returns the old rows remapped onto it. A file
// whose header already covers the same columns can be appended to as-is.
func readForMigration(path string, header []string) (rows [][]string, migrate bool) {
	f, err := os.Open(path)
	if err != nil {
		// No file yet: write fresh with the new header.
		return nil, true
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	oldHeader, err := r.Read()
	if err != nil {
		return nil, true
	}
	if sameColumns(oldHeader, header) {
		return nil, false
	}

	oldIndex := make(map[string]int, len(oldHeader))
	for i, name := range oldHeader {
		oldIndex[name] = i
	}
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		row := make([]string, len(header))
		for i, name := range header {
			if j, ok := oldIndex[name]; ok && j < len(record) {
				row[i] = record[j]
			}
		}
		rows = append(rows, row)
	}
	return rows, true
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, name := range a {
		set[name] = true
	}
	for _, name := range b {
		if !set[name] {
			return false
		}
	}
	return true
}
