package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// ServiceRecord is one repair-shop work order line.
type ServiceRecord struct {
	Date     string
	Vehicle  string
	Customer string
	Odometer int
	Work     string
	Parts    string
	Cost     string
}

var serviceCSVHeader = []string{
	"date",
	"vehicle",
	"customer",
	"odometer",
	"work_performed",
	"parts_used",
	"cost",
}

// AppendServiceRecords appends records to a repair-shop CSV file,
// migrating the file when it carries an older header.
func AppendServiceRecords(path string, records []ServiceRecord) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.Date,
			rec.Vehicle,
			rec.Customer,
			strconv.Itoa(rec.Odometer),
			rec.Work,
			rec.Parts,
			rec.Cost,
		})
	}
	return appendCSV(path, serviceCSVHeader, rows)
}

// LoadServiceRecords reads a repair-shop CSV file. Columns are located
// by header name, so files written before a schema change still load.
func LoadServiceRecords(path string) ([]ServiceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	field := func(record []string, name string) string {
		if i, ok := index[name]; ok && i < len(record) {
			return record[i]
		}
		return ""
	}

	var records []ServiceRecord
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		odometer, _ := strconv.Atoi(field(record, "odometer"))
		records = append(records, ServiceRecord{
			Date:     field(record, "date"),
			Vehicle:  field(record, "vehicle"),
			Customer: field(record, "customer"),
			Odometer: odometer,
			Work:     field(record, "work_performed"),
			Parts:    field(record, "parts_used"),
			Cost:     field(record, "cost"),
		})
	}
	return records, nil
}
