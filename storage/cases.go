package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"gesagent/dataset"
)

// CaseStore persists the scraped case-law corpus in sqlite so that batch
// answering and inspection can filter without rescanning the JSONL files.
type CaseStore struct {
	db *sql.DB
}

func NewCaseStore(dataDir string) (*CaseStore, error) {
	dbPath := filepath.Join(dataDir, "cases.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &CaseStore{db: db}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (cs *CaseStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cases (
		url TEXT PRIMARY KEY,
		court TEXT,
		date TEXT,
		file_number TEXT,
		title TEXT,
		leitsatz TEXT,
		tenor TEXT,
		refs TEXT,
		full_text TEXT DEFAULT '',
		ingested_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cases_court ON cases(court);
	CREATE INDEX IF NOT EXISTS idx_cases_date ON cases(date);
	CREATE INDEX IF NOT EXISTS idx_cases_file_number ON cases(file_number);
	`

	_, err := cs.db.Exec(schema)
	if err != nil {
		return err
	}

	// Migration: corpora written before full texts were scraped lack the
	// full_text column.
	if err := cs.migrateSchema(); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	return nil
}

// migrateSchema adds missing columns to existing databases
func (cs *CaseStore) migrateSchema() error {
	hasFullText, err := cs.columnExists("cases", "full_text")
	if err != nil {
		return fmt.Errorf("failed to check for full_text column: %w", err)
	}

	if !hasFullText {
		_, err := cs.db.Exec(`ALTER TABLE cases ADD COLUMN full_text TEXT DEFAULT ''`)
		if err != nil {
			return fmt.Errorf("failed to add full_text column: %w", err)
		}
	}

	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info
func (cs *CaseStore) columnExists(tableName, columnName string) (bool, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", tableName)
	rows, err := cs.db.Query(query)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name string
		var dataType string
		var notNull int
		var defaultValue interface{}
		var pk int

		err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk)
		if err != nil {
			return false, err
		}

		if name == columnName {
			return true, nil
		}
	}

	return false, rows.Err()
}

// Ingest upserts records keyed by URL. Re-running the scraper against a
// grown corpus refreshes existing rows rather than duplicating them.
func (cs *CaseStore) Ingest(records []dataset.CaseRecord) error {
	tx, err := cs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO cases (url, court, date, file_number, title, leitsatz, tenor, refs, full_text, ingested_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	for _, rec := range records {
		refs := ""
		if rec.References != nil {
			data, err := json.Marshal(rec.References)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to marshal references for %s: %w", rec.URL, err)
			}
			refs = string(data)
		}
		if _, err := tx.Exec(query,
			rec.URL,
			rec.Court,
			rec.Date,
			rec.FileNumber,
			rec.Title,
			rec.Leitsatz,
			rec.Tenor,
			refs,
			rec.FullText,
			now,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert %s: %w", rec.URL, err)
		}
	}

	return tx.Commit()
}

// IngestJSONL loads a scraped corpus file into the store.
func (cs *CaseStore) IngestJSONL(path string) (int, error) {
	records, err := dataset.LoadCases(path)
	if err != nil {
		return 0, err
	}
	if err := cs.Ingest(records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// CaseFilter narrows a Search. Zero values match everything.
type CaseFilter struct {
	Query string // substring over title, leitsatz, tenor and full text
	Court string // exact court match
	Since string // ISO date lower bound, inclusive
	Limit int
}

// Search returns cases matching the filter, newest decisions first.
func (cs *CaseStore) Search(filter CaseFilter) ([]dataset.CaseRecord, error) {
	var conditions []string
	var args []any

	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		conditions = append(conditions, "(title LIKE ? OR leitsatz LIKE ? OR tenor LIKE ? OR full_text LIKE ?)")
		args = append(args, like, like, like, like)
	}
	if filter.Court != "" {
		conditions = append(conditions, "court = ?")
		args = append(args, filter.Court)
	}
	if filter.Since != "" {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.Since)
	}

	query := "SELECT url, court, date, file_number, title, leitsatz, tenor, refs, full_text FROM cases"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date DESC, url"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := cs.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []dataset.CaseRecord
	for rows.Next() {
		var rec dataset.CaseRecord
		var refs string
		err := rows.Scan(
			&rec.URL,
			&rec.Court,
			&rec.Date,
			&rec.FileNumber,
			&rec.Title,
			&rec.Leitsatz,
			&rec.Tenor,
			&refs,
			&rec.FullText,
		)
		if err != nil {
			continue
		}
		if refs != "" {
			var parsed dataset.References
			if err := json.Unmarshal([]byte(refs), &parsed); err == nil {
				rec.References = &parsed
			}
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Load fetches one case by URL. Returns nil when absent.
func (cs *CaseStore) Load(url string) (*dataset.CaseRecord, error) {
	query := `
	SELECT url, court, date, file_number, title, leitsatz, tenor, refs, full_text
	FROM cases
	WHERE url = ?
	`

	var rec dataset.CaseRecord
	var refs string
	err := cs.db.QueryRow(query, url).Scan(
		&rec.URL,
		&rec.Court,
		&rec.Date,
		&rec.FileNumber,
		&rec.Title,
		&rec.Leitsatz,
		&rec.Tenor,
		&refs,
		&rec.FullText,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	if refs != "" {
		var parsed dataset.References
		if err := json.Unmarshal([]byte(refs), &parsed); err == nil {
			rec.References = &parsed
		}
	}

	return &rec, nil
}

// Count returns the number of stored cases.
func (cs *CaseStore) Count() (int, error) {
	var count int
	err := cs.db.QueryRow(`SELECT COUNT(*) FROM cases`).Scan(&count)
	return count, err
}

// Courts lists the distinct courts present in the corpus.
func (cs *CaseStore) Courts() ([]string, error) {
	rows, err := cs.db.Query(`SELECT DISTINCT court FROM cases WHERE court != '' ORDER BY court`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courts []string
	for rows.Next() {
		var court string
		if err := rows.Scan(&court); err != nil {
			continue
		}
		courts = append(courts, court)
	}
	return courts, rows.Err()
}

func (cs *CaseStore) Close() error {
	if cs.db != nil {
		return cs.db.Close()
	}
	return nil
}
