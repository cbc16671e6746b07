package data

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	insertImportSQL = `INSERT INTO import_log (source, rows, no_total, replaced, imported_at)
		VALUES (?, ?, ?, ?, ?)
	`

	selectLastImportSQL = `SELECT source, rows, no_total, replaced, imported_at
		FROM import_log
		ORDER BY id DESC
		LIMIT 1
	`
)

var (
	stateQueries = map[string]string{
		"rentals": "SELECT COUNT(*) FROM rental",
		"priced":  "SELECT COUNT(*) FROM rental WHERE total IS NOT NULL",
		"cities":  "SELECT COUNT(DISTINCT city) FROM rental",
		"imports": "SELECT COUNT(*) FROM import_log",
	}
)

// ImportRecord describes one completed dataset import.
type ImportRecord struct {
	Source     string    `json:"source" yaml:"source"`
	Rows       int       `json:"rows" yaml:"rows"`
	NoTotal    int       `json:"no_total" yaml:"no_total"`
	Replaced   bool      `json:"replaced" yaml:"replaced"`
	ImportedAt time.Time `json:"imported_at" yaml:"imported_at"`
}

// DataState summarizes what the store holds.
type DataState struct {
	Counts     map[string]int64 `json:"counts" yaml:"counts"`
	LastImport *ImportRecord    `json:"last_import,omitempty" yaml:"last_import,omitempty"`
}

// SaveImport records a completed import of source.
func SaveImport(db *sql.DB, source string, res *ImportResult) error {
	if db == nil {
		return errDBNotInitialized
	}

	if source == "" || res == nil {
		return errors.New("source and import result are required")
	}

	_, err := db.Exec(insertImportSQL,
		source, res.Imported, res.NoTotal, res.Replaced,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert import record: %w", err)
	}

	return nil
}

// GetLastImport returns the most recent import or nil when nothing was imported.
func GetLastImport(db *sql.DB) (*ImportRecord, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	var (
		r  ImportRecord
		at string
	)
	err := db.QueryRow(selectLastImportSQL).Scan(&r.Source, &r.Rows, &r.NoTotal, &r.Replaced, &at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan import record: %w", err)
	}

	if r.ImportedAt, err = time.Parse(time.RFC3339, at); err != nil {
		return nil, fmt.Errorf("failed to parse import time %s: %w", at, err)
	}

	return &r, nil
}

// GetDataState returns the current state of the database.
func GetDataState(db *sql.DB) (*DataState, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	state := &DataState{Counts: make(map[string]int64)}
	for k, q := range stateQueries {
		var count int64
		if err := db.QueryRow(q).Scan(&count); err != nil {
			return nil, fmt.Errorf("error getting %s count: %w", k, err)
		}
		state.Counts[k] = count
	}

	last, err := GetLastImport(db)
	if err != nil {
		return nil, err
	}
	state.LastImport = last

	return state, nil
}
