package importer

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrUnknownSource is returned for an adapter ID absent from the source table.
var ErrUnknownSource = errors.New("unknown source")

// Source is one row of the synonym_sources table.
type Source struct {
	AdapterID   string
	DictID      string
	Description string
	SourceURL   string
	License     string
	LastCheck   *int64
	LastStatus  *int
	LastError   *string
	LastImport  *int64
	Groups      int
	Entries     int
	UpdatedAt   int64
}

// SourceDB stores synonym source URLs and their check and import history
// in SQLite.
type SourceDB struct {
	db *sql.DB
}

const sourcesDDL = `CREATE TABLE IF NOT EXISTS synonym_sources (
	adapter_id   TEXT PRIMARY KEY,
	dict_id      TEXT NOT NULL,
	description  TEXT NOT NULL,
	source_url   TEXT NOT NULL,
	license      TEXT NOT NULL DEFAULT '',
	last_check   INTEGER,
	last_status  INTEGER,
	last_error   TEXT,
	last_import  INTEGER,
	groups_count INTEGER NOT NULL DEFAULT 0,
	entry_count  INTEGER NOT NULL DEFAULT 0,
	updated_at   INTEGER NOT NULL
)`

// OpenSourceDB opens (or creates) the SQLite database at path.
func OpenSourceDB(path string) (*SourceDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}
	if _, err := db.Exec(sourcesDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create synonym_sources table: %w", err)
	}
	return &SourceDB{db: db}, nil
}

// Close closes the database.
func (s *SourceDB) Close() error {
	return s.db.Close()
}

// Seed inserts a default row per adapter. Existing rows are left untouched
// so URL overrides survive restarts.
func (s *SourceDB) Seed(adapters []Adapter) error {
	const q = `INSERT OR IGNORE INTO synonym_sources
		(adapter_id, dict_id, description, source_url, license, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	now := time.Now().Unix()
	for _, a := range adapters {
		if _, err := s.db.Exec(q, a.ID(), a.DictID(), a.Description(), a.DefaultURL(), a.License(), now); err != nil {
			return fmt.Errorf("seed %s: %w", a.ID(), err)
		}
	}
	return nil
}

// GetURL returns the current source URL of an adapter.
func (s *SourceDB) GetURL(adapterID string) (string, error) {
	var url string
	err := s.db.QueryRow(`SELECT source_url FROM synonym_sources WHERE adapter_id = ?`, adapterID).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get url for %s: %w", adapterID, ErrUnknownSource)
	}
	if err != nil {
		return "", fmt.Errorf("get url for %s: %w", adapterID, err)
	}
	return url, nil
}

// SetURL overrides the source URL of an adapter.
func (s *SourceDB) SetURL(adapterID, url string) error {
	return s.update("set url", adapterID,
		`UPDATE synonym_sources SET source_url = ?, updated_at = ? WHERE adapter_id = ?`,
		url, time.Now().Unix(), adapterID)
}

// UpdateCheck records the result of an availability check. An empty
// checkErr clears the previous error.
func (s *SourceDB) UpdateCheck(adapterID string, status int, checkErr string) error {
	var errPtr *string
	if checkErr != "" {
		errPtr = &checkErr
	}
	return s.update("update check", adapterID,
		`UPDATE synonym_sources SET last_check = ?, last_status = ?, last_error = ? WHERE adapter_id = ?`,
		time.Now().Unix(), status, errPtr, adapterID)
}

// RecordImport stores the counts of a successful import.
func (s *SourceDB) RecordImport(adapterID string, res *Result) error {
	return s.update("record import", adapterID,
		`UPDATE synonym_sources SET last_import = ?, groups_count = ?, entry_count = ? WHERE adapter_id = ?`,
		time.Now().Unix(), res.Groups, res.Entries, adapterID)
}

func (s *SourceDB) update(op, adapterID, query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("%s for %s: %w", op, adapterID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s for %s: %w", op, adapterID, ErrUnknownSource)
	}
	return nil
}

// ListSources returns all sources ordered by adapter ID.
func (s *SourceDB) ListSources() ([]Source, error) {
	rows, err := s.db.Query(`SELECT adapter_id, dict_id, description, source_url, license,
		last_check, last_status, last_error, last_import, groups_count, entry_count, updated_at
		FROM synonym_sources ORDER BY adapter_id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.AdapterID, &src.DictID, &src.Description, &src.SourceURL,
			&src.License, &src.LastCheck, &src.LastStatus, &src.LastError,
			&src.LastImport, &src.Groups, &src.Entries, &src.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
