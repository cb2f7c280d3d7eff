package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/farecard/farecard/internal/domain"
)

// ─── Station Schema ─────────────────────────────────────────────────────────

// StationMigrations returns the station schema statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func StationMigrations() []string {
	return []string{
		// Station reference rows; seq keeps file order so the first row
		// for a duplicated key wins.
		`CREATE TABLE IF NOT EXISTS station_codes (
			seq          INTEGER PRIMARY KEY AUTOINCREMENT,
			area_code    INTEGER NOT NULL DEFAULT 0,
			line_id      INTEGER NOT NULL,
			station_id   INTEGER NOT NULL,
			company_name TEXT NOT NULL DEFAULT '',
			line_name    TEXT NOT NULL DEFAULT '',
			station_name TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_station_key ON station_codes(line_id, station_id, seq)`,

		// Import audit trail
		`CREATE TABLE IF NOT EXISTS station_imports (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			source      TEXT NOT NULL,
			row_count   INTEGER NOT NULL,
			imported_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
	}
}

// ─── Station Operations ─────────────────────────────────────────────────────

// ReplaceStations swaps the whole reference table for entries in one
// transaction and records the import.
func (db *DB) ReplaceStations(source string, entries []domain.StationEntry) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM station_codes`); err != nil {
		return fmt.Errorf("clear stations: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO station_codes (area_code, line_id, station_id, company_name, line_name, station_name)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.AreaCode, e.LineID, e.StationID, e.CompanyName, e.LineName, e.StationName); err != nil {
			return fmt.Errorf("insert station %s: %w", e.Key(), err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO station_imports (source, row_count) VALUES (?, ?)
	`, source, len(entries)); err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return tx.Commit()
}

// GetStation returns the first row for key, or domain.ErrStationNotFound.
func (db *DB) GetStation(key domain.StationKey) (domain.StationEntry, error) {
	var e domain.StationEntry
	err := db.db.QueryRow(`
		SELECT area_code, line_id, station_id, company_name, line_name, station_name
		FROM station_codes WHERE line_id = ? AND station_id = ?
		ORDER BY seq LIMIT 1
	`, key.LineID, key.StationID).Scan(&e.AreaCode, &e.LineID, &e.StationID, &e.CompanyName, &e.LineName, &e.StationName)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StationEntry{}, domain.ErrStationNotFound
	}
	if err != nil {
		return domain.StationEntry{}, err
	}
	return e, nil
}

// LookupStation implements domain.StationLookup. Query errors count as a
// miss so decoding stays total.
func (db *DB) LookupStation(key domain.StationKey) (domain.StationEntry, bool) {
	e, err := db.GetStation(key)
	return e, err == nil
}

// ListStations returns every row in file order.
func (db *DB) ListStations() ([]domain.StationEntry, error) {
	rows, err := db.db.Query(`
		SELECT area_code, line_id, station_id, company_name, line_name, station_name
		FROM station_codes ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StationEntry
	for rows.Next() {
		var e domain.StationEntry
		if err := rows.Scan(&e.AreaCode, &e.LineID, &e.StationID, &e.CompanyName, &e.LineName, &e.StationName); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// CountStations returns the number of reference rows.
func (db *DB) CountStations() (int, error) {
	var n int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM station_codes`).Scan(&n)
	return n, err
}

// StationImport describes one import of the reference table.
type StationImport struct {
	Source     string
	RowCount   int
	ImportedAt time.Time
}

// LatestStationImport returns the most recent import, or nil if none.
func (db *DB) LatestStationImport() (*StationImport, error) {
	var (
		imp StationImport
		at  string
	)
	err := db.db.QueryRow(`
		SELECT source, row_count, imported_at
		FROM station_imports ORDER BY id DESC LIMIT 1
	`).Scan(&imp.Source, &imp.RowCount, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	imp.ImportedAt, _ = time.Parse("2006-01-02 15:04:05", at)
	return &imp, nil
}
