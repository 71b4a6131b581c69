// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package locstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/wneessen/map-prep/internal/fault"
	"github.com/wneessen/map-prep/internal/geocode"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS locations (
	what3words TEXT PRIMARY KEY,
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL
)`

// SQLite stores the location cache in an embedded SQLite database. Rows are only ever
// inserted, an existing what3words address keeps its first persisted coordinate.
type SQLite struct {
	path  string
	sqlDB *sql.DB
}

// OpenSQLite opens the database at path and creates the schema if needed.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fault.New(fault.ErrWrite, "open location database", cleanPath, err)
	}
	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err = sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fault.New(fault.ErrCacheCorrupt, "open location database", cleanPath, err)
	}
	return &SQLite{path: cleanPath, sqlDB: sqlDB}, nil
}

// Load reads all persisted locations.
func (s *SQLite) Load(ctx context.Context) (map[geocode.ID]geocode.Coordinate, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT what3words, latitude, longitude FROM locations`)
	if err != nil {
		return nil, fault.New(fault.ErrCacheCorrupt, "load location database", s.path, err)
	}
	defer func() { _ = rows.Close() }()

	entries := make(map[geocode.ID]geocode.Coordinate)
	for rows.Next() {
		var (
			id     string
			coords geocode.Coordinate
		)
		if err = rows.Scan(&id, &coords.Lat, &coords.Lon); err != nil {
			return nil, fault.New(fault.ErrCacheCorrupt, "load location database", s.path, err)
		}
		if !coords.Valid() {
			return nil, fault.New(fault.ErrCacheCorrupt, "load location database", s.path,
				fmt.Errorf("location %q has invalid coordinates %s", id, coords))
		}
		entries[geocode.ID(id)] = coords
	}
	if err = rows.Err(); err != nil {
		return nil, fault.New(fault.ErrCacheCorrupt, "load location database", s.path, err)
	}
	return entries, nil
}

// Save inserts all entries not yet persisted in a single transaction.
func (s *SQLite) Save(ctx context.Context, entries map[geocode.ID]geocode.Coordinate) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fault.New(fault.ErrWrite, "save location database", s.path, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO locations (what3words, latitude, longitude) VALUES (?, ?, ?)`)
	if err != nil {
		return fault.New(fault.ErrWrite, "save location database", s.path, err)
	}
	defer func() { _ = stmt.Close() }()

	for id, coords := range entries {
		if _, err = stmt.ExecContext(ctx, string(id), coords.Lat, coords.Lon); err != nil {
			return fault.New(fault.ErrWrite, "save location database", string(id), err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fault.New(fault.ErrWrite, "save location database", s.path, err)
	}
	return nil
}

// Close closes the SQLite handle.
func (s *SQLite) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
