// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package capture

import (
	"database/sql"
	"fmt"
	"time"
)

// SQLStore records entries in the table `sniffed_frames`, creating it if
// needed.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore connects to the database and prepares the schema.
// Note: The driver (e.g., sqlite3) must be imported in main.go
func OpenSQLStore(driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	s := &SQLStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sniffed_frames (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		time INTEGER NOT NULL,
		kind TEXT NOT NULL,
		slave_address INTEGER NOT NULL,
		function_code INTEGER NOT NULL,
		description TEXT NOT NULL,
		length INTEGER NOT NULL,
		data BLOB,
		summary TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLStore) Append(e Entry) error {
	query := "INSERT INTO sniffed_frames (time, kind, slave_address, function_code, description, length, data, summary) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	_, err := s.db.Exec(query, e.Time.UnixNano(), e.Kind, int(e.SlaveAddress), int(e.FunctionCode), e.Description, e.Length, e.Data, e.Summary)
	if err != nil {
		return fmt.Errorf("failed to persist frame: %w", err)
	}
	return nil
}

func (s *SQLStore) Entries() ([]Entry, error) {
	rows, err := s.db.Query("SELECT time, kind, slave_address, function_code, description, length, data, summary FROM sniffed_frames ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e             Entry
			nanos         int64
			slave, fnCode int
		)
		if err := rows.Scan(&nanos, &e.Kind, &slave, &fnCode, &e.Description, &e.Length, &e.Data, &e.Summary); err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		e.Time = time.Unix(0, nanos)
		e.SlaveAddress = byte(slave)
		e.FunctionCode = byte(fnCode)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
