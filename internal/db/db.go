// Package db persists monitor configuration in SQLite: stored serial port
// definitions and the last applied tuning document. Sample history is
// deliberately not persisted; the active window is the only retained data.
package db

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the configuration database at path.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS port_config (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			name              TEXT NOT NULL,
			port_path         TEXT NOT NULL,
			baud_rate         INTEGER NOT NULL DEFAULT 115200,
			data_bits         INTEGER NOT NULL DEFAULT 8,
			stop_bits         INTEGER NOT NULL DEFAULT 1,
			parity            TEXT NOT NULL DEFAULT 'N',
			enabled           INTEGER NOT NULL DEFAULT 0,
			description       TEXT NOT NULL DEFAULT '',
			created_at        INTEGER NOT NULL DEFAULT (unixepoch()),
			updated_at        INTEGER NOT NULL DEFAULT (unixepoch())
		);
		CREATE TABLE IF NOT EXISTS monitor_tuning (
			id                INTEGER PRIMARY KEY CHECK (id = 1),
			document          TEXT NOT NULL,
			updated_at        INTEGER NOT NULL DEFAULT (unixepoch())
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}
