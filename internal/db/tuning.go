package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/orangelab/pulsemon/internal/config"
)

// SaveTuning upserts the current tuning document so runtime changes survive
// a restart.
func (db *DB) SaveTuning(cfg *config.Config) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal tuning document: %w", err)
	}
	_, err = db.Exec(
		`INSERT INTO monitor_tuning (id, document) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = unixepoch()`,
		string(doc))
	if err != nil {
		return fmt.Errorf("failed to save tuning document: %w", err)
	}
	return nil
}

// LoadTuning returns the stored tuning document, or nil when none was saved.
func (db *DB) LoadTuning() (*config.Config, error) {
	var doc string
	err := db.QueryRow(`SELECT document FROM monitor_tuning WHERE id = 1`).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tuning document: %w", err)
	}

	cfg := &config.Config{}
	if err := json.Unmarshal([]byte(doc), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse stored tuning document: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("stored tuning document invalid: %w", err)
	}
	return cfg, nil
}
