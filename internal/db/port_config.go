package db

import (
	"database/sql"
	"fmt"
)

// PortConfig is a stored serial port configuration for the pulse front end.
type PortConfig struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	PortPath    string `json:"port_path"`
	BaudRate    int    `json:"baud_rate"`
	DataBits    int    `json:"data_bits"`
	StopBits    int    `json:"stop_bits"`
	Parity      string `json:"parity"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

const portConfigColumns = `id, name, port_path, baud_rate, data_bits, stop_bits, parity, enabled, description, created_at, updated_at`

func scanPortConfig(row interface {
	Scan(dest ...interface{}) error
}) (PortConfig, error) {
	var c PortConfig
	var enabled int
	err := row.Scan(&c.ID, &c.Name, &c.PortPath, &c.BaudRate, &c.DataBits, &c.StopBits,
		&c.Parity, &enabled, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	c.Enabled = enabled == 1
	return c, nil
}

// ListPortConfigs returns all stored port configurations, oldest first.
func (db *DB) ListPortConfigs() ([]PortConfig, error) {
	rows, err := db.Query(`SELECT ` + portConfigColumns + ` FROM port_config ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query port configs: %w", err)
	}
	defer rows.Close()

	var configs []PortConfig
	for rows.Next() {
		c, err := scanPortConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan port config: %w", err)
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// GetPortConfig returns a single port configuration by ID, or nil when no
// such row exists.
func (db *DB) GetPortConfig(id int) (*PortConfig, error) {
	row := db.QueryRow(`SELECT `+portConfigColumns+` FROM port_config WHERE id = ?`, id)
	c, err := scanPortConfig(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get port config: %w", err)
	}
	return &c, nil
}

// EnabledPortConfig returns the first enabled port configuration, or nil
// when none is enabled.
func (db *DB) EnabledPortConfig() (*PortConfig, error) {
	row := db.QueryRow(`SELECT ` + portConfigColumns + ` FROM port_config WHERE enabled = 1 ORDER BY created_at ASC LIMIT 1`)
	c, err := scanPortConfig(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enabled port config: %w", err)
	}
	return &c, nil
}

// CreatePortConfig stores a new port configuration and returns its ID.
func (db *DB) CreatePortConfig(c *PortConfig) (int64, error) {
	enabled := 0
	if c.Enabled {
		enabled = 1
	}
	result, err := db.Exec(
		`INSERT INTO port_config (name, port_path, baud_rate, data_bits, stop_bits, parity, enabled, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.PortPath, c.BaudRate, c.DataBits, c.StopBits, c.Parity, enabled, c.Description)
	if err != nil {
		return 0, fmt.Errorf("failed to create port config: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read new port config id: %w", err)
	}
	return id, nil
}

// UpdatePortConfig rewrites an existing port configuration.
func (db *DB) UpdatePortConfig(c *PortConfig) error {
	enabled := 0
	if c.Enabled {
		enabled = 1
	}
	result, err := db.Exec(
		`UPDATE port_config
		 SET name = ?, port_path = ?, baud_rate = ?, data_bits = ?, stop_bits = ?, parity = ?, enabled = ?, description = ?, updated_at = unixepoch()
		 WHERE id = ?`,
		c.Name, c.PortPath, c.BaudRate, c.DataBits, c.StopBits, c.Parity, enabled, c.Description, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update port config: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("port config %d not found", c.ID)
	}
	return nil
}

// DeletePortConfig removes a stored port configuration.
func (db *DB) DeletePortConfig(id int) error {
	result, err := db.Exec(`DELETE FROM port_config WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete port config: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("port config %d not found", id)
	}
	return nil
}
