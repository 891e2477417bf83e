package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// SQLSlot stores the blob in the surface_state table.
type SQLSlot struct {
	db     *sql.DB
	driver string
	key    string
}

// NewSQLSlot opens dsn with driver ("sqlite3" or "mysql") and creates the
// table if needed.
func NewSQLSlot(driver, dsn, key string) (*SQLSlot, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn must be provided", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrate(db, driver); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLSlot{db: db, driver: driver, key: key}, nil
}

func migrate(db *sql.DB, driver string) error {
	var stmt string
	switch driver {
	case "sqlite3":
		stmt = `CREATE TABLE IF NOT EXISTS surface_state (
			surface_key TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`
	case "mysql":
		stmt = `CREATE TABLE IF NOT EXISTS surface_state (
			surface_key VARCHAR(255) NOT NULL PRIMARY KEY,
			state MEDIUMTEXT NOT NULL,
			updated_at DATETIME NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	default:
		return fmt.Errorf("unsupported driver: %s", driver)
	}
	if _, err := db.Exec(stmt); err != nil {
		return fmt.Errorf("migrate surface_state: %w", err)
	}
	return nil
}

func (s *SQLSlot) Load(ctx context.Context) ([]byte, error) {
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM surface_state WHERE surface_key = ?`, s.key).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(state), nil
}

func (s *SQLSlot) Save(ctx context.Context, data []byte) error {
	var stmt string
	switch s.driver {
	case "mysql":
		stmt = `INSERT INTO surface_state (surface_key, state, updated_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE state = VALUES(state), updated_at = VALUES(updated_at)`
	default:
		stmt = `INSERT INTO surface_state (surface_key, state, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(surface_key) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`
	}
	_, err := s.db.ExecContext(ctx, stmt, s.key, string(data), time.Now().UTC())
	return err
}

// Close closes the database handle.
func (s *SQLSlot) Close() error {
	return s.db.Close()
}
