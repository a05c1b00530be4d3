package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Open creates the data directory if needed and opens the SQLite database
// in WAL mode with a busy timeout.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA synchronous=NORMAL; PRAGMA temp_store=MEMORY;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema. Statements are idempotent so this runs on
// every boot.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS metric_samples (
			resource_id TEXT NOT NULL,
			ts DATETIME NOT NULL,
			cpu_percent REAL NOT NULL,
			memory_usage INTEGER NOT NULL,
			memory_limit INTEGER NOT NULL,
			memory_percent REAL NOT NULL,
			net_rx INTEGER NOT NULL,
			net_tx INTEGER NOT NULL,
			block_read INTEGER NOT NULL,
			block_write INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_metric_samples_resource_ts
			ON metric_samples(resource_id, ts DESC);`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_user_id INTEGER NOT NULL,
			resource_id TEXT NOT NULL,
			metric_type TEXT NOT NULL,
			threshold_value REAL NOT NULL,
			comparison_operator TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			is_acknowledged INTEGER NOT NULL DEFAULT 0,
			trigger_count INTEGER NOT NULL DEFAULT 0,
			last_triggered_at DATETIME,
			acknowledged_by INTEGER,
			acknowledged_at DATETIME,
			created_at DATETIME NOT NULL,
			FOREIGN KEY(owner_user_id) REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_resource
			ON alerts(resource_id, is_active);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
