// internal/database/database.go

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SOSDesk/internal/config"

	_ "github.com/lib/pq"
)

// schema is applied on startup. The journal is append-only.
const schema = `
CREATE TABLE IF NOT EXISTS alert_journal (
	id           BIGSERIAL PRIMARY KEY,
	alert_id     TEXT        NOT NULL,
	sender_id    TEXT        NOT NULL,
	hospital_id  TEXT        NOT NULL DEFAULT '',
	event        TEXT        NOT NULL,
	patient_name TEXT        NOT NULL DEFAULT '',
	detail       TEXT        NOT NULL DEFAULT '',
	at           TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS alert_journal_alert_id_idx ON alert_journal (alert_id);
CREATE INDEX IF NOT EXISTS alert_journal_at_idx ON alert_journal (at DESC);
`

type Database struct {
	DB  *sql.DB
	cfg *config.JournalConfig
}

func New(dsn string, cfg *config.JournalConfig) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		DB:  db,
		cfg: cfg,
	}, nil
}

// Migrate creates the journal table if it does not exist.
func (d *Database) Migrate(ctx context.Context) error {
	if _, err := d.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.DB.Close()
}

func (d *Database) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := d.DB.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}
