package clientstate

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed client-state store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the client_state table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS client_state (
			client_id  VARCHAR(64)  NOT NULL,
			key        VARCHAR(64)  NOT NULL,
			value      TEXT         NOT NULL,
			updated_at TIMESTAMPTZ  DEFAULT NOW(),
			PRIMARY KEY (client_id, key)
		)
	`)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, clientID, key string) (string, error) {
	var value string
	err := p.db.QueryRowContext(ctx, `
		SELECT value FROM client_state WHERE client_id = $1 AND key = $2
	`, clientID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get client state: %w", err)
	}
	return value, nil
}

func (p *PostgresStore) Set(ctx context.Context, clientID, key, value string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO client_state (client_id, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_id, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, clientID, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("set client state: %w", err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, clientID, key string) error {
	_, err := p.db.ExecContext(ctx, `
		DELETE FROM client_state WHERE client_id = $1 AND key = $2
	`, clientID, key)
	if err != nil {
		return fmt.Errorf("delete client state: %w", err)
	}
	return nil
}
