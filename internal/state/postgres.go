package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blogpulse/blogpulse/pkg/postgres"
)

const stateKey = "pipeline"

// PostgresStore persists state as a single JSONB row, replaced in one
// transaction per save.
type PostgresStore struct {
	pg *postgres.Client
}

// NewPostgresStore creates a PostgresStore. The backing table is created on
// first save if it does not exist.
func NewPostgresStore(pg *postgres.Client) *PostgresStore {
	return &PostgresStore{pg: pg}
}

const createStateTable = `
CREATE TABLE IF NOT EXISTS pipeline_state (
    key        TEXT PRIMARY KEY,
    state      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Load reads the state row. A missing row or table yields an empty state.
func (p *PostgresStore) Load(ctx context.Context) (*State, error) {
	var raw []byte
	err := p.pg.DB.QueryRowContext(ctx,
		`SELECT state FROM pipeline_state WHERE key = $1`, stateKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUndefinedTable(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("loading state row: %w", err)
	}
	s := NewState()
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("parsing state row: %w", err)
	}
	return s, nil
}

// Save upserts the state row inside a transaction.
func (p *PostgresStore) Save(ctx context.Context, s *State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return p.pg.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, createStateTable); err != nil {
			return fmt.Errorf("ensuring state table: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pipeline_state (key, state, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
			stateKey, data)
		if err != nil {
			return fmt.Errorf("upserting state row: %w", err)
		}
		return nil
	})
}

// isUndefinedTable matches PostgreSQL error 42P01 without depending on the
// driver's error type.
func isUndefinedTable(err error) bool {
	type coder interface{ SQLState() string }
	var c coder
	if errors.As(err, &c) {
		return c.SQLState() == "42P01"
	}
	return false
}
