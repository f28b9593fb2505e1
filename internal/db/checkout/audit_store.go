// Package checkoutdb persists checkout audit trails and refund intents in
// Postgres.
package checkoutdb

import (
	"context"
	"database/sql"
)

// AuditStore records checkout attempts and their step transitions.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore constructs an AuditStore backed by Postgres.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// NewAuditStoreWithSchema initializes the schema then returns the store.
func NewAuditStoreWithSchema(ctx context.Context, db *sql.DB) (*AuditStore, error) {
	store := NewAuditStore(db)
	if err := store.InitSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// InitSchema creates audit tables if they do not exist.
func (s *AuditStore) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS checkout_attempts (
			attempt_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			product_id BIGINT NOT NULL,
			quantity INT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS checkout_attempt_steps (
			id BIGSERIAL PRIMARY KEY,
			attempt_id TEXT NOT NULL,
			step TEXT NOT NULL,
			status TEXT NOT NULL,
			detail TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			FOREIGN KEY (attempt_id) REFERENCES checkout_attempts(attempt_id) ON DELETE CASCADE
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

// Begin inserts the attempt row in the running state.
func (s *AuditStore) Begin(ctx context.Context, attemptID, sessionID string, productID, quantity int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkout_attempts (attempt_id, session_id, product_id, quantity, status)
		VALUES ($1, $2, $3, $4, 'running')`,
		attemptID, sessionID, productID, quantity,
	)
	return err
}

// AddStep appends a step transition row.
func (s *AuditStore) AddStep(ctx context.Context, attemptID, step, status, detail string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkout_attempt_steps (attempt_id, step, status, detail)
		VALUES ($1, $2, $3, $4)`,
		attemptID, step, status, detail,
	)
	return err
}

// Finish updates the attempt's terminal status and timestamp.
func (s *AuditStore) Finish(ctx context.Context, attemptID, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE checkout_attempts
		SET status = $2, updated_at = NOW()
		WHERE attempt_id = $1`,
		attemptID, status,
	)
	return err
}
