package checkoutdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tradewind/internal/checkout"
)

// ErrDuplicateIntent signals a refund intent id was recorded twice.
var ErrDuplicateIntent = errors.New("refund intent already recorded")

// RefundStore persists refund intents for out-of-band processing. Rows are
// only ever inserted here; a separate refund worker owns their resolution.
type RefundStore struct {
	db *sql.DB
}

// NewRefundStore constructs a RefundStore backed by Postgres.
func NewRefundStore(db *sql.DB) *RefundStore {
	return &RefundStore{db: db}
}

// NewRefundStoreWithSchema initializes the schema then returns the store.
func NewRefundStoreWithSchema(ctx context.Context, db *sql.DB) (*RefundStore, error) {
	store := NewRefundStore(db)
	if err := store.InitSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// InitSchema creates the refund intents table if it does not exist.
func (s *RefundStore) InitSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS refund_intents (
			intent_id TEXT PRIMARY KEY,
			transaction_id TEXT NOT NULL,
			order_id TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			reason TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_at TIMESTAMPTZ
		)
	`)
	return err
}

// Record inserts the refund intent.
func (s *RefundStore) Record(ctx context.Context, intent checkout.RefundIntent) error {
	if intent.IntentID == "" {
		return fmt.Errorf("intent id required")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO refund_intents (intent_id, transaction_id, order_id, amount, reason)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (intent_id) DO NOTHING`,
		intent.IntentID, intent.TransactionID, intent.OrderID, intent.Amount, intent.Reason,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDuplicateIntent
	}
	return nil
}

// Pending returns intents that have not been processed yet, oldest first.
func (s *RefundStore) Pending(ctx context.Context, limit int) ([]checkout.RefundIntent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT intent_id, transaction_id, order_id, amount, COALESCE(reason, ''), created_at
		FROM refund_intents
		WHERE processed_at IS NULL
		ORDER BY created_at
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []checkout.RefundIntent
	for rows.Next() {
		var intent checkout.RefundIntent
		if err := rows.Scan(&intent.IntentID, &intent.TransactionID, &intent.OrderID, &intent.Amount, &intent.Reason, &intent.CreatedAt); err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	return intents, rows.Err()
}

// MarkProcessed stamps an intent as handled by the refund worker.
func (s *RefundStore) MarkProcessed(ctx context.Context, intentID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE refund_intents
		SET processed_at = NOW()
		WHERE intent_id = $1 AND processed_at IS NULL`,
		intentID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
