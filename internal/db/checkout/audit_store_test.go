package checkoutdb

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestAuditStore_RecordsAttemptLifecycle(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	}()

	ctx := context.Background()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS checkout_attempts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS checkout_attempt_steps").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO checkout_attempts").
		WithArgs("attempt-1", "s1", 42, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO checkout_attempt_steps").
		WithArgs("attempt-1", "claim_cart_item", "started", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO checkout_attempt_steps").
		WithArgs("attempt-1", "claim_cart_item", "succeeded", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE checkout_attempts").
		WithArgs("attempt-1", "succeeded").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectClose()

	store, err := NewAuditStoreWithSchema(ctx, db)
	if err != nil {
		t.Fatalf("init schema: %v", err)
	}

	if err := store.Begin(ctx, "attempt-1", "s1", 42, 3); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := store.AddStep(ctx, "attempt-1", "claim_cart_item", "started", ""); err != nil {
		t.Fatalf("add step: %v", err)
	}
	if err := store.AddStep(ctx, "attempt-1", "claim_cart_item", "succeeded", ""); err != nil {
		t.Fatalf("add step: %v", err)
	}
	if err := store.Finish(ctx, "attempt-1", "succeeded"); err != nil {
		t.Fatalf("finish: %v", err)
	}
}
