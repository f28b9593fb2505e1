package main

import (
	"context"
	"testing"

	"tradewind/internal/checkout"
)

func TestBuildSessionLocker_MemoryFallback(t *testing.T) {
	t.Setenv("REDIS_URL", "")

	locker, cleanup, err := buildSessionLocker(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	if _, ok := locker.(*checkout.MemoryLocker); !ok {
		t.Fatalf("expected memory locker, got %T", locker)
	}
}

func TestBuildSessionLocker_InvalidRedisConfig(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REDIS_HEALTHCHECK_TIMEOUT", "")

	_, cleanup, err := buildSessionLocker(context.Background())
	if err == nil {
		cleanup()
		t.Fatalf("expected error for missing healthcheck timeout")
	}
}

func TestBuildCollaborators_MemoryMode(t *testing.T) {
	t.Setenv("CART_SERVICE_URL", "")
	t.Setenv("INVENTORY_SERVICE_URL", "")
	t.Setenv("ORDER_SERVICE_URL", "")
	t.Setenv("PAYMENT_SERVICE_URL", "")
	t.Setenv("CHECKOUT_RETRY_MAX_ATTEMPTS", "")

	clients, err := buildCollaborators()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := clients.Validate(); err != nil {
		t.Fatalf("expected complete client set: %v", err)
	}
	if _, ok := clients.Cart.(*checkout.MemoryCartStore); !ok {
		t.Fatalf("expected memory cart store, got %T", clients.Cart)
	}
}

func TestBuildCollaborators_ReliabilityWrapping(t *testing.T) {
	t.Setenv("CART_SERVICE_URL", "")
	t.Setenv("INVENTORY_SERVICE_URL", "")
	t.Setenv("ORDER_SERVICE_URL", "")
	t.Setenv("PAYMENT_SERVICE_URL", "")
	t.Setenv("CHECKOUT_RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("CHECKOUT_RETRY_BASE_DELAY", "10ms")
	t.Setenv("CHECKOUT_RETRY_MAX_DELAY", "100ms")
	t.Setenv("CHECKOUT_BREAKER_MAX_FAILURES", "5")
	t.Setenv("CHECKOUT_BREAKER_RESET_TIMEOUT", "1s")
	t.Setenv("CHECKOUT_RATE_LIMIT_INTERVAL", "1ms")
	t.Setenv("CHECKOUT_RATE_LIMIT_BURST", "10")

	clients, err := buildCollaborators()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := clients.Inventory.(*checkout.ReliableInventoryStore); !ok {
		t.Fatalf("expected reliable inventory store, got %T", clients.Inventory)
	}
	if _, ok := clients.Payments.(*checkout.ReliablePaymentGateway); !ok {
		t.Fatalf("expected reliable payment gateway, got %T", clients.Payments)
	}
}

func TestBuildCollaborators_PartialURLsRejected(t *testing.T) {
	t.Setenv("CART_SERVICE_URL", "http://cart:8000")
	t.Setenv("INVENTORY_SERVICE_URL", "")
	t.Setenv("ORDER_SERVICE_URL", "")
	t.Setenv("PAYMENT_SERVICE_URL", "")
	t.Setenv("INTERNAL_API_KEY", "secret")

	if _, err := buildCollaborators(); err == nil {
		t.Fatalf("expected error for partial collaborator URLs")
	}
}

func TestBuildStores_NoBackendsStillRecordsToLog(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	audit, refunds, cleanup, err := buildStores(context.Background(), func(string, ...any) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	if audit != nil {
		t.Fatalf("expected no audit store without DATABASE_URL")
	}
	if refunds == nil {
		t.Fatalf("expected a refund recorder chain")
	}
	if err := refunds.Record(context.Background(), checkout.RefundIntent{IntentID: "i1"}); err != nil {
		t.Fatalf("log recorder should accept intents: %v", err)
	}
}
