package events

import (
	"context"
	"errors"
	"testing"

	"tradewind/internal/checkout"
)

type publisherFunc func(ctx context.Context, sessionID string, outcome checkout.ItemOutcome) error

func (f publisherFunc) Publish(ctx context.Context, sessionID string, outcome checkout.ItemOutcome) error {
	return f(ctx, sessionID, outcome)
}

func TestFanoutPublisher_AllGetTheOutcome(t *testing.T) {
	var first, second []checkout.ItemOutcome
	failed := errors.New("stream down")

	fanout := NewFanoutPublisher(
		publisherFunc(func(_ context.Context, _ string, outcome checkout.ItemOutcome) error {
			first = append(first, outcome)
			return failed
		}),
		publisherFunc(func(_ context.Context, _ string, outcome checkout.ItemOutcome) error {
			second = append(second, outcome)
			return nil
		}),
	)

	err := fanout.Publish(context.Background(), "s1", checkout.ItemOutcome{ProductID: 42})
	if !errors.Is(err, failed) {
		t.Fatalf("expected first publisher's error to surface, got %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected both publishers to receive the outcome, got %d and %d", len(first), len(second))
	}
}
