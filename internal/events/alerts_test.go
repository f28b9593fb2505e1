package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCompensationAlerter_BroadcastsFailure(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	conn := startHubServer(t, hub)
	waitRegistered(t, hub)

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	alerter := NewCompensationAlerter(hub)
	alerter.now = func() time.Time { return fixed }

	alerter.CompensationFailed(context.Background(), "reduce_stock", errors.New("inventory unreachable"))

	var alert CompensationAlert
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&alert); err != nil {
		t.Fatalf("read alert: %v", err)
	}
	if alert.Type != "checkout.compensation_failed" {
		t.Fatalf("unexpected type %q", alert.Type)
	}
	if alert.Step != "reduce_stock" || alert.Error != "inventory unreachable" {
		t.Fatalf("unexpected alert: %+v", alert)
	}
	if !alert.Timestamp.Equal(fixed) {
		t.Fatalf("expected timestamp %v, got %v", fixed, alert.Timestamp)
	}
}

func TestCompensationAlerter_DoesNotBlockAfterShutdown(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	<-hub.Done()

	var logged bool
	alerter := NewCompensationAlerter(hub)
	alerter.logf = func(string, ...any) { logged = true }

	done := make(chan struct{})
	go func() {
		alerter.CompensationFailed(context.Background(), "reduce_stock", errors.New("boom"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("alerter blocked on a stopped hub")
	}
	if !logged {
		t.Fatalf("expected the dropped alert to be logged")
	}
}
