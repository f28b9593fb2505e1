package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsTracksCalls(t *testing.T) {
	metrics := NewMetrics()
	span := metrics.Start("POST /checkout/{session_id}")
	time.Sleep(1 * time.Millisecond)
	span.End(nil)

	span = metrics.Start("POST /checkout/{session_id}")
	span.End(errors.New("fail"))

	snap := metrics.Snapshot()
	stats := snap.Routes["POST /checkout/{session_id}"]
	if stats.Count != 2 {
		t.Fatalf("expected 2 calls, got %d", stats.Count)
	}
	if stats.Errors != 1 {
		t.Fatalf("expected 1 error, got %d", stats.Errors)
	}
	if stats.InFlight != 0 {
		t.Fatalf("expected 0 inflight, got %d", stats.InFlight)
	}
	if snap.TotalRequests != 2 || snap.TotalErrors != 1 {
		t.Fatalf("unexpected totals: %+v", snap)
	}
}

func TestMetricsTracksRateLimitWait(t *testing.T) {
	metrics := NewMetrics()
	metrics.AddRateLimitWait(50 * time.Millisecond)
	metrics.AddRateLimitWait(25 * time.Millisecond)
	metrics.AddRateLimitWait(0)

	snap := metrics.Snapshot()
	if snap.RateLimitWaits != 2 {
		t.Fatalf("expected 2 waits, got %d", snap.RateLimitWaits)
	}
	if snap.RateLimitWaitMs != 75 {
		t.Fatalf("expected 75ms, got %d", snap.RateLimitWaitMs)
	}
}

func TestMetricsTracksCheckoutCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordItemOutcome(true)
	metrics.RecordItemOutcome(true)
	metrics.RecordItemOutcome(false)
	metrics.AddLockRejection()
	metrics.AddRefundIntent()

	snap := metrics.Snapshot()
	if snap.Checkout.ItemsSucceeded != 2 || snap.Checkout.ItemsFailed != 1 {
		t.Fatalf("unexpected item tallies: %+v", snap.Checkout)
	}
	if snap.Checkout.LockRejections != 1 || snap.Checkout.RefundIntents != 1 {
		t.Fatalf("unexpected checkout counters: %+v", snap.Checkout)
	}
}

func TestMetricsMarkShutdown(t *testing.T) {
	metrics := NewMetrics()
	metrics.MarkShutdown(5)
	snap := metrics.Snapshot()
	if snap.Lifecycle == nil {
		t.Fatalf("expected lifecycle snapshot")
	}
	if snap.Lifecycle.InFlightAtShutdown != 5 {
		t.Fatalf("expected inflight 5, got %d", snap.Lifecycle.InFlightAtShutdown)
	}
	if snap.Lifecycle.ShutdownAt.IsZero() {
		t.Fatalf("expected shutdown timestamp")
	}
}

func TestHandlerReturnsJSON(t *testing.T) {
	metrics := NewMetrics()
	span := metrics.Start("/test")
	span.End(errors.New("fail"))

	req := httptest.NewRequest(http.MethodGet, "/varz", nil)
	rr := httptest.NewRecorder()

	Handler(metrics).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var snap Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if snap.TotalErrors != 1 {
		t.Fatalf("expected total errors 1, got %d", snap.TotalErrors)
	}
	if len(snap.Routes) == 0 {
		t.Fatalf("expected routes in snapshot")
	}
}

func TestMetricsNilSafePaths(t *testing.T) {
	var m *Metrics
	span := m.Start("ignored") // nil-safe
	span.End(nil)              // should not panic

	m.MarkShutdown(10) // nil-safe
	m.RecordItemOutcome(true)
	m.AddLockRejection()
}

func TestSagaMetricsCountsLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	saga := NewSagaMetrics(reg)
	ctx := context.Background()

	saga.StepStarted(ctx, "reduce_stock")
	saga.StepSucceeded(ctx, "reduce_stock")
	saga.StepFailed(ctx, "create_order", errors.New("down"))
	saga.StepCompensated(ctx, "reduce_stock")
	saga.StepCompensated(ctx, "claim_cart_item")
	saga.CompensationFailed(ctx, "reduce_stock", errors.New("still down"))

	if got := testutil.ToFloat64(saga.StepFailures.WithLabelValues("create_order")); got != 1 {
		t.Fatalf("expected 1 step failure, got %v", got)
	}
	if got := testutil.ToFloat64(saga.Compensations.WithLabelValues("reduce_stock")); got != 1 {
		t.Fatalf("expected 1 reduce_stock compensation, got %v", got)
	}
	if got := testutil.ToFloat64(saga.CompensationFailures.WithLabelValues("reduce_stock")); got != 1 {
		t.Fatalf("expected 1 compensation failure, got %v", got)
	}
}
