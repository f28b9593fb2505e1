package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLogRefundRecorder_WritesIntentToLog(t *testing.T) {
	var lines []string
	recorder := &LogRefundRecorder{Logf: func(format string, args ...any) {
		lines = append(lines, format)
	}}

	err := recorder.Record(context.Background(), RefundIntent{
		IntentID:      "i1",
		TransactionID: "tx1",
		OrderID:       "o1",
		Amount:        12.5,
		Reason:        "rollback",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(lines) != 1 || !strings.Contains(lines[0], "refund intent") {
		t.Fatalf("expected a refund intent log line, got %v", lines)
	}
}

func TestMultiRefundRecorder_AllRecordersGetAChance(t *testing.T) {
	failed := errors.New("kafka down")
	failing := refundRecorderFunc(func(context.Context, RefundIntent) error { return failed })
	captured := &capturingRecorder{}

	multi := NewMultiRefundRecorder(failing, captured)
	err := multi.Record(context.Background(), RefundIntent{IntentID: "i1"})

	if !errors.Is(err, failed) {
		t.Fatalf("expected the first recorder's failure to surface, got %v", err)
	}
	if len(captured.intents) != 1 {
		t.Fatalf("expected the second recorder to record despite the first failing")
	}
}

type refundRecorderFunc func(ctx context.Context, intent RefundIntent) error

func (f refundRecorderFunc) Record(ctx context.Context, intent RefundIntent) error {
	return f(ctx, intent)
}
