package checkout

import (
	"context"
	"errors"
	"log"
	"time"
)

// RefundIntent records that a captured charge should be reversed. Recording
// an intent is not a synchronous refund: payment reversal happens out of band
// (an async worker, a gateway webhook), so operators must treat a recorded
// intent as "refund pending", never as a completed undo.
type RefundIntent struct {
	IntentID      string
	TransactionID string
	OrderID       string
	Amount        float64
	Reason        string
	CreatedAt     time.Time
}

// RefundRecorder durably records refund intents for later, out-of-band
// processing.
type RefundRecorder interface {
	Record(ctx context.Context, intent RefundIntent) error
}

// LogRefundRecorder writes refund intents to the log only. It is the
// fallback when no durable recorder is configured.
type LogRefundRecorder struct {
	Logf func(format string, args ...any)
}

func (r *LogRefundRecorder) Record(_ context.Context, intent RefundIntent) error {
	logf := r.Logf
	if logf == nil {
		logf = log.Printf
	}
	logf("refund intent %s: transaction=%s order=%s amount=%.2f reason=%q",
		intent.IntentID, intent.TransactionID, intent.OrderID, intent.Amount, intent.Reason)
	return nil
}

// MultiRefundRecorder records an intent with each recorder in order,
// collecting errors so every recorder gets a chance to write.
type MultiRefundRecorder struct {
	recorders []RefundRecorder
}

// NewMultiRefundRecorder constructs a recorder fanning out to each recorder
// in sequence.
func NewMultiRefundRecorder(recorders ...RefundRecorder) *MultiRefundRecorder {
	return &MultiRefundRecorder{recorders: recorders}
}

func (m *MultiRefundRecorder) Record(ctx context.Context, intent RefundIntent) error {
	var errs []error
	for _, r := range m.recorders {
		if err := r.Record(ctx, intent); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
