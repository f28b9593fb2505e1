package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"tradewind/internal/checkout"
)

type capturingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *capturingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func TestKafkaRefundRecorder_PublishesIntentKeyedByTransaction(t *testing.T) {
	writer := &capturingWriter{}
	recorder := NewKafkaRefundRecorder(writer)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recorder.now = func() time.Time { return fixed }

	intent := checkout.RefundIntent{
		IntentID:      "i1",
		TransactionID: "tx-9",
		OrderID:       "o1",
		Amount:        59.97,
		Reason:        "create_order failed",
		CreatedAt:     fixed,
	}
	if err := recorder.Record(context.Background(), intent); err != nil {
		t.Fatalf("record: %v", err)
	}

	if len(writer.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "tx-9" {
		t.Fatalf("expected key tx-9, got %q", msg.Key)
	}
	var payload map[string]any
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["transaction_id"] != "tx-9" || payload["order_id"] != "o1" || payload["amount"] != 59.97 {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestKafkaRefundRecorder_FallsBackToIntentKey(t *testing.T) {
	writer := &capturingWriter{}
	recorder := NewKafkaRefundRecorder(writer)

	if err := recorder.Record(context.Background(), checkout.RefundIntent{IntentID: "i1"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if string(writer.messages[0].Key) != "i1" {
		t.Fatalf("expected fallback key i1, got %q", writer.messages[0].Key)
	}
}

func TestKafkaRefundRecorder_SurfacesWriteError(t *testing.T) {
	failed := errors.New("broker unavailable")
	recorder := NewKafkaRefundRecorder(&capturingWriter{err: failed})

	if err := recorder.Record(context.Background(), checkout.RefundIntent{IntentID: "i1"}); !errors.Is(err, failed) {
		t.Fatalf("expected broker error, got %v", err)
	}
}

func TestNewRefundWriter_EmptyBrokersDisabled(t *testing.T) {
	if w := NewRefundWriter(" , ", ""); w != nil {
		t.Fatalf("expected nil writer for empty broker list")
	}
	w := NewRefundWriter("localhost:9092, localhost:9093", "")
	if w == nil {
		t.Fatalf("expected a writer")
	}
	if w.Topic != DefaultRefundTopic {
		t.Fatalf("expected default topic, got %q", w.Topic)
	}
}
