package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"tradewind/internal/checkout"
)

// DefaultRefundTopic is where refund intents land unless overridden.
const DefaultRefundTopic = "checkout.refund-intents"

// RefundWriter is the slice of kafka.Writer the refund recorder needs.
type RefundWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewRefundWriter builds a kafka writer for the refund intent topic from a
// comma-separated broker list. Returns nil when no brokers are configured.
func NewRefundWriter(brokersCSV, topic string) *kafka.Writer {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil
	}
	if topic == "" {
		topic = DefaultRefundTopic
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

// KafkaRefundRecorder publishes refund intents to a Kafka topic, keyed by
// transaction id so retries for the same charge land on one partition.
type KafkaRefundRecorder struct {
	writer RefundWriter
	now    func() time.Time
}

// NewKafkaRefundRecorder constructs a recorder over writer.
func NewKafkaRefundRecorder(writer RefundWriter) *KafkaRefundRecorder {
	return &KafkaRefundRecorder{writer: writer, now: time.Now}
}

// refundIntentMessage is the topic's wire schema; the in-process struct
// stays free of serialization concerns.
type refundIntentMessage struct {
	IntentID      string    `json:"intent_id"`
	TransactionID string    `json:"transaction_id"`
	OrderID       string    `json:"order_id"`
	Amount        float64   `json:"amount"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"created_at"`
}

func (r *KafkaRefundRecorder) Record(ctx context.Context, intent checkout.RefundIntent) error {
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = r.now().UTC()
	}
	data, err := json.Marshal(refundIntentMessage{
		IntentID:      intent.IntentID,
		TransactionID: intent.TransactionID,
		OrderID:       intent.OrderID,
		Amount:        intent.Amount,
		Reason:        intent.Reason,
		CreatedAt:     intent.CreatedAt,
	})
	if err != nil {
		return err
	}
	key := intent.TransactionID
	if key == "" {
		key = intent.IntentID
	}
	return r.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  r.now().UTC(),
	})
}
