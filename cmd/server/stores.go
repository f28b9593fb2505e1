package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strings"

	"tradewind/internal/checkout"
	checkoutdb "tradewind/internal/db/checkout"
	"tradewind/internal/events"
	"tradewind/internal/observability"
)

var openDB = func(driver, dsn string) (*sql.DB, error) {
	return sql.Open(driver, dsn)
}

// buildStores wires the durable pieces that are only present when their
// backends are configured: the Postgres audit trail and refund ledger
// behind DATABASE_URL, the refund intent topic behind KAFKA_BROKERS. The
// log recorder is always part of the chain so no intent is ever silent.
func buildStores(ctx context.Context, logf func(format string, args ...any)) (*checkoutdb.AuditStore, checkout.RefundRecorder, func(), error) {
	recorders := []checkout.RefundRecorder{&checkout.LogRefundRecorder{Logf: logf}}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var audit *checkoutdb.AuditStore
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		db, err := openDB("pgx", dsn)
		if err != nil {
			return nil, nil, nil, err
		}
		cleanups = append(cleanups, func() {
			if err := db.Close(); err != nil {
				log.Printf("close checkout db: %v", err)
			}
		})

		audit, err = checkoutdb.NewAuditStoreWithSchema(ctx, db)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		refundStore, err := checkoutdb.NewRefundStoreWithSchema(ctx, db)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		recorders = append(recorders, refundStore)
	}

	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		writer := events.NewRefundWriter(brokers, strings.TrimSpace(os.Getenv("KAFKA_REFUND_TOPIC")))
		if writer != nil {
			cleanups = append(cleanups, func() {
				if err := writer.Close(); err != nil {
					log.Printf("close kafka writer: %v", err)
				}
			})
			recorders = append(recorders, events.NewKafkaRefundRecorder(writer))
		}
	}

	return audit, checkout.NewMultiRefundRecorder(recorders...), cleanup, nil
}

// refundTally counts refund intents on the operator snapshot. It sits in the
// recorder chain so the count tracks what was actually recorded.
type refundTally struct {
	metrics *observability.Metrics
}

func (t refundTally) Record(context.Context, checkout.RefundIntent) error {
	t.metrics.AddRefundIntent()
	return nil
}
