package checkout

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"tradewind/internal/saga"
)

// Step names, as they appear in failure reasons, audit rows, and metrics.
const (
	StepClaimCartItem  = "claim_cart_item"
	StepFetchProduct   = "fetch_product"
	StepReduceStock    = "reduce_stock"
	StepCreateOrder    = "create_order"
	StepProcessPayment = "process_payment"
)

// Saga context keys. The coordinator seeds the first three; steps write the
// rest for later steps and the result aggregator.
const (
	ctxSessionID     = "session_id"
	ctxProductID     = "product_id"
	ctxQuantity      = "quantity"
	ctxProductName   = "product_name"
	ctxUnitPrice     = "unit_price"
	ctxOrderID       = "order_id"
	ctxTotalPrice    = "total_price"
	ctxTransactionID = "transaction_id"
)

// newCheckoutSaga builds the five-step purchase saga over the given
// collaborators. The definition is stateless: all per-item state lives in the
// run context, so one definition serves every item of every checkout call.
func newCheckoutSaga(clients Clients, refunds RefundRecorder, logf func(format string, args ...any)) *saga.Definition {
	if logf == nil {
		logf = log.Printf
	}

	return saga.NewDefinition().
		// Claiming first guarantees this execution is the only one entitled
		// to process the item, even if a duplicate request races in.
		Step(StepClaimCartItem,
			func(ctx context.Context, run *saga.Context) error {
				return clients.Cart.RemoveItem(ctx, run.String(ctxSessionID), run.Int(ctxProductID))
			},
			func(ctx context.Context, run *saga.Context) error {
				return clients.Cart.AddItem(ctx, run.String(ctxSessionID), run.Int(ctxProductID), run.Int(ctxQuantity))
			}).
		// Read-only, nothing to undo.
		Step(StepFetchProduct,
			func(ctx context.Context, run *saga.Context) error {
				product, err := clients.Inventory.GetProduct(ctx, run.Int(ctxProductID))
				if err != nil {
					return err
				}
				run.Set(ctxProductName, product.Name)
				run.Set(ctxUnitPrice, product.Price)
				return nil
			},
			nil).
		// Stock failure here aborts before money changes hands.
		Step(StepReduceStock,
			func(ctx context.Context, run *saga.Context) error {
				return clients.Inventory.ReduceStock(ctx, run.Int(ctxProductID), run.Int(ctxQuantity))
			},
			func(ctx context.Context, run *saga.Context) error {
				return clients.Inventory.RestoreStock(ctx, run.Int(ctxProductID), run.Int(ctxQuantity))
			}).
		// The total is computed from the fetched unit price, never from a
		// client-supplied one.
		Step(StepCreateOrder,
			func(ctx context.Context, run *saga.Context) error {
				order, err := clients.Orders.CreateOrder(ctx, run.Int(ctxProductID), run.Int(ctxQuantity), run.Float(ctxUnitPrice))
				if err != nil {
					return err
				}
				run.Set(ctxOrderID, order.OrderID)
				run.Set(ctxTotalPrice, order.TotalPrice)
				return nil
			},
			func(ctx context.Context, run *saga.Context) error {
				orderID := run.String(ctxOrderID)
				if orderID == "" {
					return nil
				}
				return clients.Orders.CancelOrder(ctx, orderID)
			}).
		// The compensation records a refund intent only: reversal is
		// asynchronous, so a rolled-back payment shows up as "refund
		// pending", not as an in-line refund call.
		Step(StepProcessPayment,
			func(ctx context.Context, run *saga.Context) error {
				charge, err := clients.Payments.Charge(ctx, run.String(ctxOrderID), run.Float(ctxTotalPrice))
				if err != nil {
					return err
				}
				run.Set(ctxTransactionID, charge.TransactionID)
				return nil
			},
			func(ctx context.Context, run *saga.Context) error {
				txID := run.String(ctxTransactionID)
				if txID == "" {
					return nil
				}
				intent := RefundIntent{
					IntentID:      uuid.NewString(),
					TransactionID: txID,
					OrderID:       run.String(ctxOrderID),
					Amount:        run.Float(ctxTotalPrice),
					Reason:        fmt.Sprintf("checkout rollback for product %d", run.Int(ctxProductID)),
				}
				logf("recording refund intent for transaction %s", txID)
				return refunds.Record(ctx, intent)
			})
}
