package rest

import (
	"context"
	"net/http"

	"tradewind/internal/checkout"
)

// PaymentClient talks to the payment gateway.
type PaymentClient struct {
	client
}

// NewPaymentClient constructs a PaymentClient.
func NewPaymentClient(cfg Config) *PaymentClient {
	return &PaymentClient{client: newClient(cfg)}
}

type chargePayload struct {
	OrderID string  `json:"order_id"`
	Amount  float64 `json:"amount"`
}

type chargeReceipt struct {
	TransactionID string `json:"transaction_id"`
}

func (c *PaymentClient) Charge(ctx context.Context, orderID string, amount float64) (checkout.Charge, error) {
	var receipt chargeReceipt
	if err := c.do(ctx, http.MethodPost, "/", chargePayload{OrderID: orderID, Amount: amount}, &receipt); err != nil {
		return checkout.Charge{}, err
	}
	return checkout.Charge{TransactionID: receipt.TransactionID}, nil
}
