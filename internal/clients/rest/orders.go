package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"tradewind/internal/checkout"
)

// OrderClient talks to the order service that owns the order ledger.
type OrderClient struct {
	client
}

// NewOrderClient constructs an OrderClient.
func NewOrderClient(cfg Config) *OrderClient {
	return &OrderClient{client: newClient(cfg)}
}

type createOrderPayload struct {
	ProductID int     `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// orderPayload tolerates numeric order ids: some ledgers issue integers,
// others opaque strings.
type orderPayload struct {
	ID         json.Number `json:"id"`
	TotalPrice float64     `json:"total_price"`
}

func (c *OrderClient) CreateOrder(ctx context.Context, productID, quantity int, unitPrice float64) (checkout.Order, error) {
	payload := createOrderPayload{ProductID: productID, Quantity: quantity, UnitPrice: unitPrice}
	var created orderPayload
	if err := c.do(ctx, http.MethodPost, "/", payload, &created); err != nil {
		return checkout.Order{}, err
	}
	return checkout.Order{OrderID: created.ID.String(), TotalPrice: created.TotalPrice}, nil
}

func (c *OrderClient) CancelOrder(ctx context.Context, orderID string) error {
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/%s/cancel", orderID), nil, nil)
	if statusIs(err, http.StatusNotFound) {
		return fmt.Errorf("order %s: %w", orderID, checkout.ErrOrderNotFound)
	}
	return err
}
