package rest

import (
	"context"
	"fmt"
	"net/http"

	"tradewind/internal/checkout"
)

// InventoryClient talks to the product service that owns stock levels.
type InventoryClient struct {
	client
}

// NewInventoryClient constructs an InventoryClient.
func NewInventoryClient(cfg Config) *InventoryClient {
	return &InventoryClient{client: newClient(cfg)}
}

type productPayload struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

type quantityPayload struct {
	Quantity int `json:"quantity"`
}

func (c *InventoryClient) GetProduct(ctx context.Context, productID int) (checkout.Product, error) {
	var payload productPayload
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/%d", productID), nil, &payload)
	if err != nil {
		if statusIs(err, http.StatusNotFound) {
			return checkout.Product{}, fmt.Errorf("product %d: %w", productID, checkout.ErrProductNotFound)
		}
		return checkout.Product{}, err
	}
	return checkout.Product{Name: payload.Name, Price: payload.Price, Stock: payload.Stock}, nil
}

func (c *InventoryClient) ReduceStock(ctx context.Context, productID, quantity int) error {
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/%d/reduce_stock", productID), quantityPayload{Quantity: quantity}, nil)
	switch {
	case err == nil:
		return nil
	case statusIs(err, http.StatusNotFound):
		return fmt.Errorf("product %d: %w", productID, checkout.ErrProductNotFound)
	case statusIs(err, http.StatusConflict), statusIs(err, http.StatusBadRequest):
		return fmt.Errorf("product %d: %w", productID, checkout.ErrInsufficientStock)
	default:
		return err
	}
}

func (c *InventoryClient) RestoreStock(ctx context.Context, productID, quantity int) error {
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/%d/restore_stock", productID), quantityPayload{Quantity: quantity}, nil)
	if statusIs(err, http.StatusNotFound) {
		return fmt.Errorf("product %d: %w", productID, checkout.ErrProductNotFound)
	}
	return err
}
