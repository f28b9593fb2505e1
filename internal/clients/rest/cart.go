package rest

import (
	"context"
	"fmt"
	"net/http"

	"tradewind/internal/checkout"
)

// CartClient talks to the session service that owns carts.
type CartClient struct {
	client
}

// NewCartClient constructs a CartClient.
func NewCartClient(cfg Config) *CartClient {
	return &CartClient{client: newClient(cfg)}
}

type cartItemPayload struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type cartPayload struct {
	SessionID string            `json:"session_id"`
	Items     []cartItemPayload `json:"items"`
}

func (c *CartClient) GetCart(ctx context.Context, sessionID string) (checkout.Cart, error) {
	var payload cartPayload
	err := c.do(ctx, http.MethodGet, "/"+sessionID, nil, &payload)
	if err != nil {
		if statusIs(err, http.StatusNotFound) {
			return checkout.Cart{}, fmt.Errorf("session %s: %w", sessionID, checkout.ErrCartNotFound)
		}
		return checkout.Cart{}, err
	}

	cart := checkout.Cart{SessionID: sessionID}
	for _, item := range payload.Items {
		cart.Items = append(cart.Items, checkout.CartItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return cart, nil
}

func (c *CartClient) RemoveItem(ctx context.Context, sessionID string, productID int) error {
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/%s/items/%d", sessionID, productID), nil, nil)
	if statusIs(err, http.StatusNotFound) {
		return fmt.Errorf("session %s product %d: %w", sessionID, productID, checkout.ErrItemNotFound)
	}
	return err
}

func (c *CartClient) AddItem(ctx context.Context, sessionID string, productID, quantity int) error {
	payload := cartItemPayload{ProductID: productID, Quantity: quantity}
	err := c.do(ctx, http.MethodPost, "/"+sessionID+"/items", payload, nil)
	if statusIs(err, http.StatusNotFound) {
		return fmt.Errorf("session %s: %w", sessionID, checkout.ErrCartNotFound)
	}
	return err
}
