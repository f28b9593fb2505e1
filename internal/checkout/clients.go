// Package checkout coordinates multi-step purchases across the cart,
// inventory, order, and payment collaborators. None of the collaborators
// share a transaction boundary, so each cart item is processed by its own
// compensating saga and the package presents an all-or-nothing outcome per
// item rather than across the whole cart.
package checkout

import (
	"context"
	"errors"
)

// Collaborator rejections. Transport clients map remote responses onto these
// so step failures keep their business reason for the caller-facing message.
var (
	ErrCartNotFound      = errors.New("cart not found")
	ErrItemNotFound      = errors.New("cart item not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
)

// CartItem is a snapshot of one cart entry, immutable for the duration of a
// checkout call.
type CartItem struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// Cart is the cart snapshot fetched at the start of a checkout call.
type Cart struct {
	SessionID string     `json:"session_id"`
	Items     []CartItem `json:"items"`
}

// Product describes an inventory entry.
type Product struct {
	Name  string
	Price float64
	Stock int
}

// Order is the record returned by the order ledger on creation.
type Order struct {
	OrderID    string
	TotalPrice float64
}

// Charge is the receipt returned by the payment gateway.
type Charge struct {
	TransactionID string
}

// CartStore owns session carts. RemoveItem is an atomic claim: at most one
// caller succeeds in removing a given entry.
type CartStore interface {
	GetCart(ctx context.Context, sessionID string) (Cart, error)
	RemoveItem(ctx context.Context, sessionID string, productID int) error
	AddItem(ctx context.Context, sessionID string, productID, quantity int) error
}

// InventoryStore owns product data and stock levels.
type InventoryStore interface {
	GetProduct(ctx context.Context, productID int) (Product, error)
	ReduceStock(ctx context.Context, productID, quantity int) error
	RestoreStock(ctx context.Context, productID, quantity int) error
}

// OrderLedger owns order records. CancelOrder is a logical cancellation that
// preserves the audit trail, not a physical delete.
type OrderLedger interface {
	CreateOrder(ctx context.Context, productID, quantity int, unitPrice float64) (Order, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// PaymentGateway charges the computed order total.
type PaymentGateway interface {
	Charge(ctx context.Context, orderID string, amount float64) (Charge, error)
}

// Clients bundles the four collaborator handles a checkout saga operates on.
// Steps receive it explicitly rather than capturing connection details from
// enclosing scope, so they stay testable with fake collaborators.
type Clients struct {
	Cart      CartStore
	Inventory InventoryStore
	Orders    OrderLedger
	Payments  PaymentGateway
}

// Validate reports the first missing collaborator handle.
func (c Clients) Validate() error {
	switch {
	case c.Cart == nil:
		return errors.New("cart store is required")
	case c.Inventory == nil:
		return errors.New("inventory store is required")
	case c.Orders == nil:
		return errors.New("order ledger is required")
	case c.Payments == nil:
		return errors.New("payment gateway is required")
	}
	return nil
}
