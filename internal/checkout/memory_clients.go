package checkout

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// NewMemoryCartStore constructs an in-memory cart store.
func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[string][]CartItem)}
}

// MemoryCartStore keeps session carts in memory. It backs tests and
// single-process deployments without a session service.
type MemoryCartStore struct {
	mu    sync.Mutex
	carts map[string][]CartItem
}

func (s *MemoryCartStore) GetCart(_ context.Context, sessionID string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.carts[sessionID]
	if !ok {
		return Cart{}, ErrCartNotFound
	}
	snapshot := make([]CartItem, len(items))
	copy(snapshot, items)
	return Cart{SessionID: sessionID, Items: snapshot}, nil
}

func (s *MemoryCartStore) RemoveItem(_ context.Context, sessionID string, productID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.carts[sessionID]
	if !ok {
		return ErrCartNotFound
	}
	for i, item := range items {
		if item.ProductID == productID {
			s.carts[sessionID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

func (s *MemoryCartStore) AddItem(_ context.Context, sessionID string, productID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.carts[sessionID] {
		if item.ProductID == productID {
			s.carts[sessionID][i].Quantity += quantity
			return nil
		}
	}
	s.carts[sessionID] = append(s.carts[sessionID], CartItem{ProductID: productID, Quantity: quantity})
	return nil
}

// NewMemoryInventoryStore constructs an in-memory inventory seeded with the
// given products.
func NewMemoryInventoryStore(products map[int]Product) *MemoryInventoryStore {
	seeded := make(map[int]Product, len(products))
	for id, p := range products {
		seeded[id] = p
	}
	return &MemoryInventoryStore{products: seeded}
}

// MemoryInventoryStore keeps products and stock levels in memory.
type MemoryInventoryStore struct {
	mu       sync.Mutex
	products map[int]Product
}

func (s *MemoryInventoryStore) GetProduct(_ context.Context, productID int) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (s *MemoryInventoryStore) ReduceStock(_ context.Context, productID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	if p.Stock < quantity {
		return ErrInsufficientStock
	}
	p.Stock -= quantity
	s.products[productID] = p
	return nil
}

func (s *MemoryInventoryStore) RestoreStock(_ context.Context, productID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	p.Stock += quantity
	s.products[productID] = p
	return nil
}

// Stock returns the current stock level (for testing/inspection).
func (s *MemoryInventoryStore) Stock(productID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].Stock
}

// NewMemoryOrderLedger constructs an in-memory order ledger.
func NewMemoryOrderLedger() *MemoryOrderLedger {
	return &MemoryOrderLedger{orders: make(map[string]memoryOrder)}
}

type memoryOrder struct {
	productID int
	quantity  int
	unitPrice float64
	total     float64
	status    string
}

// MemoryOrderLedger keeps order records in memory. Cancellation is logical:
// the record stays with status "cancelled".
type MemoryOrderLedger struct {
	mu     sync.Mutex
	orders map[string]memoryOrder
}

func (l *MemoryOrderLedger) CreateOrder(_ context.Context, productID, quantity int, unitPrice float64) (Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	orderID := uuid.NewString()
	total := unitPrice * float64(quantity)
	l.orders[orderID] = memoryOrder{
		productID: productID,
		quantity:  quantity,
		unitPrice: unitPrice,
		total:     total,
		status:    "created",
	}
	return Order{OrderID: orderID, TotalPrice: total}, nil
}

func (l *MemoryOrderLedger) CancelOrder(_ context.Context, orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	order.status = "cancelled"
	l.orders[orderID] = order
	return nil
}

// OrderStatus returns an order's status (for testing/inspection).
func (l *MemoryOrderLedger) OrderStatus(orderID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[orderID]
	return order.status, ok
}

// NewMemoryPaymentGateway constructs an in-memory payment gateway.
func NewMemoryPaymentGateway() *MemoryPaymentGateway {
	return &MemoryPaymentGateway{charges: make(map[string]float64)}
}

// MemoryPaymentGateway records charges in memory keyed by order id.
type MemoryPaymentGateway struct {
	mu      sync.Mutex
	charges map[string]float64
}

func (g *MemoryPaymentGateway) Charge(_ context.Context, orderID string, amount float64) (Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges[orderID] = amount
	return Charge{TransactionID: uuid.NewString()}, nil
}

// WasCharged reports whether an order was charged (for testing/inspection).
func (g *MemoryPaymentGateway) WasCharged(orderID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.charges[orderID]
	return ok
}
