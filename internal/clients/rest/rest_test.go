package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradewind/internal/checkout"
)

func TestCartClient_GetCartDecodesItemsAndSendsAPIKey(t *testing.T) {
	var gotKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Internal-API-Key")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{
			"session_id": "s1",
			"items": []map[string]int{
				{"product_id": 42, "quantity": 2},
				{"product_id": 7, "quantity": 1},
			},
		})
	}))
	defer srv.Close()

	client := NewCartClient(Config{BaseURL: srv.URL, APIKey: "secret"})
	cart, err := client.GetCart(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}

	if gotKey != "secret" {
		t.Fatalf("expected API key header, got %q", gotKey)
	}
	if gotPath != "/s1" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if len(cart.Items) != 2 || cart.Items[0].ProductID != 42 || cart.Items[1].Quantity != 1 {
		t.Fatalf("unexpected cart: %+v", cart)
	}
}

func TestCartClient_MissingSessionMapsToCartNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Session not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewCartClient(Config{BaseURL: srv.URL})
	if _, err := client.GetCart(context.Background(), "nope"); !errors.Is(err, checkout.ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}
}

func TestCartClient_RemoveItemMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/s1/items/42" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		http.Error(w, `{"detail":"Session not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewCartClient(Config{BaseURL: srv.URL})
	if err := client.RemoveItem(context.Background(), "s1", 42); !errors.Is(err, checkout.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestInventoryClient_ReduceStockMapsInsufficientStock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/7/reduce_stock" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload struct {
			Quantity int `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload.Quantity != 100 {
			t.Errorf("unexpected quantity %d", payload.Quantity)
		}
		http.Error(w, `{"detail":"Insufficient stock"}`, http.StatusConflict)
	}))
	defer srv.Close()

	client := NewInventoryClient(Config{BaseURL: srv.URL})
	err := client.ReduceStock(context.Background(), 7, 100)
	if !errors.Is(err, checkout.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestInventoryClient_GetProductDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "widget", "price": 2.5, "stock": 9})
	}))
	defer srv.Close()

	client := NewInventoryClient(Config{BaseURL: srv.URL})
	product, err := client.GetProduct(context.Background(), 42)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Name != "widget" || product.Price != 2.5 || product.Stock != 9 {
		t.Fatalf("unexpected product: %+v", product)
	}
}

func TestOrderClient_CreateOrderToleratesNumericIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			ProductID int     `json:"product_id"`
			Quantity  int     `json:"quantity"`
			UnitPrice float64 `json:"unit_price"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload.ProductID != 42 || payload.Quantity != 3 || payload.UnitPrice != 2.5 {
			t.Errorf("unexpected payload %+v", payload)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1017, "total_price": 7.5})
	}))
	defer srv.Close()

	client := NewOrderClient(Config{BaseURL: srv.URL})
	order, err := client.CreateOrder(context.Background(), 42, 3, 2.5)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.OrderID != "1017" || order.TotalPrice != 7.5 {
		t.Fatalf("unexpected order: %+v", order)
	}
}

func TestPaymentClient_ChargeReturnsTransactionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"transaction_id": "tx-9"})
	}))
	defer srv.Close()

	client := NewPaymentClient(Config{BaseURL: srv.URL})
	charge, err := client.Charge(context.Background(), "1017", 7.5)
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if charge.TransactionID != "tx-9" {
		t.Fatalf("unexpected charge: %+v", charge)
	}
}

func TestClient_TimeoutSurfacesAsError(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client := NewInventoryClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := client.GetProduct(context.Background(), 42)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRemoteError_KeepsDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"ledger unavailable"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewOrderClient(Config{BaseURL: srv.URL})
	_, err := client.CreateOrder(context.Background(), 1, 1, 1)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Status != http.StatusServiceUnavailable || remote.Detail != "ledger unavailable" {
		t.Fatalf("unexpected remote error: %+v", remote)
	}
}
