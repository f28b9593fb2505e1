// Package api is the caller-facing HTTP surface: checkout, cart
// convenience endpoints, and the operator event stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"tradewind/internal/checkout"
	"tradewind/internal/events"
	"tradewind/internal/observability"
)

// CheckoutRunner is the slice of the coordinator the handlers need.
type CheckoutRunner interface {
	Checkout(ctx context.Context, sessionID string) ([]checkout.ItemOutcome, error)
}

// ServerConfig wires a Server. Coordinator and Cart are required.
type ServerConfig struct {
	Coordinator CheckoutRunner
	Cart        checkout.CartStore
	Hub         *events.Hub             // optional, enables /ws/events
	Metrics     *observability.Metrics  // optional
	Limiter     *RequestLimiter         // optional
	Logf        func(format string, args ...any)
}

// Server handles the HTTP API.
type Server struct {
	coordinator CheckoutRunner
	cart        checkout.CartStore
	hub         *events.Hub
	metrics     *observability.Metrics
	limiter     *RequestLimiter
	logf        func(format string, args ...any)
	upgrader    websocket.Upgrader
}

// NewServer constructs a Server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Coordinator == nil {
		return nil, errors.New("coordinator is required")
	}
	if cfg.Cart == nil {
		return nil, errors.New("cart store is required")
	}
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	return &Server{
		coordinator: cfg.Coordinator,
		cart:        cfg.Cart,
		hub:         cfg.Hub,
		metrics:     cfg.Metrics,
		limiter:     cfg.Limiter,
		logf:        logf,
	}, nil
}

// Routes builds the mux with middleware applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("POST /checkout/{session_id}", s.instrument("POST /checkout/{session_id}", s.handleCheckout))
	mux.Handle("GET /cart/{session_id}", s.instrument("GET /cart/{session_id}", s.handleGetCart))
	mux.Handle("POST /cart/{session_id}/items", s.instrument("POST /cart/{session_id}/items", s.handleAddItem))
	mux.Handle("DELETE /cart/{session_id}/items/{product_id}", s.instrument("DELETE /cart/{session_id}/items/{product_id}", s.handleRemoveItem))
	if s.hub != nil {
		mux.HandleFunc("GET /ws/events", s.handleEventStream)
	}
	return mux
}

type checkoutResponse struct {
	SessionID string                 `json:"session_id"`
	Outcomes  []checkout.ItemOutcome `json:"outcomes"`
	Detail    string                 `json:"detail,omitempty"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) error {
	sessionID := r.PathValue("session_id")

	outcomes, err := s.coordinator.Checkout(r.Context(), sessionID)
	switch {
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		s.metrics.AddLockRejection()
		writeDetail(w, http.StatusConflict, "checkout already in progress for this session")
		return err
	case errors.Is(err, checkout.ErrEmptyCart):
		// Nothing to do is not a failure.
		writeJSON(w, http.StatusOK, checkoutResponse{
			SessionID: sessionID,
			Outcomes:  []checkout.ItemOutcome{},
			Detail:    "cart is empty",
		})
		return nil
	case err != nil:
		s.logf("checkout session %s: %v", sessionID, err)
		writeDetail(w, http.StatusInternalServerError, "checkout failed")
		return err
	}

	for _, outcome := range outcomes {
		s.metrics.RecordItemOutcome(outcome.Success)
	}
	writeJSON(w, http.StatusOK, checkoutResponse{SessionID: sessionID, Outcomes: outcomes})
	return nil
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) error {
	sessionID := r.PathValue("session_id")

	cart, err := s.cart.GetCart(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, checkout.ErrCartNotFound) {
			writeDetail(w, http.StatusNotFound, "cart not found")
		} else {
			s.logf("get cart %s: %v", sessionID, err)
			writeDetail(w, http.StatusInternalServerError, "cart lookup failed")
		}
		return err
	}
	writeJSON(w, http.StatusOK, cart)
	return nil
}

type addItemRequest struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) error {
	sessionID := r.PathValue("session_id")

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return err
	}
	if req.ProductID <= 0 || req.Quantity <= 0 {
		err := errors.New("product_id and quantity must be positive")
		writeDetail(w, http.StatusBadRequest, err.Error())
		return err
	}

	if err := s.cart.AddItem(r.Context(), sessionID, req.ProductID, req.Quantity); err != nil {
		s.logf("add item to cart %s: %v", sessionID, err)
		writeDetail(w, http.StatusInternalServerError, "add item failed")
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) error {
	sessionID := r.PathValue("session_id")
	productID, err := strconv.Atoi(r.PathValue("product_id"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "product id must be an integer")
		return err
	}

	if err := s.cart.RemoveItem(r.Context(), sessionID, productID); err != nil {
		if errors.Is(err, checkout.ErrItemNotFound) || errors.Is(err, checkout.ErrCartNotFound) {
			writeDetail(w, http.StatusNotFound, "item not found in cart")
		} else {
			s.logf("remove item %d from cart %s: %v", productID, sessionID, err)
			writeDetail(w, http.StatusInternalServerError, "remove item failed")
		}
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// handleEventStream upgrades the connection and hands it to the hub; the
// hub owns the connection from then on.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logf("websocket upgrade: %v", err)
		return
	}
	select {
	case s.hub.Register <- conn:
	case <-s.hub.Done():
		conn.Close()
		return
	}

	// Drain reads so close frames and client disconnects are noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				select {
				case s.hub.Unregister <- conn:
				case <-s.hub.Done():
					conn.Close()
				}
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
