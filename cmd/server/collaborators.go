package main

import (
	"log"
	"os"
	"strings"

	"tradewind/cmd/server/config"
	"tradewind/internal/checkout"
	"tradewind/internal/clients/rest"
)

// buildCollaborators assembles the four collaborator handles. Without
// collaborator URLs the in-memory fakes back the service, seeded with a
// small catalog so local checkouts have something to buy.
func buildCollaborators() (checkout.Clients, error) {
	cfg, err := config.LoadCollaborators()
	if err != nil {
		return checkout.Clients{}, err
	}

	var clients checkout.Clients
	if cfg.Remote() {
		clients = checkout.Clients{
			Cart:      rest.NewCartClient(rest.Config{BaseURL: cfg.CartURL, APIKey: cfg.APIKey, Timeout: cfg.Timeout}),
			Inventory: rest.NewInventoryClient(rest.Config{BaseURL: cfg.InventoryURL, APIKey: cfg.APIKey, Timeout: cfg.Timeout}),
			Orders:    rest.NewOrderClient(rest.Config{BaseURL: cfg.OrderURL, APIKey: cfg.APIKey, Timeout: cfg.Timeout}),
			Payments:  rest.NewPaymentClient(rest.Config{BaseURL: cfg.PaymentURL, APIKey: cfg.APIKey, Timeout: cfg.Timeout}),
		}
	} else {
		log.Println("collaborator URLs not set, using in-memory collaborators")
		clients = checkout.Clients{
			Cart: checkout.NewMemoryCartStore(),
			Inventory: checkout.NewMemoryInventoryStore(map[int]checkout.Product{
				1: {Name: "field kettle", Price: 34.50, Stock: 25},
				2: {Name: "canvas pack", Price: 89.00, Stock: 10},
				3: {Name: "trail compass", Price: 19.99, Stock: 40},
			}),
			Orders:   checkout.NewMemoryOrderLedger(),
			Payments: checkout.NewMemoryPaymentGateway(),
		}
	}

	return wrapReliability(clients)
}

// wrapReliability decorates the inventory and payment handles when the
// reliability envs are present; without them the raw clients are used.
func wrapReliability(clients checkout.Clients) (checkout.Clients, error) {
	if strings.TrimSpace(os.Getenv("CHECKOUT_RETRY_MAX_ATTEMPTS")) == "" {
		return clients, nil
	}

	cfg, err := checkout.LoadReliabilityConfig()
	if err != nil {
		return clients, err
	}

	limiter := checkout.NewRateLimiter(cfg.RateLimitInterval, cfg.RateLimitBurst)
	inventoryBreaker := checkout.NewCircuitBreaker(checkout.CircuitBreakerConfig{
		MaxFailures:  cfg.BreakerMaxFailures,
		ResetTimeout: cfg.BreakerResetTimeout,
	})
	paymentBreaker := checkout.NewCircuitBreaker(checkout.CircuitBreakerConfig{
		MaxFailures:  cfg.BreakerMaxFailures,
		ResetTimeout: cfg.BreakerResetTimeout,
	})

	clients.Inventory = checkout.NewReliableInventoryStore(clients.Inventory, limiter, inventoryBreaker, cfg.RetryPolicy())
	clients.Payments = checkout.NewReliablePaymentGateway(clients.Payments, limiter, paymentBreaker)
	return clients, nil
}
