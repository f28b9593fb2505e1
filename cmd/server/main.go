package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"tradewind/cmd/server/config"
	"tradewind/internal/adapters/api"
	"tradewind/internal/checkout"
	"tradewind/internal/events"
	"tradewind/internal/observability"
	"tradewind/internal/saga"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func run(ctx context.Context) error {
	metrics := observability.NewMetrics()
	sagaMetrics := observability.NewSagaMetrics(prometheus.DefaultRegisterer)

	clients, err := buildCollaborators()
	if err != nil {
		return err
	}

	locker, cleanupLocker, err := buildSessionLocker(ctx)
	if err != nil {
		return err
	}
	defer cleanupLocker()

	audit, refunds, cleanupStores, err := buildStores(ctx, log.Printf)
	if err != nil {
		return err
	}
	defer cleanupStores()
	refunds = checkout.NewMultiRefundRecorder(refunds, refundTally{metrics: metrics})

	hub := events.NewHub()
	go hub.Run(ctx)

	coordinatorCfg := checkout.CoordinatorConfig{
		Clients:   clients,
		Locks:     locker,
		Refunds:   refunds,
		Publisher: events.NewHubPublisher(hub),
		Observer:  saga.CombineObservers(sagaMetrics, events.NewCompensationAlerter(hub)),
		Logf:      log.Printf,
	}
	if audit != nil {
		coordinatorCfg.Audit = audit
	}
	if raw := strings.TrimSpace(os.Getenv("CHECKOUT_CONCURRENCY")); raw != "" {
		concurrency, err := strconv.Atoi(raw)
		if err != nil || concurrency < 0 {
			return fmt.Errorf("CHECKOUT_CONCURRENCY: invalid value %q", raw)
		}
		coordinatorCfg.Concurrency = concurrency
	}

	coordinator, err := checkout.NewCoordinator(coordinatorCfg)
	if err != nil {
		return err
	}

	httpCfg, err := config.LoadHTTP()
	if err != nil {
		return err
	}
	limiter := api.NewRequestLimiter(httpCfg.RateLimitInterval, httpCfg.RateLimitBurst, metrics.AddRateLimitWait)

	apiServer, err := api.NewServer(api.ServerConfig{
		Coordinator: coordinator,
		Cart:        clients.Cart,
		Hub:         hub,
		Metrics:     metrics,
		Limiter:     limiter,
		Logf:        log.Printf,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              httpCfg.Addr,
		Handler:           apiServer.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	obsSrv, err := startObservabilityServer(metrics)
	if err != nil {
		return err
	}

	log.Printf("checkout server listening on %s", httpCfg.Addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		metrics.MarkShutdown(metrics.Snapshot().InFlight)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
		if obsSrv != nil {
			obsCtx, obsCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer obsCancel()
			_ = obsSrv.Shutdown(obsCtx)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func startObservabilityServer(metrics *observability.Metrics) (*http.Server, error) {
	cfg, err := config.LoadObservability()
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/varz", observability.Handler(metrics))
	mux.Handle("/metrics", observability.PrometheusHandler())

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("observability server error: %v", err)
		}
	}()

	return srv, nil
}
