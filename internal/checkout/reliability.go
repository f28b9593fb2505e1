package checkout

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrCircuitOpen indicates the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// RetryPolicy controls retry behavior for outbound collaborator calls. It is
// only applied to idempotent calls: reads and compensating restores.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      func(time.Duration) time.Duration
	Sleep       func(context.Context, time.Duration) error
	ShouldRetry func(error) bool
}

// Do executes fn with retries according to the policy.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = defaultShouldRetry
	}
	jitter := p.Jitter
	if jitter == nil {
		jitter = defaultJitter
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if err == nil {
			return nil
		}
		if attempt == attempts || !shouldRetry(err) {
			return err
		}

		delay := p.BaseDelay
		if delay > 0 {
			delay = delay << (attempt - 1)
		}
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
		delay = jitter(delay)
		if delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return nil
}

// defaultShouldRetry skips retries for cancellation, open circuits, and
// collaborator business rejections: a rejected claim or an out-of-stock
// product will not become valid by asking again.
func defaultShouldRetry(err error) bool {
	return !errors.Is(err, context.Canceled) &&
		!errors.Is(err, ErrCircuitOpen) &&
		!errors.Is(err, ErrInsufficientStock) &&
		!errors.Is(err, ErrProductNotFound) &&
		!errors.Is(err, ErrItemNotFound) &&
		!errors.Is(err, ErrCartNotFound) &&
		!errors.Is(err, ErrOrderNotFound)
}

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	MaxFailures  int
	ResetTimeout time.Duration
	Now          func() time.Time
}

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

// CircuitBreaker stops calls to a collaborator after repeated failures.
type CircuitBreaker struct {
	mu         sync.Mutex
	maxFails   int
	resetAfter time.Duration
	now        func() time.Time

	state          circuitState
	failures       int
	openedAt       time.Time
	halfOpenFlight bool
}

// NewCircuitBreaker constructs a circuit breaker with sane defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	maxFails := cfg.MaxFailures
	if maxFails < 1 {
		maxFails = 1
	}
	resetAfter := cfg.ResetTimeout
	if resetAfter <= 0 {
		resetAfter = 2 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &CircuitBreaker{
		maxFails:   maxFails,
		resetAfter: resetAfter,
		now:        now,
		state:      circuitClosed,
	}
}

// Execute runs fn while enforcing breaker state. While open it fails fast
// with ErrCircuitOpen; after the reset timeout a single probe call is let
// through.
func (c *CircuitBreaker) Execute(fn func() error) error {
	if c == nil {
		return fn()
	}

	now := c.now()

	c.mu.Lock()
	switch c.state {
	case circuitOpen:
		if now.Sub(c.openedAt) < c.resetAfter {
			c.mu.Unlock()
			return ErrCircuitOpen
		}
		c.state = circuitHalfOpen
	case circuitHalfOpen:
		if c.halfOpenFlight {
			c.mu.Unlock()
			return ErrCircuitOpen
		}
	}
	if c.state == circuitHalfOpen {
		c.halfOpenFlight = true
	}
	c.mu.Unlock()

	err := fn()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == circuitHalfOpen {
		c.halfOpenFlight = false
	}

	if err == nil {
		c.state = circuitClosed
		c.failures = 0
		return nil
	}

	if c.state == circuitHalfOpen {
		c.state = circuitOpen
		c.openedAt = now
		c.failures = 0
		return err
	}

	c.failures++
	if c.failures >= c.maxFails {
		c.state = circuitOpen
		c.openedAt = now
	}
	return err
}

// RateLimiter is a token-bucket limiter refilling one token every rate.
type RateLimiter struct {
	mu    sync.Mutex
	rate  time.Duration
	burst int
	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	tokens int
	last   time.Time
}

// NewRateLimiter constructs a limiter. A zero rate or burst disables it.
func NewRateLimiter(rate time.Duration, burst int) *RateLimiter {
	limiter := &RateLimiter{
		rate:  rate,
		burst: burst,
		now:   time.Now,
		sleep: sleepWithContext,
	}
	limiter.tokens = burst
	limiter.last = limiter.now()
	return limiter
}

// Wait blocks until a token is available or the context ends.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil || r.rate <= 0 || r.burst <= 0 {
		if ctx == nil {
			return nil
		}
		return ctx.Err()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.mu.Lock()
		now := r.now()
		r.refill(now)
		if r.tokens > 0 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		wait := r.rate - now.Sub(r.last)
		r.mu.Unlock()
		if wait <= 0 {
			continue
		}
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (r *RateLimiter) refill(now time.Time) {
	if r.rate <= 0 {
		r.tokens = r.burst
		r.last = now
		return
	}
	elapsed := now.Sub(r.last)
	if elapsed < r.rate {
		return
	}
	add := int(elapsed / r.rate)
	if add <= 0 {
		return
	}
	r.tokens += add
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
	r.last = r.last.Add(time.Duration(add) * r.rate)
}

// ReliableInventoryStore wraps an InventoryStore with reliability controls.
// Reads and restores are retried; ReduceStock gets a single attempt because a
// retried decrement after an ambiguous timeout could double-decrement.
type ReliableInventoryStore struct {
	base    InventoryStore
	limiter *RateLimiter
	breaker *CircuitBreaker
	retry   RetryPolicy
}

// NewReliableInventoryStore constructs a reliability-wrapped inventory store.
func NewReliableInventoryStore(base InventoryStore, limiter *RateLimiter, breaker *CircuitBreaker, retry RetryPolicy) *ReliableInventoryStore {
	return &ReliableInventoryStore{
		base:    base,
		limiter: limiter,
		breaker: breaker,
		retry:   retry,
	}
}

func (s *ReliableInventoryStore) GetProduct(ctx context.Context, productID int) (Product, error) {
	var product Product
	err := s.retry.Do(ctx, func() error {
		return s.attempt(ctx, func() error {
			var err error
			product, err = s.base.GetProduct(ctx, productID)
			return err
		})
	})
	return product, err
}

func (s *ReliableInventoryStore) ReduceStock(ctx context.Context, productID, quantity int) error {
	return s.attempt(ctx, func() error {
		return s.base.ReduceStock(ctx, productID, quantity)
	})
}

func (s *ReliableInventoryStore) RestoreStock(ctx context.Context, productID, quantity int) error {
	return s.retry.Do(ctx, func() error {
		return s.attempt(ctx, func() error {
			return s.base.RestoreStock(ctx, productID, quantity)
		})
	})
}

func (s *ReliableInventoryStore) attempt(ctx context.Context, fn func() error) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if s.breaker != nil {
		return s.breaker.Execute(fn)
	}
	return fn()
}

// ReliablePaymentGateway wraps a PaymentGateway with a limiter and breaker.
// Charge is never retried: an ambiguous failure after a retried charge could
// bill the customer twice.
type ReliablePaymentGateway struct {
	base    PaymentGateway
	limiter *RateLimiter
	breaker *CircuitBreaker
}

// NewReliablePaymentGateway constructs a reliability-wrapped payment gateway.
func NewReliablePaymentGateway(base PaymentGateway, limiter *RateLimiter, breaker *CircuitBreaker) *ReliablePaymentGateway {
	return &ReliablePaymentGateway{
		base:    base,
		limiter: limiter,
		breaker: breaker,
	}
}

func (g *ReliablePaymentGateway) Charge(ctx context.Context, orderID string, amount float64) (Charge, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return Charge{}, err
		}
	}
	var charge Charge
	call := func() error {
		var err error
		charge, err = g.base.Charge(ctx, orderID, amount)
		return err
	}
	var err error
	if g.breaker != nil {
		err = g.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		return Charge{}, err
	}
	return charge, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func defaultJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}
