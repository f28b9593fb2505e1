package checkout

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tradewind/internal/saga"
)

// ErrCheckoutInProgress is returned when a checkout is already running for
// the session. The caller should retry after the in-flight call completes.
var ErrCheckoutInProgress = errors.New("checkout already in progress for this session")

// ErrEmptyCart is the sentinel for a checkout that found nothing to process:
// the cart was missing, empty, or unreachable. No mutating collaborator call
// has been made when it is returned.
var ErrEmptyCart = errors.New("cart is empty")

// ItemOutcome is the per-item result of a checkout call. Success populates
// the purchase fields; failure populates FailedStep and Reason.
type ItemOutcome struct {
	ProductID     int     `json:"product_id"`
	Quantity      int     `json:"quantity"`
	Success       bool    `json:"success"`
	ProductName   string  `json:"product_name,omitempty"`
	OrderID       string  `json:"order_id,omitempty"`
	TransactionID string  `json:"transaction_id,omitempty"`
	TotalPaid     float64 `json:"total_paid,omitempty"`
	FailedStep    string  `json:"failed_step,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

// AuditStore persists checkout attempts and their step transitions. Recording
// failures are logged and never fail the attempt itself.
type AuditStore interface {
	Begin(ctx context.Context, attemptID, sessionID string, productID, quantity int) error
	AddStep(ctx context.Context, attemptID, step, status, detail string) error
	Finish(ctx context.Context, attemptID, status string) error
}

// OutcomePublisher pushes per-item outcomes to interested observers (the
// operator event stream). Publishing is best effort.
type OutcomePublisher interface {
	Publish(ctx context.Context, sessionID string, outcome ItemOutcome) error
}

// CoordinatorConfig wires a Coordinator. Clients is required; everything else
// has a working default.
type CoordinatorConfig struct {
	Clients   Clients
	Locks     SessionLocker    // default NewMemoryLocker
	Refunds   RefundRecorder   // default LogRefundRecorder
	Audit     AuditStore       // optional
	Publisher OutcomePublisher // optional
	Observer  saga.Observer    // optional, e.g. metrics
	Logf      func(format string, args ...any)

	// Concurrency > 1 runs per-item sagas concurrently with that limit.
	// Items never share saga state, so this only trades latency for load on
	// the collaborators.
	Concurrency int

	// AttemptID generates audit attempt ids; injectable for tests.
	AttemptID func() string
}

// Coordinator owns per-session mutual exclusion and runs one independent
// saga per cart item, aggregating the outcomes.
type Coordinator struct {
	clients     Clients
	locks       SessionLocker
	audit       AuditStore
	publisher   OutcomePublisher
	observer    saga.Observer
	logf        func(format string, args ...any)
	concurrency int
	attemptID   func() string
	def         *saga.Definition
}

// NewCoordinator constructs a Coordinator from the config.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if err := cfg.Clients.Validate(); err != nil {
		return nil, err
	}
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	locks := cfg.Locks
	if locks == nil {
		locks = NewMemoryLocker()
	}
	refunds := cfg.Refunds
	if refunds == nil {
		refunds = &LogRefundRecorder{Logf: logf}
	}
	attemptID := cfg.AttemptID
	if attemptID == nil {
		attemptID = uuid.NewString
	}

	return &Coordinator{
		clients:     cfg.Clients,
		locks:       locks,
		audit:       cfg.Audit,
		publisher:   cfg.Publisher,
		observer:    cfg.Observer,
		logf:        logf,
		concurrency: cfg.Concurrency,
		attemptID:   attemptID,
		def:         newCheckoutSaga(cfg.Clients, refunds, logf),
	}, nil
}

// Checkout purchases every item currently in the session's cart, one
// isolated saga per item. It returns the ordered per-item outcomes; item
// failures are reported in the outcomes, never as the call's error. The
// error is ErrCheckoutInProgress when the session is already mid-checkout
// and ErrEmptyCart when there is nothing to process.
func (c *Coordinator) Checkout(ctx context.Context, sessionID string) ([]ItemOutcome, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}

	acquired, err := c.locks.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrCheckoutInProgress
	}
	// The lock is released on every exit path, on a context detached from
	// the caller so cancellation cannot leak it.
	defer func() {
		if err := c.locks.Release(context.WithoutCancel(ctx), sessionID); err != nil {
			c.logf("release checkout lock for session %s: %v", sessionID, err)
		}
	}()

	cart, err := c.clients.Cart.GetCart(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrCartNotFound) {
			c.logf("fetch cart for session %s: %v", sessionID, err)
		}
		return nil, ErrEmptyCart
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	// An in-flight saga must run to completion, including its rollback, even
	// if the caller disconnects: abandoning it mid-step would leave stock,
	// order, or cart state inconsistent. Each collaborator call still
	// carries its own timeout, so the detached run stays bounded.
	runCtx := context.WithoutCancel(ctx)

	outcomes := make([]ItemOutcome, len(cart.Items))
	if c.concurrency > 1 {
		var group errgroup.Group
		group.SetLimit(c.concurrency)
		for i, item := range cart.Items {
			group.Go(func() error {
				outcomes[i] = c.processItem(runCtx, sessionID, item)
				return nil
			})
		}
		_ = group.Wait()
	} else {
		for i, item := range cart.Items {
			outcomes[i] = c.processItem(runCtx, sessionID, item)
		}
	}

	return outcomes, nil
}

// processItem runs one item's saga and converts the result into an outcome.
func (c *Coordinator) processItem(ctx context.Context, sessionID string, item CartItem) ItemOutcome {
	attemptID := c.attemptID()
	run := saga.NewContext()
	run.Set(ctxSessionID, sessionID)
	run.Set(ctxProductID, item.ProductID)
	run.Set(ctxQuantity, item.Quantity)

	var observers []saga.Observer
	if c.observer != nil {
		observers = append(observers, c.observer)
	}
	if c.audit != nil {
		if err := c.audit.Begin(ctx, attemptID, sessionID, item.ProductID, item.Quantity); err != nil {
			c.logf("audit begin attempt %s: %v", attemptID, err)
		}
		observers = append(observers, &auditObserver{store: c.audit, attemptID: attemptID, logf: c.logf})
	}

	exec := &saga.Executor{Logf: c.logf, Observer: saga.CombineObservers(observers...)}
	err := exec.Execute(ctx, c.def, run)

	outcome := ItemOutcome{ProductID: item.ProductID, Quantity: item.Quantity}
	if err != nil {
		var stepErr *saga.StepError
		if errors.As(err, &stepErr) {
			outcome.FailedStep = stepErr.Step
			outcome.Reason = failureReason(stepErr.Err)
		} else {
			outcome.Reason = failureReason(err)
		}
		c.finishAudit(ctx, attemptID, "failed")
	} else {
		outcome.Success = true
		outcome.ProductName = run.String(ctxProductName)
		outcome.OrderID = run.String(ctxOrderID)
		outcome.TransactionID = run.String(ctxTransactionID)
		outcome.TotalPaid = run.Float(ctxTotalPrice)
		c.finishAudit(ctx, attemptID, "succeeded")
	}

	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, sessionID, outcome); err != nil {
			c.logf("publish outcome for session %s product %d: %v", sessionID, item.ProductID, err)
		}
	}
	return outcome
}

func (c *Coordinator) finishAudit(ctx context.Context, attemptID, status string) {
	if c.audit == nil {
		return
	}
	if err := c.audit.Finish(ctx, attemptID, status); err != nil {
		c.logf("audit finish attempt %s: %v", attemptID, err)
	}
}

// failureReason converts a step's underlying error into the caller-facing
// reason, preserving collaborator rejections verbatim.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient stock"
	case errors.Is(err, ErrProductNotFound):
		return "product not found"
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrCartNotFound):
		return "item already processed or removed"
	case errors.Is(err, context.DeadlineExceeded):
		return "collaborator timed out"
	case err == nil:
		return ""
	default:
		return err.Error()
	}
}

// auditObserver records step transitions for one attempt.
type auditObserver struct {
	store     AuditStore
	attemptID string
	logf      func(format string, args ...any)
}

func (o *auditObserver) StepStarted(ctx context.Context, step string) {
	o.record(ctx, step, "started", "")
}

func (o *auditObserver) StepSucceeded(ctx context.Context, step string) {
	o.record(ctx, step, "succeeded", "")
}

func (o *auditObserver) StepFailed(ctx context.Context, step string, err error) {
	o.record(ctx, step, "failed", err.Error())
}

func (o *auditObserver) StepCompensated(ctx context.Context, step string) {
	o.record(ctx, step, "compensated", "")
}

func (o *auditObserver) CompensationFailed(ctx context.Context, step string, err error) {
	o.record(ctx, step, "compensation_failed", err.Error())
}

func (o *auditObserver) record(ctx context.Context, step, status, detail string) {
	if err := o.store.AddStep(ctx, o.attemptID, step, status, detail); err != nil {
		o.logf("audit step %s/%s for attempt %s: %v", step, status, o.attemptID, err)
	}
}
