package events

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// CompensationAlert is the wire form of a failed rollback pushed to operator
// stream watchers. These are the events that need a human: the saga could not
// undo a completed step.
type CompensationAlert struct {
	Type      string    `json:"type"`
	Step      string    `json:"step"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

const compensationAlertType = "checkout.compensation_failed"

// CompensationAlerter is a saga observer that broadcasts compensation
// failures to a Hub's watchers. All other lifecycle events are ignored.
type CompensationAlerter struct {
	hub *Hub
	// logf and now are injectable for tests.
	logf func(format string, args ...any)
	now  func() time.Time
}

// NewCompensationAlerter constructs an alerter over hub.
func NewCompensationAlerter(hub *Hub) *CompensationAlerter {
	return &CompensationAlerter{hub: hub, logf: log.Printf, now: time.Now}
}

func (a *CompensationAlerter) StepStarted(context.Context, string)       {}
func (a *CompensationAlerter) StepSucceeded(context.Context, string)     {}
func (a *CompensationAlerter) StepFailed(context.Context, string, error) {}
func (a *CompensationAlerter) StepCompensated(context.Context, string)   {}

func (a *CompensationAlerter) CompensationFailed(ctx context.Context, step string, err error) {
	data, marshalErr := json.Marshal(CompensationAlert{
		Type:      compensationAlertType,
		Step:      step,
		Error:     err.Error(),
		Timestamp: a.now().UTC(),
	})
	if marshalErr != nil {
		a.logf("encode compensation alert for step %s: %v", step, marshalErr)
		return
	}
	select {
	case a.hub.Broadcast <- data:
	case <-a.hub.Done():
		a.logf("event hub stopped, dropping compensation alert for step %s", step)
	case <-ctx.Done():
		a.logf("context done, dropping compensation alert for step %s", step)
	}
}
