package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"tradewind/internal/checkout"
)

// OutcomeEvent is the wire form of a per-item checkout result pushed to
// operator stream watchers.
type OutcomeEvent struct {
	Type      string               `json:"type"`
	SessionID string               `json:"session_id"`
	Timestamp time.Time            `json:"timestamp"`
	Outcome   checkout.ItemOutcome `json:"outcome"`
}

const outcomeEventType = "checkout.item_outcome"

// HubPublisher broadcasts checkout outcomes to a Hub's watchers.
type HubPublisher struct {
	hub *Hub
	// now is injectable for tests.
	now func() time.Time
}

// NewHubPublisher constructs a HubPublisher over hub.
func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub, now: time.Now}
}

// Publish encodes the outcome and hands it to the hub. It blocks until the
// hub accepts the message or ctx expires; a slow hub never loses events
// silently.
func (p *HubPublisher) Publish(ctx context.Context, sessionID string, outcome checkout.ItemOutcome) error {
	data, err := json.Marshal(OutcomeEvent{
		Type:      outcomeEventType,
		SessionID: sessionID,
		Timestamp: p.now().UTC(),
		Outcome:   outcome,
	})
	if err != nil {
		return err
	}
	select {
	case p.hub.Broadcast <- data:
		return nil
	case <-p.hub.Done():
		return errors.New("event hub stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FanoutPublisher publishes each outcome to every publisher in order,
// returning the first error after all have been tried.
type FanoutPublisher struct {
	publishers []checkout.OutcomePublisher
}

// NewFanoutPublisher constructs a FanoutPublisher.
func NewFanoutPublisher(publishers ...checkout.OutcomePublisher) *FanoutPublisher {
	return &FanoutPublisher{publishers: publishers}
}

func (f *FanoutPublisher) Publish(ctx context.Context, sessionID string, outcome checkout.ItemOutcome) error {
	var firstErr error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, sessionID, outcome); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
