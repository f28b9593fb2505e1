package saga

import (
	"context"
	"errors"
	"testing"
)

func TestCombineObservers_FansOutToAll(t *testing.T) {
	first := &countingObserver{}
	second := &countingObserver{}

	combined := CombineObservers(first, nil, second)
	combined.StepStarted(context.Background(), "a")
	combined.StepFailed(context.Background(), "a", errors.New("fail"))

	for i, obs := range []*countingObserver{first, second} {
		if len(obs.started) != 1 || len(obs.failed) != 1 {
			t.Fatalf("observer %d missed events: started=%v failed=%v", i, obs.started, obs.failed)
		}
	}
}

func TestCombineObservers_Empty(t *testing.T) {
	if CombineObservers() != nil {
		t.Fatalf("expected nil for no observers")
	}
	if CombineObservers(nil, nil) != nil {
		t.Fatalf("expected nil for all-nil observers")
	}

	single := &countingObserver{}
	if got := CombineObservers(single); got != Observer(single) {
		t.Fatalf("expected the single observer back, got %T", got)
	}
}
