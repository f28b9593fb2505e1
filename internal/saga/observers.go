package saga

import "context"

// CombineObservers fans lifecycle events out to each observer in order. Nil
// entries are skipped; with no non-nil entries it returns nil.
func CombineObservers(observers ...Observer) Observer {
	var combined multiObserver
	for _, o := range observers {
		if o != nil {
			combined = append(combined, o)
		}
	}
	if len(combined) == 0 {
		return nil
	}
	if len(combined) == 1 {
		return combined[0]
	}
	return combined
}

type multiObserver []Observer

func (m multiObserver) StepStarted(ctx context.Context, step string) {
	for _, o := range m {
		o.StepStarted(ctx, step)
	}
}

func (m multiObserver) StepSucceeded(ctx context.Context, step string) {
	for _, o := range m {
		o.StepSucceeded(ctx, step)
	}
}

func (m multiObserver) StepFailed(ctx context.Context, step string, err error) {
	for _, o := range m {
		o.StepFailed(ctx, step, err)
	}
}

func (m multiObserver) StepCompensated(ctx context.Context, step string) {
	for _, o := range m {
		o.StepCompensated(ctx, step)
	}
}

func (m multiObserver) CompensationFailed(ctx context.Context, step string, err error) {
	for _, o := range m {
		o.CompensationFailed(ctx, step, err)
	}
}
