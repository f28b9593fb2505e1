// Package saga provides a generic executor for multi-step compensable
// workflows: an ordered list of steps runs against a shared context, and when
// a step fails, the compensations of the already-completed steps run in
// reverse order on a best-effort basis.
package saga

import (
	"context"
	"fmt"
	"log"
)

// ActionFunc performs a step's forward effect against the run context.
type ActionFunc func(ctx context.Context, run *Context) error

// CompensationFunc semantically undoes a completed step's effect. It may be
// imperfect or asynchronous; a nil compensation means there is nothing to undo.
type CompensationFunc func(ctx context.Context, run *Context) error

// Step is one executable unit of a definition. Immutable once added.
type Step struct {
	Name         string
	Action       ActionFunc
	Compensation CompensationFunc
}

// Definition is an ordered sequence of steps. It is stateless and may be
// reused across any number of executions.
type Definition struct {
	steps []Step
}

// NewDefinition constructs an empty definition.
func NewDefinition() *Definition {
	return &Definition{}
}

// Step appends a step and returns the definition for chaining. A nil
// compensation marks the step as read-only for rollback purposes.
func (d *Definition) Step(name string, action ActionFunc, compensation CompensationFunc) *Definition {
	d.steps = append(d.steps, Step{Name: name, Action: action, Compensation: compensation})
	return d
}

// Len reports the number of steps in the definition.
func (d *Definition) Len() int {
	return len(d.steps)
}

// StepError is the failure Execute reports: the original action error tagged
// with the name of the step that failed. Compensation failures are never
// surfaced through it.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Observer receives step lifecycle events during execution. All methods are
// called synchronously from the executing goroutine.
type Observer interface {
	StepStarted(ctx context.Context, step string)
	StepSucceeded(ctx context.Context, step string)
	StepFailed(ctx context.Context, step string, err error)
	StepCompensated(ctx context.Context, step string)
	CompensationFailed(ctx context.Context, step string, err error)
}

// Executor runs definitions. The zero value is usable; Logf defaults to
// log.Printf and a nil Observer disables event reporting.
type Executor struct {
	Logf     func(format string, args ...any)
	Observer Observer
}

// Execute runs each step's action against the run context, in order. On the
// first failing action it stops, rolls back the completed steps in reverse
// order, and returns the original failure as a *StepError. A nil return means
// every step completed.
func (e *Executor) Execute(ctx context.Context, def *Definition, run *Context) error {
	for i, step := range def.steps {
		if e.Observer != nil {
			e.Observer.StepStarted(ctx, step.Name)
		}
		if err := step.Action(ctx, run); err != nil {
			e.logf("saga step %q failed: %v", step.Name, err)
			if e.Observer != nil {
				e.Observer.StepFailed(ctx, step.Name, err)
			}
			e.rollback(ctx, def.steps[:i], run)
			return &StepError{Step: step.Name, Err: err}
		}
		if e.Observer != nil {
			e.Observer.StepSucceeded(ctx, step.Name)
		}
	}
	return nil
}

// rollback runs the compensations of completed, in reverse order. A failing
// compensation is logged at critical severity and must never stop the
// remaining compensations from running.
func (e *Executor) rollback(ctx context.Context, completed []Step, run *Context) {
	if len(completed) == 0 {
		return
	}
	e.logf("saga rollback: unwinding %d completed step(s)", len(completed))
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensation == nil {
			continue
		}
		if err := step.Compensation(ctx, run); err != nil {
			e.logf("CRITICAL: compensation for step %q failed, manual intervention may be required: %v", step.Name, err)
			if e.Observer != nil {
				e.Observer.CompensationFailed(ctx, step.Name, err)
			}
			continue
		}
		e.logf("rolled back step %q", step.Name)
		if e.Observer != nil {
			e.Observer.StepCompensated(ctx, step.Name)
		}
	}
}

func (e *Executor) logf(format string, args ...any) {
	if e.Logf != nil {
		e.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}
