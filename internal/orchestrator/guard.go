package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutError is returned by Guard when the budget elapses first.
type TimeoutError struct {
	Label  string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Label, e.Budget)
}

// Timeout lets net-style callers detect the error without importing this
// package.
func (e *TimeoutError) Timeout() bool { return true }

// Guard runs op under budget. When the budget elapses before op settles,
// Guard returns a *TimeoutError at once and does not wait for op. The
// context handed to op is cancelled at that point, but op may keep running;
// its eventual result is discarded and none of its side effects are undone.
// Cancellation of ctx itself is returned as ctx.Err().
func Guard[T any](ctx context.Context, budget time.Duration, label string, op func(context.Context) (T, error)) (T, error) {
	gctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return guardWithin(ctx, gctx, budget, label, op)
}

// guardWithin is Guard with a deadline context supplied by the caller, so
// that several ops can share one budget.
func guardWithin[T any](parent, gctx context.Context, budget time.Duration, label string, op func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%s panicked: %v", label, r)}
			}
		}()
		v, err := op(gctx)
		done <- outcome{val: v, err: err}
	}()

	var zero T
	select {
	case out := <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) && parent.Err() == nil && gctx.Err() != nil {
			return zero, &TimeoutError{Label: label, Budget: budget}
		}
		return out.val, out.err
	case <-gctx.Done():
		if err := parent.Err(); err != nil {
			return zero, err
		}
		return zero, &TimeoutError{Label: label, Budget: budget}
	}
}
