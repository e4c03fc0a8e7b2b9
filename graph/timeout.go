package graph

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// runHandler executes one handler in its own goroutine so a hung handler
// cannot wedge the turn. Panics are recovered and converted to errors; a
// positive timeout bounds the execution via the handler's context.
//
// On timeout the goroutine is abandoned, not killed. Handlers doing long work
// should honor ctx cancellation so they unwind promptly.
func runHandler[S any](ctx context.Context, handler Handler[S], state S, timeout time.Duration) (S, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		state S
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero S
				done <- outcome{state: zero, err: fmt.Errorf("handler panicked: %v\n%s", r, debug.Stack())}
			}
		}()
		out, err := handler(ctx, state)
		done <- outcome{state: out, err: err}
	}()

	select {
	case res := <-done:
		return res.state, res.err
	case <-ctx.Done():
		var zero S
		return zero, ctx.Err()
	}
}
