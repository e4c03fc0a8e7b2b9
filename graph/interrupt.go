package graph

import (
	"context"
	"fmt"
)

// Command carries the value supplied by a caller resuming a paused thread.
// The value is delivered to the first Interrupt call of the re-executed
// handler and must assert to that call's type parameter.
type Command struct {
	Resume any
}

// InterruptError is the control-flow signal a handler propagates out of
// Interrupt to pause the turn. Handlers must return it unchanged alongside
// their current state (`return s, err`): the engine checkpoints that state,
// so decisions recorded before the interrupt survive the pause. Wrapping the
// error with fmt.Errorf("...: %w", err) is fine, swallowing it is not.
type InterruptError struct {
	// Payload is surfaced to the caller so it knows what input is awaited.
	// It must be JSON-serializable: it is persisted inside the paused
	// checkpoint.
	Payload any
}

func (e *InterruptError) Error() string {
	return "node execution interrupted awaiting external input"
}

// turnScope carries per-turn interrupt bookkeeping between the engine and the
// Interrupt function. One scope exists per Invoke call; the handler goroutine
// is the only writer while a handler runs, and the engine reads it only after
// the handler has finished.
type turnScope struct {
	resume    any
	hasResume bool
}

type turnScopeKey struct{}

func withTurnScope(ctx context.Context, scope *turnScope) context.Context {
	return context.WithValue(ctx, turnScopeKey{}, scope)
}

// Interrupt pauses the current turn to await external input.
//
// On the first execution (no resume value pending in this turn) it returns an
// InterruptError that the handler must propagate; the engine then writes a
// paused checkpoint and reports the payload to the caller. When the thread is
// resumed, the handler re-executes from the top and the Interrupt call
// returns the caller-supplied value instead.
//
// The resume value is consumed exactly once per turn. A handler that
// interrupts again after consuming it pauses the turn a second time; this is
// how multi-step approvals chain.
func Interrupt[T any](ctx context.Context, payload any) (T, error) {
	var zero T
	scope, ok := ctx.Value(turnScopeKey{}).(*turnScope)
	if !ok {
		return zero, fmt.Errorf("interrupt called outside engine-managed node execution")
	}
	if scope.hasResume {
		scope.hasResume = false
		value, ok := scope.resume.(T)
		if !ok {
			return zero, fmt.Errorf("resume value of type %T cannot be delivered as %T", scope.resume, zero)
		}
		return value, nil
	}
	return zero, &InterruptError{Payload: payload}
}
