package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mwhite-dev/threadflow/graph/emit"
	"github.com/mwhite-dev/threadflow/graph/store"
)

// Status reports how a turn ended.
type Status string

const (
	// StatusCompleted means control reached End; the thread is terminal
	// until a new initial invocation restarts it.
	StatusCompleted Status = "completed"
	// StatusPaused means a handler interrupted awaiting external input;
	// the thread resumes via a Command.
	StatusPaused Status = "paused"
)

// TurnResult is the outcome of one Invoke call.
type TurnResult[S any] struct {
	Status Status
	// State is the state as of the last checkpoint written this turn.
	State S
	// Interrupt is set when Status is StatusPaused and describes the
	// awaited input.
	Interrupt *store.PendingInterrupt
	// Seq is the sequence number of the last checkpoint written this turn.
	Seq int
}

// Engine drives turns of a compiled graph against a checkpoint store.
//
// One Engine serves any number of threads concurrently; invocations on
// distinct threads never block each other. Within a thread, turns are strictly
// sequential: a second Invoke while one is in flight fails with ErrThreadBusy,
// and the store's sequence fencing backstops that guarantee across processes.
type Engine[S any] struct {
	graph *Graph[S]
	store store.Store[S]
	opts  Options

	// locks holds one advisory *sync.Mutex per thread id seen by this
	// process. Entries are never removed; thread cardinality is bounded
	// by the callers this process serves.
	locks sync.Map
}

// New creates an engine for the given compiled graph and checkpoint store.
func New[S any](g *Graph[S], st store.Store[S], opts ...Option) *Engine[S] {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.emitter == nil {
		options.emitter = emit.NewNullEmitter()
	}
	return &Engine[S]{graph: g, store: st, opts: options}
}

// History returns every checkpoint of the thread in ascending sequence order.
func (e *Engine[S]) History(ctx context.Context, threadID string) ([]store.Checkpoint[S], error) {
	return e.store.History(ctx, threadID)
}

// Invoke executes one turn on the given thread.
//
// Exactly one of initial and cmd must be non-nil: initial starts a fresh turn
// from the entry node, cmd resumes a paused thread by re-executing the
// interrupted node with the resume value available to its Interrupt call.
//
// The turn runs node by node, appending a checkpoint after every completed
// handler, until control reaches End (StatusCompleted) or a handler
// interrupts (StatusPaused). On handler failure no checkpoint is written and
// the thread stays at its prior checkpoint; the next fresh invocation retries
// from that checkpoint's node rather than restarting at the entry.
func (e *Engine[S]) Invoke(ctx context.Context, threadID string, initial *S, cmd *Command) (TurnResult[S], error) {
	var zero TurnResult[S]
	if threadID == "" {
		return zero, fmt.Errorf("%w: thread id cannot be empty", ErrInvalidInvocation)
	}
	if (initial == nil) == (cmd == nil) {
		return zero, ErrInvalidInvocation
	}

	mu := e.lockFor(threadID)
	if !mu.TryLock() {
		return zero, fmt.Errorf("%w: an invocation is already in flight for thread %s", ErrThreadBusy, threadID)
	}
	defer mu.Unlock()

	result, err := e.runTurn(ctx, threadID, initial, cmd)
	switch {
	case err != nil:
		e.opts.metrics.RecordTurn("error")
	case result.Status == StatusPaused:
		e.opts.metrics.RecordTurn("paused")
	default:
		e.opts.metrics.RecordTurn("completed")
	}
	return result, err
}

func (e *Engine[S]) runTurn(ctx context.Context, threadID string, initial *S, cmd *Command) (TurnResult[S], error) {
	var zero TurnResult[S]

	latest, err := e.store.Latest(ctx, threadID)
	haveLatest := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return zero, fmt.Errorf("failed to load latest checkpoint for thread %s: %w", threadID, err)
	}

	var (
		state   S
		current string
		nextSeq int
	)
	scope := &turnScope{}

	if initial != nil {
		switch {
		case haveLatest && latest.Paused():
			return zero, fmt.Errorf("%w: thread %s is paused awaiting resume", ErrThreadBusy, threadID)
		case haveLatest && latest.NextNode != End:
			// A prior turn failed mid-graph without pausing. The last
			// checkpoint is still the durable truth, so a retry picks
			// up from there; the supplied initial state is superseded
			// by the checkpointed state.
			state, err = deepCopy(latest.State)
			if err != nil {
				return zero, fmt.Errorf("failed to copy checkpointed state: %w", err)
			}
			current = latest.NextNode
			nextSeq = latest.Seq + 1
		default:
			if haveLatest {
				nextSeq = latest.Seq + 1
			}
			state, err = deepCopy(*initial)
			if err != nil {
				return zero, fmt.Errorf("failed to copy initial state: %w", err)
			}
			current = e.graph.entry
		}
	} else {
		if !haveLatest || !latest.Paused() {
			return zero, fmt.Errorf("%w: thread %s", ErrNothingToResume, threadID)
		}
		state, err = deepCopy(latest.State)
		if err != nil {
			return zero, fmt.Errorf("failed to copy checkpointed state: %w", err)
		}
		current = latest.Interrupt.NodeID
		nextSeq = latest.Seq + 1
		scope.resume = cmd.Resume
		scope.hasResume = true
	}

	e.emit(emit.Event{ThreadID: threadID, Seq: -1, NodeID: current, Msg: "turn_started"})

	steps := 0
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		steps++
		if e.opts.MaxSteps > 0 && steps > e.opts.MaxSteps {
			return zero, fmt.Errorf("%w: %d steps on thread %s", ErrMaxStepsExceeded, e.opts.MaxSteps, threadID)
		}

		handler, ok := e.graph.handler(current)
		if !ok {
			return zero, &ValidationError{Message: fmt.Sprintf("node %s not declared", current)}
		}

		in, err := deepCopy(state)
		if err != nil {
			return zero, &NodeError{NodeID: current, Err: err}
		}

		start := time.Now()
		out, err := runHandler(withTurnScope(ctx, scope), handler, in, e.opts.NodeTimeout)
		elapsed := time.Since(start)

		if err != nil {
			var pause *InterruptError
			if errors.As(err, &pause) {
				// Checkpoint the state the handler returned with the
				// interrupt, not the pre-handler state: a handler that
				// already consumed a resume value must find its
				// recorded decision when it re-executes.
				paused, cerr := deepCopy(out)
				if cerr != nil {
					return zero, &NodeError{NodeID: current, Err: cerr}
				}
				return e.pause(ctx, threadID, current, nextSeq, paused, pause, elapsed)
			}
			if errors.Is(err, context.Canceled) {
				return zero, err
			}
			status := "error"
			nodeErr := &NodeError{NodeID: current, Err: err}
			if errors.Is(err, context.DeadlineExceeded) {
				status = "timeout"
				nodeErr.Timeout = true
			}
			e.opts.metrics.RecordNodeLatency(current, elapsed, status)
			e.emit(emit.Event{ThreadID: threadID, Seq: nextSeq, NodeID: current, Msg: "node_failed", Meta: map[string]any{
				"error":       err.Error(),
				"duration_ms": elapsed.Milliseconds(),
			}})
			return zero, nodeErr
		}

		// Copy out as well as in: a handler retaining its returned state
		// must not be able to mutate checkpointed snapshots.
		state, err = deepCopy(out)
		if err != nil {
			return zero, &NodeError{NodeID: current, Err: err}
		}
		next, err := e.graph.next(current, state)
		if err != nil {
			return zero, err
		}

		cp := store.Checkpoint[S]{
			ThreadID:  threadID,
			Seq:       nextSeq,
			State:     state,
			NextNode:  next,
			CreatedAt: time.Now().UTC(),
		}
		if err := e.append(ctx, cp); err != nil {
			return zero, err
		}

		e.opts.metrics.RecordNodeLatency(current, elapsed, "success")
		e.emit(emit.Event{ThreadID: threadID, Seq: cp.Seq, NodeID: current, Msg: "node_completed", Meta: map[string]any{
			"duration_ms": elapsed.Milliseconds(),
		}})

		nextSeq++
		if next == End {
			e.emit(emit.Event{ThreadID: threadID, Seq: cp.Seq, NodeID: current, Msg: "turn_completed"})
			return TurnResult[S]{Status: StatusCompleted, State: state, Seq: cp.Seq}, nil
		}
		current = next
	}
}

// pause writes the paused checkpoint. The checkpointed state is the state the
// interrupting handler returned alongside the interrupt, so decisions it had
// already recorded survive; the handler re-executes in full on resume.
func (e *Engine[S]) pause(ctx context.Context, threadID, nodeID string, seq int, state S, pause *InterruptError, elapsed time.Duration) (TurnResult[S], error) {
	var zero TurnResult[S]

	marker := &store.PendingInterrupt{NodeID: nodeID, Payload: pause.Payload}
	cp := store.Checkpoint[S]{
		ThreadID:  threadID,
		Seq:       seq,
		State:     state,
		NextNode:  nodeID,
		Interrupt: marker,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.append(ctx, cp); err != nil {
		return zero, err
	}

	e.opts.metrics.RecordNodeLatency(nodeID, elapsed, "interrupt")
	e.opts.metrics.RecordInterrupt(nodeID)
	e.emit(emit.Event{ThreadID: threadID, Seq: cp.Seq, NodeID: nodeID, Msg: "turn_paused", Meta: map[string]any{
		"payload": pause.Payload,
	}})

	return TurnResult[S]{Status: StatusPaused, State: state, Interrupt: marker, Seq: cp.Seq}, nil
}

func (e *Engine[S]) append(ctx context.Context, cp store.Checkpoint[S]) error {
	start := time.Now()
	err := e.store.Append(ctx, cp)
	e.opts.metrics.RecordAppendLatency(time.Since(start))
	if errors.Is(err, store.ErrSequenceConflict) {
		return fmt.Errorf("%w: checkpoint sequence conflict on thread %s at seq %d", ErrThreadBusy, cp.ThreadID, cp.Seq)
	}
	if err != nil {
		return fmt.Errorf("failed to append checkpoint %d for thread %s: %w", cp.Seq, cp.ThreadID, err)
	}
	return nil
}

func (e *Engine[S]) emit(event emit.Event) {
	e.opts.emitter.Emit(event)
}

func (e *Engine[S]) lockFor(threadID string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(threadID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
