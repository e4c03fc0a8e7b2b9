package graph

import "context"

// Handler is the unit of work attached to a node. It receives a private copy
// of the workflow state, transforms it, and returns the new state.
//
// A handler may call Interrupt to pause the turn and surface a payload to the
// caller. Because the engine re-invokes the whole handler on resume (it never
// resumes mid-function), everything a handler does before its interrupt point
// must be idempotent: guard side effects and repeated interrupts by checking
// state fields that were already written, e.g. skip Interrupt entirely once a
// decision field is set.
//
// Type parameter S is the state type shared across the workflow.
type Handler[S any] func(ctx context.Context, state S) (S, error)

// Router chooses the next hop after a node by returning a label. The label is
// resolved against the mapping declared with AddConditionalEdge; returning a
// label absent from the mapping fails the turn with UnroutableLabelError.
//
// Routers must be pure: deterministic, no side effects, no state mutation.
type Router[S any] func(state S) string
