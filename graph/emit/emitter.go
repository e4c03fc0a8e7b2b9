// Package emit defines the observability event model and emitter backends.
package emit

// Emitter receives observability events from turn execution.
//
// Implementations should be non-blocking, thread-safe, and resilient: a slow
// or failing backend must not stall or crash the workflow. Emit must not
// panic; internal errors should be swallowed or logged by the emitter itself.
type Emitter interface {
	Emit(event Event)
}
