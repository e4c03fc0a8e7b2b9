// Package store provides durable checkpoint persistence for workflow threads.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a thread has no checkpoints.
var ErrNotFound = errors.New("not found")

// ErrSequenceConflict is returned when Append is called with a sequence number
// that is not strictly greater than the thread's latest checkpoint. It acts as
// a fencing token: two writers racing on the same thread cannot both win.
var ErrSequenceConflict = errors.New("sequence conflict")

// PendingInterrupt marks a checkpoint as paused and identifies the node that
// is awaiting a resume value, along with the payload surfaced to the caller.
type PendingInterrupt struct {
	NodeID  string `json:"node_id"`
	Payload any    `json:"payload,omitempty"`
}

// Checkpoint is an immutable snapshot of a thread's state and position, taken
// after each node completes (or when a node pauses). Checkpoints are append
// only: resuming or re-running a thread always adds a new checkpoint with a
// higher sequence number, never rewrites history.
//
// Type parameter S is the workflow state type; it must round-trip through JSON.
type Checkpoint[S any] struct {
	// ThreadID identifies the execution lineage this checkpoint belongs to.
	ThreadID string `json:"thread_id"`

	// Seq is the checkpoint's position in the thread history.
	// Strictly increasing per thread, starting at 0.
	Seq int `json:"seq"`

	// State is the full workflow state after the checkpointed step.
	State S `json:"state"`

	// NextNode is the node to run when the thread is next advanced.
	NextNode string `json:"next_node"`

	// Interrupt is set when the checkpointed node paused mid-execution.
	// A nil Interrupt means the step completed normally.
	Interrupt *PendingInterrupt `json:"interrupt,omitempty"`

	// CreatedAt records when this checkpoint was written.
	CreatedAt time.Time `json:"created_at"`
}

// Paused reports whether this checkpoint is awaiting a resume value.
func (c Checkpoint[S]) Paused() bool { return c.Interrupt != nil }

// Store persists checkpoint lineages keyed by thread ID.
//
// Implementations must make Append durable before returning and must enforce
// strictly increasing sequence numbers per thread, returning
// ErrSequenceConflict on violation. History must return the same sequence on
// repeated reads absent new writes.
//
// Type parameter S is the state type to persist.
type Store[S any] interface {
	// Latest returns the thread's current (highest-sequence) checkpoint.
	// Returns ErrNotFound if the thread has no checkpoints.
	Latest(ctx context.Context, threadID string) (Checkpoint[S], error)

	// Append durably writes a new checkpoint. The checkpoint's Seq must be
	// strictly greater than the thread's latest; otherwise Append fails with
	// ErrSequenceConflict and writes nothing.
	Append(ctx context.Context, cp Checkpoint[S]) error

	// History returns all checkpoints for the thread, oldest first.
	// Returns an empty slice (not an error) for an unknown thread.
	History(ctx context.Context, threadID string) ([]Checkpoint[S], error)
}
