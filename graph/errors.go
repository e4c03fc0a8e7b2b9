// Package graph provides the core workflow execution engine for threadflow.
package graph

import (
	"errors"
	"fmt"
)

// ErrInvalidInvocation indicates caller misuse of Invoke: exactly one of the
// initial state and the resume command must be supplied. No state is changed.
var ErrInvalidInvocation = errors.New("invalid invocation: exactly one of initial state or resume command required")

// ErrThreadBusy indicates a concurrent or re-started invocation on a thread
// that is mid-flight. No state is changed; the caller should retry later.
var ErrThreadBusy = errors.New("thread busy")

// ErrNothingToResume indicates a resume was requested for a thread that has
// no pending pause (no checkpoints at all, or a latest checkpoint without an
// interrupt marker).
var ErrNothingToResume = errors.New("nothing to resume")

// ErrMaxStepsExceeded indicates a turn ran more steps than the configured
// limit. The graph compiler rejects unconditional cycles, so hitting this
// limit points at a router looping back indefinitely.
var ErrMaxStepsExceeded = errors.New("turn exceeded maximum steps limit")

// ValidationError reports an invalid graph definition detected by Compile.
// A process must not start with an invalid graph.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid graph: " + e.Message
}

// UnroutableLabelError reports a conditional router returning a label absent
// from its declared mapping. It is fatal to the turn, writes no checkpoint,
// and signals a graph or router bug rather than a data problem.
type UnroutableLabelError struct {
	NodeID string
	Label  string
}

func (e *UnroutableLabelError) Error() string {
	return fmt.Sprintf("node %s: router returned unroutable label %q", e.NodeID, e.Label)
}

// NodeError reports a handler failure (error return, panic, or timeout).
// No checkpoint is written for the failed step; the thread's prior checkpoint
// remains authoritative, so the turn is safe to retry with respect to
// checkpoint state. External side effects already performed by the failed
// handler are not undone.
type NodeError struct {
	NodeID  string
	Err     error
	Timeout bool
}

func (e *NodeError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("node %s: execution timed out: %v", e.NodeID, e.Err)
	}
	return fmt.Sprintf("node %s: execution failed: %v", e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
