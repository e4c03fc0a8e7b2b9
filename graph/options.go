package graph

import (
	"time"

	"github.com/mwhite-dev/threadflow/graph/emit"
)

// Options tune engine behavior. Zero values mean no limit and no timeout.
type Options struct {
	// MaxSteps caps handler executions per turn. 0 disables the cap; the
	// compiler already rejects unconditional cycles, so the cap is a
	// backstop against routers that loop forever.
	MaxSteps int

	// NodeTimeout bounds each handler execution. 0 disables the bound.
	NodeTimeout time.Duration

	emitter emit.Emitter
	metrics *Metrics
}

// Option configures an Engine.
type Option func(*Options)

// WithMaxSteps caps the number of handler executions per turn.
func WithMaxSteps(n int) Option {
	return func(o *Options) { o.MaxSteps = n }
}

// WithNodeTimeout bounds each handler execution.
func WithNodeTimeout(d time.Duration) Option {
	return func(o *Options) { o.NodeTimeout = d }
}

// WithEmitter routes engine lifecycle events to the given emitter.
func WithEmitter(e emit.Emitter) Option {
	return func(o *Options) { o.emitter = e }
}

// WithMetrics records engine metrics to the given collector.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) { o.metrics = m }
}
