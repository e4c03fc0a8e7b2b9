package emit

// Event is an observability event emitted during a workflow turn.
//
// Events cover node start/completion, interrupts, resumes, checkpoint writes,
// and turn-level outcomes. They are delivered to an Emitter which may log
// them, convert them to OpenTelemetry spans, or discard them.
type Event struct {
	// ThreadID identifies the execution lineage that emitted this event.
	ThreadID string

	// Seq is the checkpoint sequence number the event relates to.
	// Negative for turn-level events emitted before any checkpoint exists.
	Seq int

	// NodeID identifies which node the event concerns.
	// Empty for turn-level events.
	NodeID string

	// Msg is a short machine-friendly event name, e.g. "node_completed",
	// "turn_paused", "turn_completed".
	Msg string

	// Meta carries additional structured data. Common keys:
	//   - "duration_ms": node execution duration
	//   - "error": error details
	//   - "payload": interrupt payload
	Meta map[string]any
}
