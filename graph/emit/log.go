package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LogEmitter writes structured event output to a writer.
//
// Two output modes:
//   - Text mode (default): human-readable key=value pairs
//   - JSON mode: one JSON object per line (JSONL)
//
// Example text output:
//
//	[node_completed] thread=t-01 seq=2 node=classify
//
// Example JSON output:
//
//	{"thread":"t-01","seq":2,"node":"classify","msg":"node_completed","meta":null}
type LogEmitter struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter writing to the given writer (os.Stdout
// when nil). If jsonMode is true, events are emitted as JSONL.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes the event in the configured format.
func (l *LogEmitter) Emit(event Event) {
	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		ThreadID string         `json:"thread"`
		Seq      int            `json:"seq"`
		NodeID   string         `json:"node"`
		Msg      string         `json:"msg"`
		Meta     map[string]any `json:"meta"`
	}{
		ThreadID: event.ThreadID,
		Seq:      event.Seq,
		NodeID:   event.NodeID,
		Msg:      event.Msg,
		Meta:     event.Meta,
	})
	if err != nil {
		fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}

	fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	fmt.Fprintf(l.writer, "[%s] thread=%s seq=%d node=%s",
		event.Msg, event.ThreadID, event.Seq, event.NodeID)

	if len(event.Meta) > 0 {
		if metaJSON, err := json.Marshal(event.Meta); err == nil {
			fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}

	fmt.Fprint(l.writer, "\n")
}
