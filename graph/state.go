package graph

import (
	"encoding/json"
	"fmt"
)

// deepCopy clones state through a JSON round trip so each handler receives a
// private copy and checkpointed snapshots never alias live state. State types
// must therefore be JSON-serializable; unexported fields do not survive.
func deepCopy[S any](state S) (S, error) {
	var copied S
	data, err := json.Marshal(state)
	if err != nil {
		return copied, fmt.Errorf("failed to serialize state: %w", err)
	}
	if err := json.Unmarshal(data, &copied); err != nil {
		return copied, fmt.Errorf("failed to deserialize state: %w", err)
	}
	return copied, nil
}
