package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

type contractState struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func checkpointAt(threadID string, seq int, next string) Checkpoint[contractState] {
	return Checkpoint[contractState]{
		ThreadID:  threadID,
		Seq:       seq,
		State:     contractState{Name: "state", Count: seq},
		NextNode:  next,
		CreatedAt: time.Now().UTC(),
	}
}

// runStoreContract exercises the behavior every Store implementation must
// share: append-only ordering, sequence fencing, interrupt round-tripping,
// and thread independence.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store[contractState]) {
	t.Helper()
	ctx := context.Background()

	t.Run("latest on unknown thread", func(t *testing.T) {
		st := newStore(t)
		_, err := st.Latest(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("history on unknown thread is empty", func(t *testing.T) {
		st := newStore(t)
		history, err := st.History(ctx, "missing")
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(history) != 0 {
			t.Fatalf("expected empty history, got %d entries", len(history))
		}
	})

	t.Run("append and latest round trip", func(t *testing.T) {
		st := newStore(t)
		cp := checkpointAt("t-1", 0, "next")
		if err := st.Append(ctx, cp); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		got, err := st.Latest(ctx, "t-1")
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if got.ThreadID != "t-1" || got.Seq != 0 || got.NextNode != "next" {
			t.Errorf("unexpected checkpoint: %+v", got)
		}
		if got.State.Name != "state" || got.State.Count != 0 {
			t.Errorf("unexpected state: %+v", got.State)
		}
		if got.Paused() {
			t.Error("checkpoint without interrupt must not report paused")
		}
	})

	t.Run("sequence conflict", func(t *testing.T) {
		st := newStore(t)
		if err := st.Append(ctx, checkpointAt("t-2", 0, "a")); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := st.Append(ctx, checkpointAt("t-2", 1, "b")); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		if err := st.Append(ctx, checkpointAt("t-2", 1, "dup")); !errors.Is(err, ErrSequenceConflict) {
			t.Fatalf("expected ErrSequenceConflict for duplicate seq, got %v", err)
		}
		if err := st.Append(ctx, checkpointAt("t-2", 0, "old")); !errors.Is(err, ErrSequenceConflict) {
			t.Fatalf("expected ErrSequenceConflict for stale seq, got %v", err)
		}

		latest, err := st.Latest(ctx, "t-2")
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if latest.Seq != 1 || latest.NextNode != "b" {
			t.Errorf("conflicting append must not change state: %+v", latest)
		}
	})

	t.Run("history is ordered", func(t *testing.T) {
		st := newStore(t)
		for seq := 0; seq < 4; seq++ {
			if err := st.Append(ctx, checkpointAt("t-3", seq, "n")); err != nil {
				t.Fatalf("Append seq %d failed: %v", seq, err)
			}
		}

		history, err := st.History(ctx, "t-3")
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(history) != 4 {
			t.Fatalf("expected 4 checkpoints, got %d", len(history))
		}
		for i, cp := range history {
			if cp.Seq != i {
				t.Errorf("position %d holds seq %d", i, cp.Seq)
			}
			if cp.State.Count != i {
				t.Errorf("position %d holds state count %d", i, cp.State.Count)
			}
		}
	})

	t.Run("history is stable across reads", func(t *testing.T) {
		st := newStore(t)
		for seq := 0; seq < 3; seq++ {
			if err := st.Append(ctx, checkpointAt("t-stable", seq, "n")); err != nil {
				t.Fatalf("Append seq %d failed: %v", seq, err)
			}
		}

		first, err := st.History(ctx, "t-stable")
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		second, err := st.History(ctx, "t-stable")
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(first) != len(second) {
			t.Fatalf("repeated reads disagree on length: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i].Seq != second[i].Seq || first[i].NextNode != second[i].NextNode {
				t.Errorf("position %d differs between reads: %+v vs %+v", i, first[i], second[i])
			}
		}
	})

	t.Run("interrupt round trip", func(t *testing.T) {
		st := newStore(t)
		cp := checkpointAt("t-4", 0, "gate")
		cp.Interrupt = &PendingInterrupt{
			NodeID:  "gate",
			Payload: map[string]any{"message": "approve?"},
		}
		if err := st.Append(ctx, cp); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		got, err := st.Latest(ctx, "t-4")
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if !got.Paused() {
			t.Fatal("expected paused checkpoint")
		}
		if got.Interrupt.NodeID != "gate" {
			t.Errorf("unexpected interrupt node: %s", got.Interrupt.NodeID)
		}
		payload, ok := got.Interrupt.Payload.(map[string]any)
		if !ok || payload["message"] != "approve?" {
			t.Errorf("unexpected payload: %v", got.Interrupt.Payload)
		}
	})

	t.Run("threads are independent", func(t *testing.T) {
		st := newStore(t)
		if err := st.Append(ctx, checkpointAt("t-a", 0, "x")); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := st.Append(ctx, checkpointAt("t-b", 0, "y")); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		a, err := st.Latest(ctx, "t-a")
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		b, err := st.Latest(ctx, "t-b")
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if a.NextNode != "x" || b.NextNode != "y" {
			t.Errorf("threads bled into each other: %+v / %+v", a, b)
		}
	})
}
