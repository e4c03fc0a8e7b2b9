package store

import (
	"context"
	"sync"
	"testing"
)

func TestMemStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store[contractState] {
		return NewMemStore[contractState]()
	})
}

func TestMemStore_HistoryReturnsCopy(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore[contractState]()
	if err := st.Append(ctx, checkpointAt("t-1", 0, "a")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	history, err := st.History(ctx, "t-1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	history[0].NextNode = "mutated"

	again, err := st.History(ctx, "t-1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if again[0].NextNode != "a" {
		t.Error("History must return a copy of the stored slice")
	}
}

func TestMemStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore[contractState]()

	// Many goroutines race to append the same sequence; exactly one wins.
	const goroutines = 16
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- st.Append(ctx, checkpointAt("t-race", 0, "n"))
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning append, got %d", wins)
	}

	history, err := st.History(ctx, "t-race")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 checkpoint, got %d", len(history))
	}
}
