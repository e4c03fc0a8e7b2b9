package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type testState struct {
	Steps    []string `json:"steps"`
	Value    int      `json:"value"`
	Approved *bool    `json:"approved,omitempty"`
	Second   *bool    `json:"second,omitempty"`
}

// recordStep returns a handler that appends its node id to the state.
func recordStep(id string) Handler[testState] {
	return func(_ context.Context, s testState) (testState, error) {
		s.Steps = append(s.Steps, id)
		return s, nil
	}
}

func TestBuilder_AddNode(t *testing.T) {
	t.Run("rejects empty id", func(t *testing.T) {
		b := NewBuilder[testState]()
		if err := b.AddNode("", recordStep("")); err == nil {
			t.Fatal("expected error for empty node id")
		}
	})

	t.Run("rejects reserved id", func(t *testing.T) {
		b := NewBuilder[testState]()
		if err := b.AddNode(End, recordStep(End)); err == nil {
			t.Fatal("expected error for reserved node id")
		}
	})

	t.Run("rejects nil handler", func(t *testing.T) {
		b := NewBuilder[testState]()
		if err := b.AddNode("a", nil); err == nil {
			t.Fatal("expected error for nil handler")
		}
	})

	t.Run("rejects duplicate id", func(t *testing.T) {
		b := NewBuilder[testState]()
		if err := b.AddNode("a", recordStep("a")); err != nil {
			t.Fatalf("first AddNode failed: %v", err)
		}
		if err := b.AddNode("a", recordStep("a")); err == nil {
			t.Fatal("expected error for duplicate node id")
		}
	})
}

func TestBuilder_SingleOutgoingEdge(t *testing.T) {
	b := NewBuilder[testState]()
	if err := b.AddNode("a", recordStep("a")); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	if err := b.AddEdge("a", End); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	if err := b.AddEdge("a", End); err == nil {
		t.Fatal("expected error for second static edge")
	}
	router := func(testState) string { return "x" }
	if err := b.AddConditionalEdge("a", router, map[string]string{"x": End}); err == nil {
		t.Fatal("expected error for conditional edge on node with static edge")
	}
}

func TestCompile_Validation(t *testing.T) {
	t.Run("empty graph", func(t *testing.T) {
		if _, err := NewBuilder[testState]().Compile(); err == nil {
			t.Fatal("expected error for empty graph")
		}
	})

	t.Run("entry not set", func(t *testing.T) {
		b := NewBuilder[testState]()
		mustAddNode(t, b, "a")
		mustAddEdge(t, b, "a", End)
		assertValidationError(t, b, "entry node not set")
	})

	t.Run("entry undeclared", func(t *testing.T) {
		b := NewBuilder[testState]()
		mustAddNode(t, b, "a")
		mustAddEdge(t, b, "a", End)
		if err := b.SetEntry("missing"); err != nil {
			t.Fatalf("SetEntry failed: %v", err)
		}
		assertValidationError(t, b, "entry node missing not declared")
	})

	t.Run("edge target undeclared", func(t *testing.T) {
		b := NewBuilder[testState]()
		mustAddNode(t, b, "a")
		mustAddEdge(t, b, "a", "ghost")
		if err := b.SetEntry("a"); err != nil {
			t.Fatalf("SetEntry failed: %v", err)
		}
		assertValidationError(t, b, "targets undeclared node ghost")
	})

	t.Run("node without outgoing path", func(t *testing.T) {
		b := NewBuilder[testState]()
		mustAddNode(t, b, "a")
		mustAddNode(t, b, "b")
		mustAddEdge(t, b, "a", "b")
		if err := b.SetEntry("a"); err != nil {
			t.Fatalf("SetEntry failed: %v", err)
		}
		assertValidationError(t, b, "node b has no outgoing path")
	})

	t.Run("edge into entry", func(t *testing.T) {
		b := NewBuilder[testState]()
		mustAddNode(t, b, "a")
		mustAddNode(t, b, "b")
		mustAddEdge(t, b, "a", "b")
		mustAddEdge(t, b, "b", "a")
		if err := b.SetEntry("a"); err != nil {
			t.Fatalf("SetEntry failed: %v", err)
		}
		assertValidationError(t, b, "routes into entry node a")
	})

	t.Run("static cycle rejected", func(t *testing.T) {
		b := NewBuilder[testState]()
		mustAddNode(t, b, "entry")
		mustAddNode(t, b, "a")
		mustAddNode(t, b, "b")
		mustAddEdge(t, b, "entry", "a")
		mustAddEdge(t, b, "a", "b")
		mustAddEdge(t, b, "b", "a")
		if err := b.SetEntry("entry"); err != nil {
			t.Fatalf("SetEntry failed: %v", err)
		}
		_, err := b.Compile()
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError for static cycle, got %v", err)
		}
	})

	t.Run("loop through conditional edge allowed", func(t *testing.T) {
		b := NewBuilder[testState]()
		mustAddNode(t, b, "entry")
		mustAddNode(t, b, "work")
		mustAddNode(t, b, "check")
		mustAddEdge(t, b, "entry", "work")
		mustAddEdge(t, b, "work", "check")
		router := func(s testState) string {
			if s.Value >= 3 {
				return "done"
			}
			return "again"
		}
		if err := b.AddConditionalEdge("check", router, map[string]string{
			"again": "work",
			"done":  End,
		}); err != nil {
			t.Fatalf("AddConditionalEdge failed: %v", err)
		}
		if err := b.SetEntry("entry"); err != nil {
			t.Fatalf("SetEntry failed: %v", err)
		}
		if _, err := b.Compile(); err != nil {
			t.Fatalf("expected conditional loop to compile, got %v", err)
		}
	})

	t.Run("router label targets undeclared node", func(t *testing.T) {
		b := NewBuilder[testState]()
		mustAddNode(t, b, "a")
		router := func(testState) string { return "x" }
		if err := b.AddConditionalEdge("a", router, map[string]string{"x": "ghost"}); err != nil {
			t.Fatalf("AddConditionalEdge failed: %v", err)
		}
		if err := b.SetEntry("a"); err != nil {
			t.Fatalf("SetEntry failed: %v", err)
		}
		assertValidationError(t, b, "targets undeclared node ghost")
	})
}

func TestGraph_Next(t *testing.T) {
	b := NewBuilder[testState]()
	mustAddNode(t, b, "a")
	mustAddNode(t, b, "left")
	mustAddNode(t, b, "right")
	router := func(s testState) string {
		if s.Value > 0 {
			return "left"
		}
		return "nowhere"
	}
	if err := b.AddConditionalEdge("a", router, map[string]string{
		"left":  "left",
		"right": "right",
	}); err != nil {
		t.Fatalf("AddConditionalEdge failed: %v", err)
	}
	mustAddEdge(t, b, "left", End)
	mustAddEdge(t, b, "right", End)
	if err := b.SetEntry("a"); err != nil {
		t.Fatalf("SetEntry failed: %v", err)
	}
	g, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	t.Run("resolves declared label", func(t *testing.T) {
		next, err := g.next("a", testState{Value: 1})
		if err != nil {
			t.Fatalf("next failed: %v", err)
		}
		if next != "left" {
			t.Errorf("expected left, got %s", next)
		}
	})

	t.Run("unroutable label", func(t *testing.T) {
		_, err := g.next("a", testState{Value: 0})
		var uerr *UnroutableLabelError
		if !errors.As(err, &uerr) {
			t.Fatalf("expected UnroutableLabelError, got %v", err)
		}
		if uerr.NodeID != "a" || uerr.Label != "nowhere" {
			t.Errorf("unexpected error detail: %+v", uerr)
		}
	})

	t.Run("static edge wins", func(t *testing.T) {
		next, err := g.next("left", testState{})
		if err != nil {
			t.Fatalf("next failed: %v", err)
		}
		if next != End {
			t.Errorf("expected End, got %s", next)
		}
	})
}

func mustAddNode(t *testing.T, b *Builder[testState], id string) {
	t.Helper()
	if err := b.AddNode(id, recordStep(id)); err != nil {
		t.Fatalf("AddNode(%s) failed: %v", id, err)
	}
}

func mustAddEdge(t *testing.T, b *Builder[testState], from, to string) {
	t.Helper()
	if err := b.AddEdge(from, to); err != nil {
		t.Fatalf("AddEdge(%s, %s) failed: %v", from, to, err)
	}
}

func assertValidationError(t *testing.T, b *Builder[testState], contains string) {
	t.Helper()
	_, err := b.Compile()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if contains != "" && !strings.Contains(verr.Message, contains) {
		t.Errorf("expected message containing %q, got %q", contains, verr.Message)
	}
}
