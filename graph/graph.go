package graph

import "fmt"

// End is the terminal pseudo-node. An edge or router label resolving to End
// finishes the turn; End has no handler and never executes.
const End = "__end__"

// conditional is a compiled conditional edge: a router plus the label
// mapping it resolves against.
type conditional[S any] struct {
	router Router[S]
	paths  map[string]string
}

// Builder accumulates a graph definition. Call Compile to validate it and
// obtain an immutable Graph for the engine.
//
// Each mutating method returns an error for locally detectable problems
// (duplicate node, second outgoing edge); whole-graph properties such as
// reachability and cycles are checked by Compile.
type Builder[S any] struct {
	nodes        map[string]Handler[S]
	statics      map[string]string
	conditionals map[string]conditional[S]
	entry        string
}

// NewBuilder creates an empty graph builder.
func NewBuilder[S any]() *Builder[S] {
	return &Builder[S]{
		nodes:        make(map[string]Handler[S]),
		statics:      make(map[string]string),
		conditionals: make(map[string]conditional[S]),
	}
}

// AddNode registers a handler under the given id. Node ids are unique; End is
// reserved.
func (b *Builder[S]) AddNode(id string, handler Handler[S]) error {
	if id == "" {
		return &ValidationError{Message: "node id cannot be empty"}
	}
	if id == End {
		return &ValidationError{Message: fmt.Sprintf("node id %q is reserved", End)}
	}
	if handler == nil {
		return &ValidationError{Message: fmt.Sprintf("node %s: handler cannot be nil", id)}
	}
	if _, exists := b.nodes[id]; exists {
		return &ValidationError{Message: fmt.Sprintf("node %s already declared", id)}
	}
	b.nodes[id] = handler
	return nil
}

// AddEdge declares a static edge: after from completes, control always moves
// to to. A node carries at most one outgoing edge, static or conditional.
func (b *Builder[S]) AddEdge(from, to string) error {
	if err := b.claimOutgoing(from); err != nil {
		return err
	}
	b.statics[from] = to
	return nil
}

// AddConditionalEdge declares a routed edge: after from completes, router is
// applied to the resulting state and its label is resolved through paths.
func (b *Builder[S]) AddConditionalEdge(from string, router Router[S], paths map[string]string) error {
	if router == nil {
		return &ValidationError{Message: fmt.Sprintf("node %s: router cannot be nil", from)}
	}
	if len(paths) == 0 {
		return &ValidationError{Message: fmt.Sprintf("node %s: conditional edge needs at least one path", from)}
	}
	if err := b.claimOutgoing(from); err != nil {
		return err
	}
	copied := make(map[string]string, len(paths))
	for label, to := range paths {
		copied[label] = to
	}
	b.conditionals[from] = conditional[S]{router: router, paths: copied}
	return nil
}

// SetEntry designates the node every fresh turn starts at.
func (b *Builder[S]) SetEntry(id string) error {
	if id == "" {
		return &ValidationError{Message: "entry node id cannot be empty"}
	}
	b.entry = id
	return nil
}

func (b *Builder[S]) claimOutgoing(from string) error {
	if _, ok := b.statics[from]; ok {
		return &ValidationError{Message: fmt.Sprintf("node %s already has an outgoing edge", from)}
	}
	if _, ok := b.conditionals[from]; ok {
		return &ValidationError{Message: fmt.Sprintf("node %s already has an outgoing edge", from)}
	}
	return nil
}

// Compile validates the accumulated definition and freezes it into a Graph.
//
// Checks performed:
//   - the entry node is set and declared, and nothing routes into it
//   - every edge endpoint and every router label target is a declared node
//     (or End)
//   - every node has an outgoing path, so no turn can strand
//   - no cycle exists over static edges alone; loops must pass through at
//     least one conditional edge so a router can break them
func (b *Builder[S]) Compile() (*Graph[S], error) {
	if len(b.nodes) == 0 {
		return nil, &ValidationError{Message: "graph has no nodes"}
	}
	if b.entry == "" {
		return nil, &ValidationError{Message: "entry node not set"}
	}
	if _, ok := b.nodes[b.entry]; !ok {
		return nil, &ValidationError{Message: fmt.Sprintf("entry node %s not declared", b.entry)}
	}

	for from, to := range b.statics {
		if _, ok := b.nodes[from]; !ok {
			return nil, &ValidationError{Message: fmt.Sprintf("edge from undeclared node %s", from)}
		}
		if err := b.checkTarget(from, to); err != nil {
			return nil, err
		}
	}
	for from, cond := range b.conditionals {
		if _, ok := b.nodes[from]; !ok {
			return nil, &ValidationError{Message: fmt.Sprintf("conditional edge from undeclared node %s", from)}
		}
		for label, to := range cond.paths {
			if to == b.entry {
				return nil, &ValidationError{Message: fmt.Sprintf("label %q on node %s routes into entry node %s", label, from, b.entry)}
			}
			if err := b.checkTarget(from, to); err != nil {
				return nil, err
			}
		}
	}

	for id := range b.nodes {
		_, hasStatic := b.statics[id]
		_, hasCond := b.conditionals[id]
		if !hasStatic && !hasCond {
			return nil, &ValidationError{Message: fmt.Sprintf("node %s has no outgoing path", id)}
		}
	}

	if cycle := findStaticCycle(b.statics); cycle != "" {
		return nil, &ValidationError{Message: fmt.Sprintf("static edges form a cycle through node %s; loops must pass through a conditional edge", cycle)}
	}

	return &Graph[S]{
		nodes:        b.nodes,
		statics:      b.statics,
		conditionals: b.conditionals,
		entry:        b.entry,
	}, nil
}

func (b *Builder[S]) checkTarget(from, to string) error {
	if to == End {
		return nil
	}
	if to == b.entry {
		return &ValidationError{Message: fmt.Sprintf("edge from %s routes into entry node %s", from, b.entry)}
	}
	if _, ok := b.nodes[to]; !ok {
		return &ValidationError{Message: fmt.Sprintf("edge from %s targets undeclared node %s", from, to)}
	}
	return nil
}

// findStaticCycle walks the static-edge chains and returns a node on a cycle,
// or "" when none exists. Static edges give each node at most one successor,
// so a simple colored walk suffices.
func findStaticCycle(statics map[string]string) string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(statics))

	for start := range statics {
		if state[start] != unvisited {
			continue
		}
		var chain []string
		cur := start
		for {
			if state[cur] == inStack {
				return cur
			}
			if state[cur] == done {
				break
			}
			state[cur] = inStack
			chain = append(chain, cur)
			next, ok := statics[cur]
			if !ok || next == End {
				break
			}
			cur = next
		}
		for _, id := range chain {
			state[id] = done
		}
	}
	return ""
}

// Graph is a compiled, immutable workflow definition. Safe for concurrent use
// by any number of engine turns.
type Graph[S any] struct {
	nodes        map[string]Handler[S]
	statics      map[string]string
	conditionals map[string]conditional[S]
	entry        string
}

// Entry returns the id of the entry node.
func (g *Graph[S]) Entry() string {
	return g.entry
}

// Nodes returns the ids of all declared nodes.
func (g *Graph[S]) Nodes() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return ids
}

// handler returns the handler for a declared node.
func (g *Graph[S]) handler(id string) (Handler[S], bool) {
	h, ok := g.nodes[id]
	return h, ok
}

// next resolves the node that follows from given the post-handler state.
func (g *Graph[S]) next(from string, state S) (string, error) {
	if to, ok := g.statics[from]; ok {
		return to, nil
	}
	cond, ok := g.conditionals[from]
	if !ok {
		return "", &ValidationError{Message: fmt.Sprintf("node %s has no outgoing path", from)}
	}
	label := cond.router(state)
	to, ok := cond.paths[label]
	if !ok {
		return "", &UnroutableLabelError{NodeID: from, Label: label}
	}
	return to, nil
}
