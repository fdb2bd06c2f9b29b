package graph

import (
	"context"
	"fmt"
	"sync"
)

// Compile-time assertions: *MemSink satisfies Sink and Dumper.
var (
	_ Sink   = (*MemSink)(nil)
	_ Dumper = (*MemSink)(nil)
)

// CallKind identifies a recorded sink call.
type CallKind string

const (
	CallReset        CallKind = "reset"
	CallCreateVertex CallKind = "vertex"
	CallCreateEdge   CallKind = "edge"
)

// Call is one recorded MemSink invocation, successful or not.
type Call struct {
	Kind      CallKind
	Namespace string
	Vertex    Vertex
	Edge      Edge
}

// FailureFunc decides whether the call should fail. seq is the 1-based
// position of the call among calls of the same kind.
type FailureFunc func(c Call, seq int) error

// MemSinkOption configures a MemSink.
type MemSinkOption func(*MemSink)

// WithFailure installs a failure hook consulted before every call is applied.
func WithFailure(fn FailureFunc) MemSinkOption {
	return func(m *MemSink) {
		m.fail = fn
	}
}

// FailNthVertex makes the n-th CreateVertex call (1-based) return err.
func FailNthVertex(n int, err error) MemSinkOption {
	return WithFailure(func(c Call, seq int) error {
		if c.Kind == CallCreateVertex && seq == n {
			return err
		}
		return nil
	})
}

// memGraph is the content of one namespace.
type memGraph struct {
	vertices map[int64]Vertex
	edges    []Edge
}

// MemSink implements Sink using Go maps. Thread-safe via sync.Mutex. It
// enforces the same constraints as the database sinks and records every call
// so tests can check write order.
type MemSink struct {
	mu      sync.Mutex
	graphs  map[string]*memGraph
	current string
	calls   []Call
	seq     map[CallKind]int
	fail    FailureFunc
	closed  bool
}

// NewMemSink returns an initialized MemSink ready for use.
func NewMemSink(opts ...MemSinkOption) *MemSink {
	m := &MemSink{
		graphs: make(map[string]*memGraph),
		seq:    make(map[CallKind]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// record logs c and consults the failure hook. Callers must hold m.mu.
func (m *MemSink) record(ctx context.Context, c Call) error {
	m.calls = append(m.calls, c)
	m.seq[c.Kind]++
	if m.closed {
		return fmt.Errorf("mem: %w: sink closed", ErrSinkUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mem: %w: %w", ErrSinkUnavailable, err)
	}
	if m.fail != nil {
		if err := m.fail(c, m.seq[c.Kind]); err != nil {
			return err
		}
	}
	return nil
}

// ResetNamespace replaces the namespace with an empty graph and selects it.
func (m *MemSink) ResetNamespace(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, Call{Kind: CallReset, Namespace: name}); err != nil {
		return err
	}
	if err := ValidateNamespace(name); err != nil {
		return err
	}
	m.graphs[name] = &memGraph{vertices: make(map[int64]Vertex)}
	m.current = name
	return nil
}

// CreateVertex stores a vertex in the current namespace.
func (m *MemSink) CreateVertex(ctx context.Context, v Vertex) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, Call{Kind: CallCreateVertex, Namespace: m.current, Vertex: v}); err != nil {
		return err
	}
	g, err := m.target()
	if err != nil {
		return err
	}
	if _, dup := g.vertices[v.ID]; dup {
		return fmt.Errorf("mem: %w: duplicate vertex id %d", ErrConstraintViolation, v.ID)
	}
	g.vertices[v.ID] = v
	return nil
}

// CreateEdge appends an edge between two existing vertices.
func (m *MemSink) CreateEdge(ctx context.Context, e Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, Call{Kind: CallCreateEdge, Namespace: m.current, Edge: e}); err != nil {
		return err
	}
	g, err := m.target()
	if err != nil {
		return err
	}
	for _, id := range []int64{e.ParentID, e.ChildID} {
		if _, ok := g.vertices[id]; !ok {
			return fmt.Errorf("mem: %w: edge %s references missing vertex %d", ErrConstraintViolation, e.Label, id)
		}
	}
	if err := validateLabel(e.Label); err != nil {
		return fmt.Errorf("mem: %w", err)
	}
	g.edges = append(g.edges, e)
	return nil
}

// target returns the current namespace graph. Callers must hold m.mu.
func (m *MemSink) target() (*memGraph, error) {
	g, ok := m.graphs[m.current]
	if !ok {
		return nil, fmt.Errorf("mem: %w: call ResetNamespace first", ErrNoNamespace)
	}
	return g, nil
}

// Dump returns a copy of the namespace in canonical order.
func (m *MemSink) Dump(_ context.Context, namespace string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.graphs[namespace]
	if !ok {
		return nil, fmt.Errorf("mem: %w: %q", ErrNoNamespace, namespace)
	}
	snap := &Snapshot{
		Namespace: namespace,
		Vertices:  make([]Vertex, 0, len(g.vertices)),
		Edges:     make([]Edge, len(g.edges)),
	}
	for _, v := range g.vertices {
		snap.Vertices = append(snap.Vertices, v)
	}
	copy(snap.Edges, g.edges)
	sortSnapshot(snap)
	return snap, nil
}

// Calls returns a copy of every call made so far, in order.
func (m *MemSink) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Namespace returns the namespace currently selected for writes.
func (m *MemSink) Namespace() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Close marks the sink unavailable; later calls fail with ErrSinkUnavailable.
func (m *MemSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
