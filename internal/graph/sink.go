package graph

import (
	"context"
	"io"
)

// Sink is the write side of a property-graph backend.
// Implementations: KuzuSink (embedded), AGESink (PostgreSQL + Apache AGE),
// MemSink (testing).
//
// A Sink is used by one run at a time. Every call blocks until the backend
// has acknowledged or rejected the write.
type Sink interface {
	io.Closer

	// ResetNamespace drops the named graph region if it exists, recreates it
	// empty, and makes it the target of subsequent writes. Calling it twice
	// in a row is harmless.
	ResetNamespace(ctx context.Context, name string) error

	// CreateVertex inserts one vertex. A duplicate ID is a constraint
	// violation.
	CreateVertex(ctx context.Context, v Vertex) error

	// CreateEdge inserts one directed, labeled edge between two vertices that
	// already exist in the current namespace.
	CreateEdge(ctx context.Context, e Edge) error
}

// Dumper is implemented by sinks that can read a namespace back. It is used
// for export and verification only.
type Dumper interface {
	Dump(ctx context.Context, namespace string) (*Snapshot, error)
}
