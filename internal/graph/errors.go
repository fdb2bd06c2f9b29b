package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for sink and projection failures. Check them with
// errors.Is; sink implementations wrap them with backend detail.
var (
	// ErrSinkUnavailable indicates the backend could not be reached or the
	// connection failed mid-run.
	ErrSinkUnavailable = errors.New("graph sink unavailable")

	// ErrConstraintViolation indicates a duplicate vertex ID or an edge that
	// names a vertex the namespace does not contain.
	ErrConstraintViolation = errors.New("graph constraint violation")

	// ErrAborted indicates a projection stopped at its first failed write.
	ErrAborted = errors.New("projection aborted")

	// ErrInvalidNamespace indicates a namespace name the backends cannot map
	// to table or graph names.
	ErrInvalidNamespace = errors.New("invalid namespace")

	// ErrNoNamespace indicates a write before ResetNamespace, or a read of a
	// namespace that does not exist.
	ErrNoNamespace = errors.New("no namespace")
)

// Operations recorded in ProjectionError.
const (
	OpCreateVertex = "create vertex"
	OpCreateEdge   = "create edge"
)

// ProjectionError describes the write that aborted a projection. It matches
// both ErrAborted and the underlying sink error under errors.Is.
type ProjectionError struct {
	// NodeID is the vertex being created, or the child endpoint of the edge.
	NodeID int64

	// ParentID is the parent endpoint for edge writes, -1 for vertex writes.
	ParentID int64

	// Op is OpCreateVertex or OpCreateEdge.
	Op string

	// Label is the relation label for edge writes.
	Label string

	// Err is the error returned by the sink.
	Err error
}

func (e *ProjectionError) Error() string {
	if e.Op == OpCreateEdge {
		return fmt.Sprintf("projection aborted at node %d (%s %s from %d): %v",
			e.NodeID, e.Op, e.Label, e.ParentID, e.Err)
	}
	return fmt.Sprintf("projection aborted at node %d (%s): %v", e.NodeID, e.Op, e.Err)
}

// Unwrap exposes both ErrAborted and the sink error.
func (e *ProjectionError) Unwrap() []error {
	return []error{ErrAborted, e.Err}
}
