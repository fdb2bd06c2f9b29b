package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemSink(t *testing.T, opts ...MemSinkOption) *MemSink {
	t.Helper()
	m := NewMemSink(opts...)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMemSink_RequiresNamespace(t *testing.T) {
	m := newTestMemSink(t)
	err := m.CreateVertex(context.Background(), Vertex{ID: 0})
	assert.ErrorIs(t, err, ErrNoNamespace)

	err = m.ResetNamespace(context.Background(), "bad name")
	assert.ErrorIs(t, err, ErrInvalidNamespace)
}

func TestMemSink_Constraints(t *testing.T) {
	m := newTestMemSink(t)
	ctx := context.Background()
	require.NoError(t, m.ResetNamespace(ctx, "index"))

	require.NoError(t, m.CreateVertex(ctx, Vertex{ID: 0, Kind: "program"}))
	require.NoError(t, m.CreateVertex(ctx, Vertex{ID: 1, Kind: "identifier"}))

	assert.ErrorIs(t, m.CreateVertex(ctx, Vertex{ID: 1}), ErrConstraintViolation)
	assert.ErrorIs(t, m.CreateEdge(ctx, Edge{ParentID: 0, ChildID: 9, Label: RelationChild}), ErrConstraintViolation)
	assert.ErrorIs(t, m.CreateEdge(ctx, Edge{ParentID: 0, ChildID: 1, Label: "bad label"}), ErrConstraintViolation)
	require.NoError(t, m.CreateEdge(ctx, Edge{ParentID: 0, ChildID: 1, Label: RelationChild}))

	snap, err := m.Dump(ctx, "index")
	require.NoError(t, err)
	assert.Len(t, snap.Vertices, 2)
	assert.Equal(t, []Edge{{ParentID: 0, ChildID: 1, Label: RelationChild}}, snap.Edges)
}

func TestMemSink_ResetClearsAndIsolates(t *testing.T) {
	m := newTestMemSink(t)
	ctx := context.Background()

	require.NoError(t, m.ResetNamespace(ctx, "first"))
	require.NoError(t, m.CreateVertex(ctx, Vertex{ID: 0}))

	require.NoError(t, m.ResetNamespace(ctx, "second"))
	require.NoError(t, m.CreateVertex(ctx, Vertex{ID: 0}))
	require.NoError(t, m.CreateVertex(ctx, Vertex{ID: 1}))
	assert.Equal(t, "second", m.Namespace())

	first, err := m.Dump(ctx, "first")
	require.NoError(t, err)
	assert.Len(t, first.Vertices, 1)

	require.NoError(t, m.ResetNamespace(ctx, "second"))
	require.NoError(t, m.ResetNamespace(ctx, "second"))
	second, err := m.Dump(ctx, "second")
	require.NoError(t, err)
	assert.Empty(t, second.Vertices)

	_, err = m.Dump(ctx, "third")
	assert.ErrorIs(t, err, ErrNoNamespace)
}

func TestMemSink_FailureInjection(t *testing.T) {
	injected := errors.New("disk full")
	m := newTestMemSink(t, FailNthVertex(2, injected))
	ctx := context.Background()
	require.NoError(t, m.ResetNamespace(ctx, "index"))

	require.NoError(t, m.CreateVertex(ctx, Vertex{ID: 0}))
	assert.ErrorIs(t, m.CreateVertex(ctx, Vertex{ID: 1}), injected)
	require.NoError(t, m.CreateVertex(ctx, Vertex{ID: 2}))

	calls := m.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, CallReset, calls[0].Kind)
	assert.Equal(t, int64(1), calls[2].Vertex.ID)
}

func TestMemSink_Closed(t *testing.T) {
	m := NewMemSink()
	ctx := context.Background()
	require.NoError(t, m.ResetNamespace(ctx, "index"))
	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.CreateVertex(ctx, Vertex{ID: 0}), ErrSinkUnavailable)
}
