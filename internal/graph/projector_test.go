package graph

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/dusk-indust/treegraph/internal/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// doubleCallTree is "double(a)" as a call-expression grammar parses it.
func doubleCallTree(t *testing.T) *syntax.Tree {
	t.Helper()
	tree, err := syntax.Build(syntax.LangTypeScript, []byte("double(a)"), syntax.Spec{
		Kind: "call_expression", Named: true, Start: 0, End: 9,
		Children: []syntax.Spec{
			{Kind: "identifier", Named: true, Field: "function", Start: 0, End: 6},
			{Kind: "identifier", Named: true, Field: "arguments", Start: 7, End: 8},
		},
	})
	require.NoError(t, err)
	return tree
}

// nestedTree has depth, unnamed tokens, and positional children.
func nestedTree(t *testing.T) *syntax.Tree {
	t.Helper()
	src := []byte("function f<T>(x) { return x; }")
	tree, err := syntax.Build(syntax.LangTypeScript, src, syntax.Spec{
		Kind: "program", Named: true, Start: 0, End: len(src),
		Children: []syntax.Spec{{
			Kind: "function_declaration", Named: true, Start: 0, End: len(src),
			Children: []syntax.Spec{
				{Kind: "function", Start: 0, End: 8},
				{Kind: "identifier", Named: true, Field: "name", Start: 9, End: 10},
				{Kind: "type_parameters", Named: true, Field: "typeParameters", Start: 10, End: 13, Children: []syntax.Spec{
					{Kind: "<", Start: 10, End: 11},
					{Kind: "type_identifier", Named: true, Start: 11, End: 12},
					{Kind: ">", Start: 12, End: 13},
				}},
				{Kind: "formal_parameters", Named: true, Field: "parameters", Start: 13, End: 16, Children: []syntax.Spec{
					{Kind: "identifier", Named: true, Start: 14, End: 15},
				}},
				{Kind: "statement_block", Named: true, Field: "body", Start: 17, End: len(src), Children: []syntax.Spec{
					{Kind: "return_statement", Named: true, Start: 19, End: 28, Children: []syntax.Spec{
						{Kind: "identifier", Named: true, Start: 26, End: 27},
					}},
				}},
			},
		}},
	})
	require.NoError(t, err)
	return tree
}

func project(t *testing.T, tree *syntax.Tree, sink *MemSink) Stats {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, sink.ResetNamespace(ctx, DefaultNamespace))
	stats, err := NewProjector().Project(ctx, tree, sink)
	require.NoError(t, err)
	return stats
}

func callsOf(calls []Call, kind CallKind) []Call {
	var out []Call
	for _, c := range calls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func TestProject_DoubleCall(t *testing.T) {
	sink := newTestMemSink(t)
	stats := project(t, doubleCallTree(t), sink)
	assert.Equal(t, Stats{Vertices: 3, Edges: 4}, stats)

	snap, err := sink.Dump(context.Background(), DefaultNamespace)
	require.NoError(t, err)

	require.Len(t, snap.Vertices, 3)
	assert.Equal(t, Vertex{ID: 0, Text: "double(a)", Kind: "call_expression", Named: true, EndColumn: 9, EndByte: 9}, snap.Vertices[0])
	assert.Equal(t, "double", snap.Vertices[1].Text)
	assert.Equal(t, "a", snap.Vertices[2].Text)
	assert.Equal(t, int64(7), snap.Vertices[2].StartColumn)

	assert.Equal(t, []Edge{
		{ParentID: 0, ChildID: 1, Label: RelationChild},
		{ParentID: 0, ChildID: 1, Label: "FUNCTION"},
		{ParentID: 0, ChildID: 2, Label: "ARGUMENTS"},
		{ParentID: 0, ChildID: 2, Label: RelationChild},
	}, snap.Edges)
}

func TestProject_CallOrder(t *testing.T) {
	tree := nestedTree(t)
	sink := newTestMemSink(t)
	stats := project(t, tree, sink)

	calls := sink.Calls()[1:]
	vertices := callsOf(calls, CallCreateVertex)
	edges := callsOf(calls, CallCreateEdge)

	// One vertex per node, one or two edges per pair.
	assert.Len(t, vertices, tree.Len())
	assert.GreaterOrEqual(t, len(edges), tree.PairCount())
	assert.LessOrEqual(t, len(edges), 2*tree.PairCount())
	assert.Equal(t, Stats{Vertices: len(vertices), Edges: len(edges)}, stats)

	// Vertices arrive in preorder and every edge names vertices already written.
	created := map[int64]bool{}
	for _, c := range calls {
		switch c.Kind {
		case CallCreateVertex:
			assert.Equal(t, int64(len(created)), c.Vertex.ID)
			created[c.Vertex.ID] = true
		case CallCreateEdge:
			assert.True(t, created[c.Edge.ParentID], "parent %d written before edge", c.Edge.ParentID)
			assert.True(t, created[c.Edge.ChildID], "child %d written before edge", c.Edge.ChildID)
		}
	}

	// The root is the only vertex without an incoming CHILD edge.
	incoming := map[int64]int{}
	for _, c := range edges {
		if c.Edge.Label == RelationChild {
			incoming[c.Edge.ChildID]++
		}
	}
	for id := int64(0); id < int64(tree.Len()); id++ {
		if id == 0 {
			assert.Zero(t, incoming[id])
		} else {
			assert.Equal(t, 1, incoming[id], "vertex %d", id)
		}
	}
}

func TestProject_FieldLabels(t *testing.T) {
	sink := newTestMemSink(t)
	project(t, nestedTree(t), sink)
	snap, err := sink.Dump(context.Background(), DefaultNamespace)
	require.NoError(t, err)

	labels := map[int64][]string{}
	for _, e := range snap.Edges {
		labels[e.ChildID] = append(labels[e.ChildID], e.Label)
	}
	// type_parameters is node 4.
	assert.ElementsMatch(t, []string{RelationChild, "TYPE_PARAMETERS"}, labels[4])
	// The "function" keyword has no field.
	assert.Equal(t, []string{RelationChild}, labels[2])
	assert.ElementsMatch(t, []string{RelationChild, "NAME"}, labels[3])
	assert.ElementsMatch(t, []string{RelationChild, "PARAMETERS"}, labels[8])
	assert.ElementsMatch(t, []string{RelationChild, "BODY"}, labels[10])
}

func TestProject_RepeatedFieldsAreIndependent(t *testing.T) {
	tree, err := syntax.Build(syntax.LangGo, []byte("a; b"), syntax.Spec{
		Kind: "block", Named: true, Start: 0, End: 4,
		Children: []syntax.Spec{
			{Kind: "identifier", Named: true, Field: "statement", Start: 0, End: 1},
			{Kind: "identifier", Named: true, Field: "statement", Start: 3, End: 4},
		},
	})
	require.NoError(t, err)

	sink := newTestMemSink(t)
	project(t, tree, sink)
	snap, err := sink.Dump(context.Background(), DefaultNamespace)
	require.NoError(t, err)

	var statements []Edge
	for _, e := range snap.Edges {
		if e.Label == "STATEMENT" {
			statements = append(statements, e)
		}
	}
	assert.Equal(t, []Edge{
		{ParentID: 0, ChildID: 1, Label: "STATEMENT"},
		{ParentID: 0, ChildID: 2, Label: "STATEMENT"},
	}, statements)
}

func TestProject_SingleNode(t *testing.T) {
	tree, err := syntax.Build(syntax.LangPython, []byte(""), syntax.Spec{Kind: "module", Named: true})
	require.NoError(t, err)

	sink := newTestMemSink(t)
	stats := project(t, tree, sink)
	assert.Equal(t, Stats{Vertices: 1}, stats)
}

func TestProject_AbortsOnThirdVertex(t *testing.T) {
	injected := errors.New("connection reset")
	sink := newTestMemSink(t, FailNthVertex(3, injected))
	ctx := context.Background()
	require.NoError(t, sink.ResetNamespace(ctx, DefaultNamespace))

	stats, err := NewProjector().Project(ctx, nestedTree(t), sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAborted)
	assert.ErrorIs(t, err, injected)

	var pe *ProjectionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, int64(2), pe.NodeID)
	assert.Equal(t, OpCreateVertex, pe.Op)

	// root, node 1, CHILD 0->1, then the failing node 2 write and nothing after.
	calls := sink.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, CallCreateVertex, last.Kind)
	assert.Equal(t, int64(2), last.Vertex.ID)
	assert.Equal(t, Stats{Vertices: 2, Edges: 1}, stats)
}

func TestProject_AbortsOnEdgeFailure(t *testing.T) {
	sink := newTestMemSink(t, WithFailure(func(c Call, _ int) error {
		if c.Kind == CallCreateEdge && c.Edge.Label == "FUNCTION" {
			return ErrSinkUnavailable
		}
		return nil
	}))
	ctx := context.Background()
	require.NoError(t, sink.ResetNamespace(ctx, DefaultNamespace))

	_, err := NewProjector().Project(ctx, doubleCallTree(t), sink)
	assert.ErrorIs(t, err, ErrAborted)
	assert.ErrorIs(t, err, ErrSinkUnavailable)

	var pe *ProjectionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, OpCreateEdge, pe.Op)
	assert.Equal(t, "FUNCTION", pe.Label)
	assert.Equal(t, int64(1), pe.NodeID)
	assert.Equal(t, int64(0), pe.ParentID)
}

func TestProject_WithoutResetViolatesConstraints(t *testing.T) {
	sink := newTestMemSink(t)
	tree := doubleCallTree(t)
	project(t, tree, sink)

	_, err := NewProjector().Project(context.Background(), tree, sink)
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestProject_Idempotent(t *testing.T) {
	sink := newTestMemSink(t)
	tree := nestedTree(t)

	project(t, tree, sink)
	first, err := sink.Dump(context.Background(), DefaultNamespace)
	require.NoError(t, err)

	project(t, tree, sink)
	second, err := sink.Dump(context.Background(), DefaultNamespace)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestProject_TreeSitterFixture(t *testing.T) {
	src, err := os.ReadFile("../../testdata/fixtures/double.ts")
	require.NoError(t, err)

	tree, err := syntax.NewTreeSitterMaterializer().Parse(context.Background(), src, syntax.LangTypeScript)
	require.NoError(t, err)

	sink := newTestMemSink(t)
	stats := project(t, tree, sink)
	assert.Equal(t, tree.Len(), stats.Vertices)
	assert.GreaterOrEqual(t, stats.Edges, tree.PairCount())
	assert.LessOrEqual(t, stats.Edges, 2*tree.PairCount())

	snap, err := sink.Dump(context.Background(), DefaultNamespace)
	require.NoError(t, err)
	assert.Equal(t, "program", snap.Vertices[0].Kind)
	assert.Contains(t, snap.Vertices[0].Text, "double(a)")

	labels := map[string]bool{}
	for _, e := range snap.Edges {
		labels[e.Label] = true
	}
	for _, want := range []string{RelationChild, "NAME", "PARAMETERS", "BODY", "ARGUMENTS", "FUNCTION"} {
		assert.True(t, labels[want], "label %s", want)
	}
}

func TestProject_CancelledContext(t *testing.T) {
	sink := newTestMemSink(t)
	require.NoError(t, sink.ResetNamespace(context.Background(), DefaultNamespace))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := NewProjector().Project(ctx, nestedTree(t), sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAborted)
	assert.ErrorIs(t, err, ErrSinkUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Stats{}, stats)

	var pe *ProjectionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, int64(0), pe.NodeID)
	assert.Equal(t, OpCreateVertex, pe.Op)

	snap, err := sink.Dump(context.Background(), DefaultNamespace)
	require.NoError(t, err)
	assert.Empty(t, snap.Vertices)
}

func TestProject_RecoveredTree(t *testing.T) {
	src := []byte("function double(x: number {\n  return x *;\n}\nlet = ;")
	tree, err := syntax.NewTreeSitterMaterializer().Parse(context.Background(), src, syntax.LangTypeScript)
	require.NoError(t, err)
	require.True(t, tree.HasError())

	sink := newTestMemSink(t)
	stats := project(t, tree, sink)
	assert.Equal(t, tree.Len(), stats.Vertices)

	snap, err := sink.Dump(context.Background(), DefaultNamespace)
	require.NoError(t, err)
	kinds := map[string]bool{}
	for _, v := range snap.Vertices {
		kinds[v.Kind] = true
	}
	assert.True(t, kinds["ERROR"], "recovered tree keeps its ERROR nodes")
}
