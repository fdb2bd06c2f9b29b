package graph

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dusk-indust/treegraph/internal/syntax"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Projector writes a syntax tree into a Sink, one vertex per node and one or
// two edges per parent-child pair. It does not reset the namespace; callers
// must do that before every run or the sink will reject duplicate IDs.
type Projector struct {
	logger *log.Logger
}

// ProjectorOption configures a Projector.
type ProjectorOption func(*Projector)

// WithLogger makes the projector log every write at debug level.
func WithLogger(l *log.Logger) ProjectorOption {
	return func(p *Projector) {
		p.logger = l
	}
}

// NewProjector creates a Projector.
func NewProjector(opts ...ProjectorOption) *Projector {
	p := &Projector{}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Project walks tree in preorder. The root vertex is created first; every
// other vertex is created while its parent is being processed, immediately
// before the edges that name it and before descending into it. Writes are
// issued one at a time and the first failure aborts the walk with a
// *ProjectionError. Nothing already written is rolled back.
func (p *Projector) Project(ctx context.Context, tree *syntax.Tree, sink Sink) (Stats, error) {
	ctx, span := tracer.Start(ctx, "graph.Projector.Project",
		trace.WithAttributes(
			attribute.String("language", string(tree.Language())),
			attribute.Int("nodes", tree.Len()),
		),
	)
	defer span.End()

	start := time.Now()
	w := &projection{sink: sink, tree: tree, logger: p.logger}
	err := w.run(ctx)
	recordProjection(ctx, string(tree.Language()), time.Since(start), w.stats, err)

	span.SetAttributes(
		attribute.Int("vertices", w.stats.Vertices),
		attribute.Int("edges", w.stats.Edges),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "projection aborted")
		return w.stats, err
	}
	return w.stats, nil
}

// projection holds the state of one Project call.
type projection struct {
	sink   Sink
	tree   *syntax.Tree
	logger *log.Logger
	stats  Stats
}

func (w *projection) run(ctx context.Context) error {
	root := w.tree.Root()
	if root == nil {
		return nil
	}
	if err := w.createVertex(ctx, root.ID); err != nil {
		return err
	}
	return w.walk(ctx, w.tree.Walk())
}

// walk processes the node under the cursor as a parent.
func (w *projection) walk(ctx context.Context, cursor *syntax.Cursor) error {
	parent := cursor.Node().ID
	if !cursor.GotoFirstChild() {
		return nil
	}
	for {
		child := cursor.Node().ID
		if err := w.createVertex(ctx, child); err != nil {
			return err
		}
		for _, e := range EdgesFor(int64(parent), int64(child), cursor.FieldName()) {
			if err := w.createEdge(ctx, e); err != nil {
				return err
			}
		}
		if err := w.walk(ctx, cursor); err != nil {
			return err
		}
		if !cursor.GotoNextSibling() {
			break
		}
	}
	cursor.GotoParent()
	return nil
}

func (w *projection) createVertex(ctx context.Context, id syntax.NodeID) error {
	v := VertexFromNode(w.tree, id)
	if err := w.sink.CreateVertex(ctx, v); err != nil {
		return &ProjectionError{NodeID: v.ID, ParentID: -1, Op: OpCreateVertex, Err: err}
	}
	w.stats.Vertices++
	if w.logger != nil {
		w.logger.Debug("vertex created", "id", v.ID, "kind", v.Kind, "named", v.Named)
	}
	return nil
}

func (w *projection) createEdge(ctx context.Context, e Edge) error {
	if err := w.sink.CreateEdge(ctx, e); err != nil {
		return &ProjectionError{NodeID: e.ChildID, ParentID: e.ParentID, Op: OpCreateEdge, Label: e.Label, Err: err}
	}
	w.stats.Edges++
	if w.logger != nil {
		w.logger.Debug("edge created", "parent", e.ParentID, "child", e.ChildID, "label", e.Label)
	}
	return nil
}
