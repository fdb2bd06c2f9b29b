// Package indexer runs one source text through the materializer and the
// projector into a sink namespace.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dusk-indust/treegraph/internal/graph"
	"github.com/dusk-indust/treegraph/internal/logging"
	"github.com/dusk-indust/treegraph/internal/syntax"
	"github.com/google/uuid"
)

// Stage names the step of a run that failed.
type Stage string

const (
	StageParse   Stage = "parse"
	StageReset   Stage = "reset"
	StageProject Stage = "project"
)

// StageError wraps the failure of one stage. The stage's own error stays
// reachable through errors.Is and errors.As.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("indexer: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the stage recorded in err, or "" when err carries none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// Request is one indexing run.
type Request struct {
	Namespace string
	Language  syntax.Language
	Source    []byte
}

// Report summarizes a completed run.
type Report struct {
	RunID           string        `json:"runId"`
	Namespace       string        `json:"namespace"`
	Language        string        `json:"language"`
	Nodes           int           `json:"nodes"`
	Vertices        int           `json:"vertices"`
	Edges           int           `json:"edges"`
	HasSyntaxErrors bool          `json:"hasSyntaxErrors"`
	Duration        time.Duration `json:"duration"`
}

// Indexer parses source text and replaces a sink namespace with its graph.
// It is not safe for concurrent use because the sink is not.
type Indexer struct {
	materializer syntax.Materializer
	sink         graph.Sink
	projector    *graph.Projector
	logger       *log.Logger
}

// New creates an Indexer writing to sink. A nil logger discards output.
func New(m syntax.Materializer, sink graph.Sink, logger *log.Logger) *Indexer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Indexer{
		materializer: m,
		sink:         sink,
		projector:    graph.NewProjector(graph.WithLogger(logger)),
		logger:       logger,
	}
}

// Run parses req.Source, resets req.Namespace and projects the tree into it.
// The parse happens first so a rejected source leaves the previous graph in
// place. An empty namespace means graph.DefaultNamespace.
func (ix *Indexer) Run(ctx context.Context, req Request) (*Report, error) {
	ns := req.Namespace
	if ns == "" {
		ns = graph.DefaultNamespace
	}
	report := &Report{
		RunID:     uuid.NewString(),
		Namespace: ns,
		Language:  string(req.Language),
	}
	start := time.Now()
	logger := ix.logger.With("run", report.RunID, "namespace", ns, "language", req.Language)
	logger.Info("indexing started", "bytes", len(req.Source))

	tree, err := ix.materializer.Parse(ctx, req.Source, req.Language)
	if err != nil {
		logger.Error("parse failed", "err", err)
		return nil, &StageError{Stage: StageParse, Err: err}
	}
	report.Nodes = tree.Len()
	report.HasSyntaxErrors = tree.HasError()
	if report.HasSyntaxErrors {
		logger.Warn("source contains syntax errors; projecting recovered tree")
	}

	if err := ix.sink.ResetNamespace(ctx, ns); err != nil {
		logger.Error("reset failed", "err", err)
		return nil, &StageError{Stage: StageReset, Err: err}
	}

	stats, err := ix.projector.Project(ctx, tree, ix.sink)
	report.Vertices = stats.Vertices
	report.Edges = stats.Edges
	report.Duration = time.Since(start)
	if err != nil {
		logger.Error("projection aborted", "vertices", stats.Vertices, "edges", stats.Edges, "err", err)
		return report, &StageError{Stage: StageProject, Err: err}
	}

	logger.Info("indexing finished",
		"nodes", report.Nodes,
		"vertices", report.Vertices,
		"edges", report.Edges,
		"duration", report.Duration,
	)
	return report, nil
}
