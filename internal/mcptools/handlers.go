package mcptools

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dusk-indust/treegraph/internal/export"
	"github.com/dusk-indust/treegraph/internal/graph"
	"github.com/dusk-indust/treegraph/internal/indexer"
	"github.com/dusk-indust/treegraph/internal/syntax"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Export formats accepted by export_graph.
const (
	FormatMermaid = "mermaid"
	FormatTree    = "tree"
)

// GraphService holds the indexer and the sink reader used by MCP tool
// handlers. Tool calls are serialized because the sink holds a single
// connection.
type GraphService struct {
	mu        sync.Mutex
	indexer   *indexer.Indexer
	dumper    graph.Dumper
	namespace string
	language  syntax.Language
}

// NewGraphService creates a GraphService. namespace and language are the
// defaults for tool calls that leave them empty. dumper may be nil when the
// sink cannot be read back; export_graph then fails.
func NewGraphService(ix *indexer.Indexer, dumper graph.Dumper, namespace string, language syntax.Language) *GraphService {
	if namespace == "" {
		namespace = graph.DefaultNamespace
	}
	return &GraphService{indexer: ix, dumper: dumper, namespace: namespace, language: language}
}

// IndexSource parses the given source text and replaces a namespace with its
// graph. Returns the run report.
func (s *GraphService) IndexSource(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexSourceInput,
) (*mcp.CallToolResult, IndexSourceOutput, error) {
	if input.Source == "" {
		return nil, IndexSourceOutput{}, fmt.Errorf("source is required")
	}
	lang := s.language
	if input.Language != "" {
		l, err := syntax.ParseLanguage(input.Language)
		if err != nil {
			return nil, IndexSourceOutput{}, err
		}
		lang = l
	}
	ns := input.Namespace
	if ns == "" {
		ns = s.namespace
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.indexer.Run(ctx, indexer.Request{
		Namespace: ns,
		Language:  lang,
		Source:    []byte(input.Source),
	})
	if err != nil {
		return nil, IndexSourceOutput{}, err
	}
	return nil, IndexSourceOutput{Report: *report}, nil
}

// ExportGraph reads a namespace back and renders it as a Mermaid diagram or
// an indented text tree.
func (s *GraphService) ExportGraph(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExportGraphInput,
) (*mcp.CallToolResult, ExportGraphOutput, error) {
	if s.dumper == nil {
		return nil, ExportGraphOutput{}, errors.New("the configured sink does not support export")
	}
	ns := input.Namespace
	if ns == "" {
		ns = s.namespace
	}
	format := input.Format
	if format == "" {
		format = FormatMermaid
	}
	if format != FormatMermaid && format != FormatTree {
		return nil, ExportGraphOutput{}, fmt.Errorf("unknown format %q: use %s or %s", format, FormatMermaid, FormatTree)
	}

	s.mu.Lock()
	snap, err := s.dumper.Dump(ctx, ns)
	s.mu.Unlock()
	if err != nil {
		return nil, ExportGraphOutput{}, fmt.Errorf("dump %s: %w", ns, err)
	}

	out := ExportGraphOutput{
		Namespace: ns,
		Format:    format,
		Vertices:  len(snap.Vertices),
		Edges:     len(snap.Edges),
	}
	if format == FormatTree {
		out.Diagram = export.RenderTree(snap)
	} else {
		out.Diagram = export.RenderMermaid(snap)
	}
	return nil, out, nil
}
