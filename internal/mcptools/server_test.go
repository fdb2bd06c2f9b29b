package mcptools

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/dusk-indust/treegraph/internal/graph"
	"github.com/dusk-indust/treegraph/internal/indexer"
	"github.com/dusk-indust/treegraph/internal/logging"
	"github.com/dusk-indust/treegraph/internal/syntax"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = "function double(x: number) { return x * 2; }\ndouble(a)\n"

// setupServerClient wires an MCP server and client together using in-memory
// transports over a MemSink and the tree-sitter materializer.
func setupServerClient(t *testing.T) (*mcp.ClientSession, *graph.MemSink) {
	t.Helper()

	sink := graph.NewMemSink()
	ix := indexer.New(syntax.NewTreeSitterMaterializer(), sink, logging.Discard())
	svc := NewGraphService(ix, sink, "", syntax.LangTypeScript)
	server := NewGraphMCPServer(svc)

	st, ct := mcp.NewInMemoryTransports()
	ctx := context.Background()

	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		session.Close()
		_ = sink.Close()
	})
	return session, sink
}

// decode converts a tool's structured content into out.
func decode(t *testing.T, result *mcp.CallToolResult, out any) {
	t.Helper()
	require.NotNil(t, result.StructuredContent, "expected structured content")
	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

// requireToolError accepts either a protocol error or an IsError result.
func requireToolError(t *testing.T, result *mcp.CallToolResult, err error) {
	t.Helper()
	if err != nil {
		return
	}
	require.NotNil(t, result)
	assert.True(t, result.IsError, "expected the tool call to fail")
}

func TestMCPListTools(t *testing.T) {
	session, _ := setupServerClient(t)

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	sort.Strings(names)
	assert.Equal(t, []string{"export_graph", "index_source"}, names)
}

func TestMCPIndexSource(t *testing.T) {
	session, sink := setupServerClient(t)
	ctx := context.Background()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "index_source",
		Arguments: IndexSourceInput{Source: sampleSource, Namespace: "sample"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError, "index_source should not return an error")

	var out IndexSourceOutput
	decode(t, result, &out)
	assert.Equal(t, "sample", out.Report.Namespace)
	assert.Equal(t, "typescript", out.Report.Language)
	assert.Greater(t, out.Report.Vertices, 0)
	assert.Equal(t, out.Report.Nodes, out.Report.Vertices)
	assert.NotEmpty(t, out.Report.RunID)

	snap, err := sink.Dump(ctx, "sample")
	require.NoError(t, err)
	assert.Len(t, snap.Vertices, out.Report.Vertices)
}

func TestMCPIndexSource_Errors(t *testing.T) {
	session, _ := setupServerClient(t)
	ctx := context.Background()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "index_source",
		Arguments: IndexSourceInput{},
	})
	requireToolError(t, result, err)

	result, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "index_source",
		Arguments: IndexSourceInput{Source: "x", Language: "cobol"},
	})
	requireToolError(t, result, err)

	result, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "index_source",
		Arguments: IndexSourceInput{Source: "x", Namespace: "not-valid"},
	})
	requireToolError(t, result, err)
}

func TestMCPExportGraph(t *testing.T) {
	session, _ := setupServerClient(t)
	ctx := context.Background()

	_, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "index_source",
		Arguments: IndexSourceInput{Source: "double(a)", Language: "ts"},
	})
	require.NoError(t, err)

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "export_graph",
		Arguments: ExportGraphInput{},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out ExportGraphOutput
	decode(t, result, &out)
	assert.Equal(t, graph.DefaultNamespace, out.Namespace)
	assert.Equal(t, FormatMermaid, out.Format)
	assert.Contains(t, out.Diagram, "graph TD")
	assert.Contains(t, out.Diagram, "-.->|ARGUMENTS|")

	result, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "export_graph",
		Arguments: ExportGraphInput{Format: FormatTree},
	})
	require.NoError(t, err)
	decode(t, result, &out)
	assert.Contains(t, out.Diagram, "program [")
	assert.Contains(t, out.Diagram, "function: identifier")

	result, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "export_graph",
		Arguments: ExportGraphInput{Format: "svg"},
	})
	requireToolError(t, result, err)

	result, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "export_graph",
		Arguments: ExportGraphInput{Namespace: "never_indexed"},
	})
	requireToolError(t, result, err)
}

func TestMCPCallUnknownTool(t *testing.T) {
	session, _ := setupServerClient(t)
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "nonexistent_tool",
		Arguments: map[string]any{},
	})
	requireToolError(t, result, err)
}

func TestRunHTTP_StopsOnCancel(t *testing.T) {
	sink := graph.NewMemSink()
	t.Cleanup(func() { _ = sink.Close() })
	svc := NewGraphService(indexer.New(syntax.StaticMaterializer{}, sink, nil), sink, "", syntax.LangGo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunHTTP(ctx, NewGraphMCPServer(svc), "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunHTTP did not return after cancel")
	}
}

func TestRunHTTP_ListenError(t *testing.T) {
	sink := graph.NewMemSink()
	svc := NewGraphService(indexer.New(syntax.StaticMaterializer{}, sink, nil), sink, "", syntax.LangGo)
	err := RunHTTP(context.Background(), NewGraphMCPServer(svc), "127.0.0.1:-1")
	assert.Error(t, err)
}
