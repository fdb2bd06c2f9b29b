package mcptools

import "github.com/dusk-indust/treegraph/internal/indexer"

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// IndexSourceInput is the input for the index_source MCP tool.
type IndexSourceInput struct {
	Source    string `json:"source" jsonschema:"the source text to parse and project"`
	Language  string `json:"language,omitempty" jsonschema:"grammar to parse with: go, typescript, tsx, python, rust (default: the server's configured language)"`
	Namespace string `json:"namespace,omitempty" jsonschema:"graph namespace to replace (default: the server's configured namespace)"`
}

// IndexSourceOutput is the result of the index_source MCP tool.
type IndexSourceOutput struct {
	Report indexer.Report `json:"report"`
}

// ExportGraphInput is the input for the export_graph MCP tool.
type ExportGraphInput struct {
	Namespace string `json:"namespace,omitempty" jsonschema:"graph namespace to export (default: the server's configured namespace)"`
	Format    string `json:"format,omitempty" jsonschema:"output format: mermaid or tree (default: mermaid)"`
}

// ExportGraphOutput is the result of the export_graph MCP tool.
type ExportGraphOutput struct {
	Namespace string `json:"namespace"`
	Format    string `json:"format"`
	Vertices  int    `json:"vertices"`
	Edges     int    `json:"edges"`
	Diagram   string `json:"diagram"`
}
