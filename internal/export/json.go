package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/treegraph/internal/graph"
)

// GraphExport is the top-level JSON export structure.
type GraphExport struct {
	Namespace  string         `json:"namespace"`
	ExportedAt string         `json:"exportedAt"`
	Vertices   []graph.Vertex `json:"vertices"`
	Edges      []graph.Edge   `json:"edges"`
}

// NewGraphExport wraps a snapshot with export metadata.
func NewGraphExport(snap *graph.Snapshot) *GraphExport {
	return &GraphExport{
		Namespace:  snap.Namespace,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Vertices:   snap.Vertices,
		Edges:      snap.Edges,
	}
}

// WriteJSON writes the snapshot as indented JSON.
func WriteJSON(w io.Writer, snap *graph.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewGraphExport(snap)); err != nil {
		return fmt.Errorf("encode graph export: %w", err)
	}
	return nil
}
