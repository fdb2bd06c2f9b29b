package graph

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dusk-indust/treegraph/internal/syntax"
	"github.com/iancoleman/strcase"
)

// RelationChild is the generic parent-to-child relation emitted for every
// structural pair.
const RelationChild = "CHILD"

// VertexLabel is the label every projected syntax node carries.
const VertexLabel = "SyntaxNode"

// DefaultNamespace is the namespace used when none is configured.
const DefaultNamespace = "index"

// --- Models ---

// Vertex is the persisted projection of one syntax node.
type Vertex struct {
	ID          int64  `json:"id"`
	Text        string `json:"text"`
	Kind        string `json:"kind"`
	Named       bool   `json:"named"`
	StartRow    int64  `json:"startRow"`
	StartColumn int64  `json:"startColumn"`
	StartByte   int64  `json:"startByte"`
	EndRow      int64  `json:"endRow"`
	EndColumn   int64  `json:"endColumn"`
	EndByte     int64  `json:"endByte"`
}

// Edge is a directed, labeled parent-to-child relation.
type Edge struct {
	ParentID int64  `json:"parentId"`
	ChildID  int64  `json:"childId"`
	Label    string `json:"label"`
}

// Snapshot is the full content of one namespace. Vertices are ordered by ID
// and edges by (ParentID, ChildID, Label).
type Snapshot struct {
	Namespace string   `json:"namespace"`
	Vertices  []Vertex `json:"vertices"`
	Edges     []Edge   `json:"edges"`
}

// Stats summarizes one projection.
type Stats struct {
	Vertices int `json:"vertices"`
	Edges    int `json:"edges"`
}

// VertexFromNode builds the vertex for node id of tree.
func VertexFromNode(tree *syntax.Tree, id syntax.NodeID) Vertex {
	n := tree.Node(id)
	return Vertex{
		ID:          int64(n.ID),
		Text:        tree.Text(n.ID),
		Kind:        n.Kind,
		Named:       n.Named,
		StartRow:    int64(n.Span.StartRow),
		StartColumn: int64(n.Span.StartColumn),
		StartByte:   int64(n.Span.StartByte),
		EndRow:      int64(n.Span.EndRow),
		EndColumn:   int64(n.Span.EndColumn),
		EndByte:     int64(n.Span.EndByte),
	}
}

// RelationLabel converts a grammar field name into an edge label in upper
// snake case: "typeParameters" and "type_parameters" both become
// "TYPE_PARAMETERS". An empty field yields an empty label.
func RelationLabel(field string) string {
	label := strcase.ToScreamingSnake(strings.TrimSpace(field))
	label = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, label)
	return strings.Trim(label, "_")
}

// labelPattern matches labels that backends can splice into queries.
var labelPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// validateLabel rejects labels that are not safe identifiers.
func validateLabel(label string) error {
	if !labelPattern.MatchString(label) {
		return fmt.Errorf("%w: invalid relation label %q", ErrConstraintViolation, label)
	}
	return nil
}

// EdgesFor returns the edges emitted for one parent-child slot: CHILD, plus
// the field relation when the slot has a field name.
func EdgesFor(parent, child int64, field string) []Edge {
	edges := []Edge{{ParentID: parent, ChildID: child, Label: RelationChild}}
	if label := RelationLabel(field); label != "" {
		edges = append(edges, Edge{ParentID: parent, ChildID: child, Label: label})
	}
	return edges
}

// namespacePattern allows identifiers without leading, trailing, or doubled
// underscores. Backends derive table and graph names from the namespace.
var namespacePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*(_[A-Za-z0-9]+)*$`)

// ValidateNamespace reports whether name can be used as a namespace.
func ValidateNamespace(name string) error {
	if !namespacePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, name)
	}
	return nil
}

// sortSnapshot puts vertices and edges into their canonical order.
func sortSnapshot(s *Snapshot) {
	sort.Slice(s.Vertices, func(i, j int) bool { return s.Vertices[i].ID < s.Vertices[j].ID })
	sort.Slice(s.Edges, func(i, j int) bool {
		a, b := s.Edges[i], s.Edges[j]
		if a.ParentID != b.ParentID {
			return a.ParentID < b.ParentID
		}
		if a.ChildID != b.ChildID {
			return a.ChildID < b.ChildID
		}
		return a.Label < b.Label
	})
}
