package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/treegraph/internal/graph"
)

// maxLabelText bounds the source text shown inside a Mermaid node.
const maxLabelText = 40

// GenerateMermaid dumps namespace from d and renders it with RenderMermaid.
func GenerateMermaid(ctx context.Context, d graph.Dumper, namespace string) (string, error) {
	snap, err := d.Dump(ctx, namespace)
	if err != nil {
		return "", fmt.Errorf("dump %s: %w", namespace, err)
	}
	return RenderMermaid(snap), nil
}

// RenderMermaid produces a Mermaid graph TD diagram from a snapshot. CHILD
// edges become solid arrows; field relations become dotted arrows labeled
// with the relation name.
func RenderMermaid(snap *graph.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, v := range snap.Vertices {
		label := v.Kind
		if v.Named && v.Text != "" && v.Text != v.Kind {
			label += ": " + clip(v.Text)
		}
		sb.WriteString(fmt.Sprintf("  N%d[\"%s\"]\n", v.ID, escapeMermaid(label)))
	}

	for _, e := range snap.Edges {
		if e.Label == graph.RelationChild {
			sb.WriteString(fmt.Sprintf("  N%d --> N%d\n", e.ParentID, e.ChildID))
			continue
		}
		sb.WriteString(fmt.Sprintf("  N%d -.->|%s| N%d\n", e.ParentID, e.Label, e.ChildID))
	}
	return sb.String()
}

// clip collapses whitespace runs and truncates long text.
func clip(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > maxLabelText {
		return string(r[:maxLabelText-3]) + "..."
	}
	return text
}

// escapeMermaid replaces characters Mermaid treats as syntax inside a quoted
// label with HTML entity codes.
func escapeMermaid(s string) string {
	return strings.NewReplacer(
		`"`, "#quot;",
		"<", "#lt;",
		">", "#gt;",
	).Replace(s)
}
