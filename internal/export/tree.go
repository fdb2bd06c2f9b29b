package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/treegraph/internal/graph"
)

// RenderTree prints a snapshot as an indented tree following CHILD edges.
// Each line shows the field relations that point at the node, its kind, its
// span as row:column pairs and, for named leaves, its text.
func RenderTree(snap *graph.Snapshot) string {
	byID := make(map[int64]graph.Vertex, len(snap.Vertices))
	for _, v := range snap.Vertices {
		byID[v.ID] = v
	}

	children := make(map[int64][]int64)
	fields := make(map[[2]int64][]string)
	hasParent := make(map[int64]bool)
	for _, e := range snap.Edges {
		if e.Label == graph.RelationChild {
			children[e.ParentID] = append(children[e.ParentID], e.ChildID)
			hasParent[e.ChildID] = true
			continue
		}
		key := [2]int64{e.ParentID, e.ChildID}
		fields[key] = append(fields[key], strings.ToLower(e.Label))
	}
	// Vertex IDs follow source order.
	for _, ids := range children {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	var sb strings.Builder
	var walk func(id, parent int64, depth int)
	walk = func(id, parent int64, depth int) {
		v := byID[id]
		sb.WriteString(strings.Repeat("  ", depth))
		if names := fields[[2]int64{parent, id}]; len(names) > 0 {
			sb.WriteString(strings.Join(names, ",") + ": ")
		}
		sb.WriteString(fmt.Sprintf("%s [%d:%d-%d:%d]", v.Kind, v.StartRow, v.StartColumn, v.EndRow, v.EndColumn))
		if v.Named && len(children[id]) == 0 {
			sb.WriteString(fmt.Sprintf(" %q", clip(v.Text)))
		}
		sb.WriteString("\n")
		for _, c := range children[id] {
			walk(c, id, depth+1)
		}
	}

	for _, v := range snap.Vertices {
		if !hasParent[v.ID] {
			walk(v.ID, -1, 0)
		}
	}
	return sb.String()
}
