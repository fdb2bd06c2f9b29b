package syntax

// NodeID is a node's position in the preorder arena of its Tree. The root is
// always 0. IDs are stable for the lifetime of one Tree only.
type NodeID int

// NoParent is the Parent of the root node.
const NoParent NodeID = -1

// Span locates a node in the source. Bytes are half-open; rows and columns
// are zero-indexed, columns counted in bytes.
type Span struct {
	StartByte   int `json:"startByte"`
	EndByte     int `json:"endByte"`
	StartRow    int `json:"startRow"`
	StartColumn int `json:"startColumn"`
	EndRow      int `json:"endRow"`
	EndColumn   int `json:"endColumn"`
}

// Child is one slot in a parent's ordered child list. Field is the
// grammatical role of the slot, empty for positional members.
type Child struct {
	ID    NodeID
	Field string
}

// Node is a single syntax node. Nodes are owned by their Tree and must be
// treated as read-only.
type Node struct {
	ID        NodeID
	Kind      string
	Named     bool
	IsError   bool
	IsMissing bool
	Span      Span
	Parent    NodeID
	Children  []Child
}

// Tree is an immutable concrete syntax tree flattened into a preorder arena.
type Tree struct {
	lang   Language
	source []byte
	nodes  []Node
}

// Language returns the grammar the tree was parsed with.
func (t *Tree) Language() Language { return t.lang }

// Source returns the text the tree was parsed from.
func (t *Tree) Source() []byte { return t.source }

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Root returns the root node, or nil for an empty tree.
func (t *Tree) Root() *Node {
	return t.Node(0)
}

// Node returns the node with the given ID, or nil if it is out of range.
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id]
}

// Text returns the exact source bytes covered by the node's span.
func (t *Tree) Text(id NodeID) string {
	n := t.Node(id)
	if n == nil {
		return ""
	}
	start, end := n.Span.StartByte, n.Span.EndByte
	if start < 0 {
		start = 0
	}
	if end > len(t.source) {
		end = len(t.source)
	}
	if start >= end {
		return ""
	}
	return string(t.source[start:end])
}

// PairCount returns the number of structural parent-child pairs, which is
// Len()-1 for any non-empty tree.
func (t *Tree) PairCount() int {
	total := 0
	for i := range t.nodes {
		total += len(t.nodes[i].Children)
	}
	return total
}

// HasError reports whether the parser had to recover from syntax errors.
func (t *Tree) HasError() bool {
	for i := range t.nodes {
		if t.nodes[i].IsError || t.nodes[i].IsMissing {
			return true
		}
	}
	return false
}

// Walk returns a cursor positioned on the root.
func (t *Tree) Walk() *Cursor {
	return newCursor(t, 0)
}

// ---------- Arena construction ----------

// arena accumulates nodes in preorder. Callers must add a parent before any
// of its children.
type arena struct {
	nodes []Node
}

func (a *arena) add(n Node, parent NodeID, field string) NodeID {
	id := NodeID(len(a.nodes))
	n.ID = id
	n.Parent = parent
	n.Children = nil
	a.nodes = append(a.nodes, n)
	if parent != NoParent {
		p := &a.nodes[parent]
		p.Children = append(p.Children, Child{ID: id, Field: field})
	}
	return id
}

func (a *arena) tree(lang Language, source []byte) *Tree {
	return &Tree{lang: lang, source: source, nodes: a.nodes}
}
