package syntax

// Cursor walks a Tree the way a tree-sitter TreeCursor does: it starts on a
// node and can never move above it.
type Cursor struct {
	tree *Tree
	// path[i] is the slot index taken to reach depth i+1.
	path []int
	ids  []NodeID
}

func newCursor(t *Tree, start NodeID) *Cursor {
	return &Cursor{tree: t, ids: []NodeID{start}}
}

// Node returns the node under the cursor.
func (c *Cursor) Node() *Node {
	return c.tree.Node(c.ids[len(c.ids)-1])
}

// Depth returns how many levels below the starting node the cursor is.
func (c *Cursor) Depth() int {
	return len(c.path)
}

// FieldName returns the field of the slot the cursor entered the current
// node through. It is empty on the starting node and on positional children.
func (c *Cursor) FieldName() string {
	if len(c.path) == 0 {
		return ""
	}
	parent := c.tree.Node(c.ids[len(c.ids)-2])
	return parent.Children[c.path[len(c.path)-1]].Field
}

// GotoFirstChild moves to the first child of the current node.
func (c *Cursor) GotoFirstChild() bool {
	n := c.Node()
	if n == nil || len(n.Children) == 0 {
		return false
	}
	c.path = append(c.path, 0)
	c.ids = append(c.ids, n.Children[0].ID)
	return true
}

// GotoNextSibling moves to the next slot of the current node's parent.
func (c *Cursor) GotoNextSibling() bool {
	if len(c.path) == 0 {
		return false
	}
	parent := c.tree.Node(c.ids[len(c.ids)-2])
	next := c.path[len(c.path)-1] + 1
	if next >= len(parent.Children) {
		return false
	}
	c.path[len(c.path)-1] = next
	c.ids[len(c.ids)-1] = parent.Children[next].ID
	return true
}

// GotoParent moves back up one level.
func (c *Cursor) GotoParent() bool {
	if len(c.path) == 0 {
		return false
	}
	c.path = c.path[:len(c.path)-1]
	c.ids = c.ids[:len(c.ids)-1]
	return true
}
