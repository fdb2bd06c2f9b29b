package syntax

import (
	"fmt"
	"sort"
)

// Spec describes a node for Build. Start and End are byte offsets into the
// source; rows and columns are derived from them.
type Spec struct {
	Kind     string
	Named    bool
	Field    string
	Start    int
	End      int
	Children []Spec
}

// Build constructs a Tree from a hand-written Spec. It lets callers exercise
// the projector without a grammar.
func Build(lang Language, source []byte, root Spec) (*Tree, error) {
	lines := lineStarts(source)
	var a arena
	var add func(s Spec, parent NodeID) error
	add = func(s Spec, parent NodeID) error {
		if s.Kind == "" {
			return fmt.Errorf("syntax: spec node without kind")
		}
		if s.Start < 0 || s.End < s.Start || s.End > len(source) {
			return fmt.Errorf("syntax: %s span [%d,%d) outside source of %d bytes",
				s.Kind, s.Start, s.End, len(source))
		}
		startRow, startCol := position(lines, s.Start)
		endRow, endCol := position(lines, s.End)
		id := a.add(Node{
			Kind:  s.Kind,
			Named: s.Named,
			Span: Span{
				StartByte:   s.Start,
				EndByte:     s.End,
				StartRow:    startRow,
				StartColumn: startCol,
				EndRow:      endRow,
				EndColumn:   endCol,
			},
			IsError: s.Kind == "ERROR",
		}, parent, s.Field)
		for _, c := range s.Children {
			if err := add(c, id); err != nil {
				return err
			}
		}
		return nil
	}
	if err := add(root, NoParent); err != nil {
		return nil, err
	}
	src := make([]byte, len(source))
	copy(src, source)
	return a.tree(lang, src), nil
}

// lineStarts returns the byte offset at which each line begins.
func lineStarts(source []byte) []int {
	starts := []int{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// position converts a byte offset into a zero-indexed row and byte column.
func position(lines []int, offset int) (int, int) {
	row := sort.Search(len(lines), func(i int) bool { return lines[i] > offset }) - 1
	return row, offset - lines[row]
}
