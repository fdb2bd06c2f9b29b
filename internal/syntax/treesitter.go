package syntax

import (
	"context"
	"fmt"
	"sort"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Compile-time check that TreeSitterMaterializer satisfies Materializer.
var _ Materializer = (*TreeSitterMaterializer)(nil)

// TreeSitterMaterializer implements Materializer using tree-sitter grammars.
// A new tree-sitter parser is created per Parse call and the resulting C tree
// is released before Parse returns, so the returned Tree holds no C memory.
type TreeSitterMaterializer struct {
	languages map[Language]*tree_sitter.Language
}

// NewTreeSitterMaterializer creates a TreeSitterMaterializer with Go,
// TypeScript, TSX, Python, and Rust grammars registered.
func NewTreeSitterMaterializer() *TreeSitterMaterializer {
	return &TreeSitterMaterializer{
		languages: map[Language]*tree_sitter.Language{
			LangGo:         tree_sitter.NewLanguage(tree_sitter_go.Language()),
			LangTypeScript: tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
			LangTSX:        tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
			LangPython:     tree_sitter.NewLanguage(tree_sitter_python.Language()),
			LangRust:       tree_sitter.NewLanguage(tree_sitter_rust.Language()),
		},
	}
}

// Parse parses source with the grammar registered for lang and flattens the
// result into a Tree.
func (m *TreeSitterMaterializer) Parse(ctx context.Context, source []byte, lang Language) (*Tree, error) {
	tsLang, ok := m.languages[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGrammarUnavailable, lang)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseRejected, err)
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(tsLang); err != nil {
		return nil, fmt.Errorf("%w: set language %s: %w", ErrGrammarUnavailable, lang, err)
	}

	tsTree := parser.Parse(source, nil)
	if tsTree == nil {
		return nil, fmt.Errorf("%w: tree-sitter returned nil tree for %s input", ErrParseRejected, lang)
	}
	defer tsTree.Close()

	src := make([]byte, len(source))
	copy(src, source)
	return flatten(tsTree.RootNode(), lang, src), nil
}

// SupportedLanguages returns the registered languages in sorted order.
func (m *TreeSitterMaterializer) SupportedLanguages() []Language {
	langs := make([]Language, 0, len(m.languages))
	for l := range m.languages {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// flatten copies a tree-sitter tree into a preorder arena using a single
// cursor walk.
func flatten(root *tree_sitter.Node, lang Language, source []byte) *Tree {
	var a arena

	cursor := root.Walk()
	defer cursor.Close()

	var parents []NodeID
	for {
		parent := NoParent
		if len(parents) > 0 {
			parent = parents[len(parents)-1]
		}
		id := a.add(convertNode(cursor.Node()), parent, cursor.FieldName())

		if cursor.GotoFirstChild() {
			parents = append(parents, id)
			continue
		}
		for !cursor.GotoNextSibling() {
			if !cursor.GotoParent() {
				return a.tree(lang, source)
			}
			parents = parents[:len(parents)-1]
		}
	}
}

func convertNode(n *tree_sitter.Node) Node {
	start := n.StartPosition()
	end := n.EndPosition()
	return Node{
		Kind:      n.Kind(),
		Named:     n.IsNamed(),
		IsError:   n.IsError(),
		IsMissing: n.IsMissing(),
		Span: Span{
			StartByte:   int(n.StartByte()),
			EndByte:     int(n.EndByte()),
			StartRow:    int(start.Row),
			StartColumn: int(start.Column),
			EndRow:      int(end.Row),
			EndColumn:   int(end.Column),
		},
	}
}
