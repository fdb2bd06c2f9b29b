package syntax

import "context"

// Materializer turns source text into a syntax tree.
// Implementations: TreeSitterMaterializer (production), StaticMaterializer (testing).
type Materializer interface {
	// Parse selects the grammar for lang and parses source. Recoverable syntax
	// errors still produce a tree; ErrGrammarUnavailable and ErrParseRejected
	// are the only failures.
	Parse(ctx context.Context, source []byte, lang Language) (*Tree, error)

	// SupportedLanguages returns the languages this materializer can handle.
	SupportedLanguages() []Language
}

// StaticMaterializer returns prebuilt trees keyed by language, ignoring the
// source text. It stands in for a real grammar in tests.
type StaticMaterializer map[Language]*Tree

// Parse returns the tree registered for lang.
func (m StaticMaterializer) Parse(_ context.Context, _ []byte, lang Language) (*Tree, error) {
	t, ok := m[lang]
	if !ok {
		return nil, ErrGrammarUnavailable
	}
	if t == nil {
		return nil, ErrParseRejected
	}
	return t, nil
}

// SupportedLanguages returns the registered languages.
func (m StaticMaterializer) SupportedLanguages() []Language {
	out := make([]Language, 0, len(m))
	for l := range m {
		out = append(out, l)
	}
	return out
}
