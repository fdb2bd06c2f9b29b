package indexer

import "github.com/dusk-indust/treegraph/internal/syntax"

// SampleSource is the built-in TypeScript input indexed when no file is
// given. testdata/fixtures/double.ts holds the same text.
const SampleSource = "\n    function double(x: number, n: number = 2) {\n        return x * n;\n    }\n\n    double(a)\n"

// SampleLanguage is the language of SampleSource.
const SampleLanguage = syntax.LangTypeScript

// SampleRequest returns a request indexing SampleSource into namespace.
func SampleRequest(namespace string) Request {
	return Request{Namespace: namespace, Language: SampleLanguage, Source: []byte(SampleSource)}
}
