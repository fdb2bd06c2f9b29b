package syntax

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Language identifies the grammar used to parse a source text.
type Language string

const (
	LangGo         Language = "go"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
)

// extToLanguage maps file extensions to the grammar that parses them.
var extToLanguage = map[string]Language{
	".go":  LangGo,
	".ts":  LangTypeScript,
	".mts": LangTypeScript,
	".cts": LangTypeScript,
	".tsx": LangTSX,
	".py":  LangPython,
	".rs":  LangRust,
}

// ParseLanguage normalizes a user-supplied language name ("TypeScript", "ts",
// "golang") into a Language. Unknown names return ErrGrammarUnavailable.
func ParseLanguage(name string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "go", "golang":
		return LangGo, nil
	case "typescript", "ts":
		return LangTypeScript, nil
	case "tsx":
		return LangTSX, nil
	case "python", "py":
		return LangPython, nil
	case "rust", "rs":
		return LangRust, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrGrammarUnavailable, name)
	}
}

// LanguageForPath picks a language from the file extension of path.
func LanguageForPath(path string) (Language, error) {
	lang, ok := extToLanguage[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("%w: no grammar for %s", ErrGrammarUnavailable, filepath.Base(path))
	}
	return lang, nil
}
