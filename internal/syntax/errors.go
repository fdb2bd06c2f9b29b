package syntax

import "errors"

var (
	// ErrGrammarUnavailable indicates that no grammar is registered for the
	// requested language.
	ErrGrammarUnavailable = errors.New("grammar unavailable")

	// ErrParseRejected indicates that the parser produced no tree at all.
	// Inputs with recoverable syntax errors are not rejected: they yield a
	// tree containing ERROR or MISSING nodes instead.
	ErrParseRejected = errors.New("parse rejected")
)
