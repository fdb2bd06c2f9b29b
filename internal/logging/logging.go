// Package logging builds the console logger shared by the CLI, the indexer
// and the MCP server.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Options configures New.
type Options struct {
	// Debug lowers the level from info to debug.
	Debug bool

	// Output defaults to stderr. Stdout is reserved for command output and
	// the MCP stdio transport.
	Output io.Writer

	// Prefix is printed before every message when set.
	Prefix string
}

// New creates a logger writing timestamped key-value lines.
func New(opts Options) *log.Logger {
	level := log.InfoLevel
	if opts.Debug {
		level = log.DebugLevel
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Prefix:          opts.Prefix,
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
