package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/dusk-indust/treegraph/internal/config"
	"github.com/dusk-indust/treegraph/internal/export"
	"github.com/dusk-indust/treegraph/internal/graph"
	"github.com/spf13/cobra"
)

// errExportNeedsPersistentSink rejects export against a sink that starts
// empty on every invocation.
var errExportNeedsPersistentSink = errors.New("export needs a persistent sink (--db or --sink age)")

// Output formats for index --print and export --format.
const (
	printMermaid = "mermaid"
	printTree    = "tree"
	printJSON    = "json"
)

func newExportCmd(opts *cliOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print a stored namespace as Mermaid, an indented tree or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case opts.cfg.Sink == config.SinkMemory,
				opts.cfg.Sink == config.SinkKuzu && opts.cfg.DBPath == "":
				return errExportNeedsPersistentSink
			}
			ctx := cmd.Context()
			sink, err := opts.openSink(ctx)
			if err != nil {
				return err
			}
			defer sink.Close()

			dumper, ok := sink.(graph.Dumper)
			if !ok {
				return fmt.Errorf("sink %s cannot be read back", opts.cfg.Sink)
			}
			snap, err := dumper.Dump(ctx, opts.cfg.Namespace)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			return writeSnapshot(cmd.OutOrStdout(), snap, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", printMermaid, "output format: mermaid, tree or json")
	return cmd
}

func writeSnapshot(w io.Writer, snap *graph.Snapshot, format string) error {
	switch format {
	case printMermaid:
		_, err := io.WriteString(w, export.RenderMermaid(snap))
		return err
	case printTree:
		_, err := io.WriteString(w, export.RenderTree(snap))
		return err
	case printJSON:
		return export.WriteJSON(w, snap)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
