package main

import (
	"github.com/dusk-indust/treegraph/internal/graph"
	"github.com/dusk-indust/treegraph/internal/indexer"
	"github.com/dusk-indust/treegraph/internal/mcptools"
	"github.com/dusk-indust/treegraph/internal/syntax"
	"github.com/spf13/cobra"
)

func newServeMCPCmd(opts *cliOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Expose index_source and export_graph as MCP tools",
		Long: `serve-mcp runs an MCP server over stdio, or over streamable HTTP when
--http is given. All tool calls share one sink connection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sink, err := opts.openSink(ctx)
			if err != nil {
				return err
			}
			defer sink.Close()

			lang, err := opts.cfg.ParsedLanguage()
			if err != nil {
				return err
			}
			dumper, _ := sink.(graph.Dumper)
			ix := indexer.New(syntax.NewTreeSitterMaterializer(), sink, opts.logger)
			server := mcptools.NewGraphMCPServer(mcptools.NewGraphService(ix, dumper, opts.cfg.Namespace, lang))

			if addr == "" {
				opts.logger.Info("serving MCP on stdio", "sink", opts.cfg.Sink)
				return mcptools.RunStdio(ctx, server)
			}
			opts.logger.Info("serving MCP over HTTP", "addr", addr, "sink", opts.cfg.Sink)
			return mcptools.RunHTTP(ctx, server, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "http", "", "listen address for streamable HTTP (default: stdio)")
	return cmd
}
