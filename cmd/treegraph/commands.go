package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dusk-indust/treegraph/internal/config"
	"github.com/dusk-indust/treegraph/internal/graph"
	"github.com/dusk-indust/treegraph/internal/logging"
	"github.com/spf13/cobra"
)

// cliOptions holds the persistent flags and the configuration resolved from
// them before any subcommand runs.
type cliOptions struct {
	ConfigDir string
	Sink      string
	Namespace string
	DBPath    string
	DSN       string
	Verbose   bool

	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "treegraph",
		Short: "Project tree-sitter syntax trees into a property graph",
		Long: `treegraph parses a source text and stores its concrete syntax tree as a
property graph: one vertex per syntax node, a CHILD edge per parent-child
pair and one extra labeled edge per grammar field.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.ConfigDir, "config-dir", ".", "directory holding treegraph.yml and .env")
	pf.StringVar(&opts.Sink, "sink", "", "graph backend: kuzu, age or memory")
	pf.StringVar(&opts.Namespace, "namespace", "", "graph namespace to write or read")
	pf.StringVar(&opts.DBPath, "db", "", "Kuzu database directory (empty: in-memory)")
	pf.StringVar(&opts.DSN, "dsn", "", "PostgreSQL connection string for the age sink")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newIndexCmd(opts),
		newExportCmd(opts),
		newServeMCPCmd(opts),
	)
	return root
}

// resolve loads the configuration and lets explicitly set flags override it.
func (o *cliOptions) resolve(cmd *cobra.Command) error {
	if err := config.LoadEnv(o.ConfigDir); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(o.ConfigDir)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("sink") {
		cfg.Sink = o.Sink
	}
	if flags.Changed("namespace") {
		cfg.Namespace = o.Namespace
	}
	if flags.Changed("db") {
		cfg.DBPath = o.DBPath
	}
	if flags.Changed("dsn") {
		cfg.DSN = o.DSN
	}
	if flags.Changed("verbose") {
		cfg.Verbose = o.Verbose
	}
	if flags.Lookup("lang") != nil && flags.Changed("lang") {
		lang, err := flags.GetString("lang")
		if err != nil {
			return err
		}
		cfg.Language = lang
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = logging.New(logging.Options{Debug: cfg.Verbose, Output: cmd.ErrOrStderr()})
	return nil
}

// openSink connects to the configured backend.
func (o *cliOptions) openSink(ctx context.Context) (graph.Sink, error) {
	switch o.cfg.Sink {
	case config.SinkMemory:
		return graph.NewMemSink(), nil
	case config.SinkAGE:
		s, err := graph.NewAGESink(ctx, o.cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.SinkKuzu:
		return openKuzuSink(o.cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown sink %q", o.cfg.Sink)
	}
}
