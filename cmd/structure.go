package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/agentic-research/eraload/internal/config"
	"github.com/agentic-research/eraload/internal/graph"
	"github.com/agentic-research/eraload/internal/ingest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type structureOptions struct {
	Input    string
	Out      string
	SQLite   string
	Selector string
}

var structureOpts structureOptions

var structureCmd = &cobra.Command{
	Use:   "structure ROWS_FILE",
	Short: "Build structure-builder XML from the FOR code discipline matrix",
	Long: `Reads rows with (at least) the classification, code and title columns, e.g.

  cluster_abbrev,for_code,for_title
  MIC,0101,Pure Mathematics
  PCE,0202,"Atomic, Molecular, Nuclear, Particle and Plasma Physics"

and writes XML suitable for the DSpace structure-builder tool. ROWS_FILE may
be .csv, .json (see --selector) or a SQLite database with a records table.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		opts := structureOpts
		opts.Input = args[0]
		return runStructure(cfg, opts, cmd.OutOrStdout(), logger)
	},
}

func init() {
	structureCmd.Flags().StringVarP(&structureOpts.Out, "out", "o", "", "Write XML to this file instead of stdout")
	structureCmd.Flags().StringVar(&structureOpts.SQLite, "sqlite", "", "Also write a snapshot of the tree to this SQLite database")
	structureCmd.Flags().StringVar(&structureOpts.Selector, "selector", ingest.DefaultSelector, "JSONPath selecting row objects in a .json input")
	rootCmd.AddCommand(structureCmd)
}

func runStructure(cfg *config.Config, opts structureOptions, stdout io.Writer, log *zap.Logger) error {
	start := time.Now()
	src, err := ingest.OpenSource(opts.Input, opts.Selector)
	if err != nil {
		return err
	}

	tree, err := ingest.NewEngine(cfg.Structure, log).Build(src)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.Input, err)
	}

	if opts.SQLite != "" {
		if err := graph.WriteSQLite(opts.SQLite, tree); err != nil {
			return err
		}
		log.Info("Wrote tree snapshot", zap.String("path", opts.SQLite))
	}

	w, closeOut, err := openOutput(opts.Out, stdout)
	if err != nil {
		return err
	}
	if err := graph.WriteXML(w, tree); err != nil {
		_ = closeOut()
		return fmt.Errorf("write xml: %w", err)
	}
	if err := closeOut(); err != nil {
		return err
	}

	log.Info("Structure written",
		zap.String("input", opts.Input),
		zap.Int("nodes", tree.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
