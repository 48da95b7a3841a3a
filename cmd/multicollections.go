package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/agentic-research/eraload/internal/catalog"
	"github.com/agentic-research/eraload/internal/config"
	"github.com/agentic-research/eraload/internal/membership"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type multiOptions struct {
	Target       string
	Previous     string
	Out          string
	ExclusiveOut string
	LookupDSN    string
}

var multiOpts multiOptions

var multiCmd = &cobra.Command{
	Use:   "multicollections TARGET_CSV [PREVIOUS_CSV]",
	Short: "Write a BMET CSV mapping items into more than one collection",
	Long: `TARGET_CSV lists the items and collections of the reporting year being
loaded. PREVIOUS_CSV lists the same for all earlier reporting years. Both have
the columns item_hdl,c_owner_hdl,c_others_hdl (configurable).

The output lists every item that must belong to more than one collection,
oldest owner first, in the item_hdl,col_hdls layout read by the DSpace batch
metadata editing tool.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		opts := multiOpts
		opts.Target = args[0]
		if len(args) == 2 {
			opts.Previous = args[1]
		}
		return runMulticollections(cmd.Context(), cfg, opts, cmd.OutOrStdout(), logger)
	},
}

func init() {
	multiCmd.Flags().StringVarP(&multiOpts.Out, "out", "o", "", "Write the BMET CSV to this file instead of stdout")
	multiCmd.Flags().StringVar(&multiOpts.ExclusiveOut, "exclusive-out", "", "Also write the target items that need no extra mapping")
	multiCmd.Flags().StringVar(&multiOpts.LookupDSN, "lookup-dsn", "", "Postgres DSN of the DSpace database; adds rmid, item_name and col_names columns")
	rootCmd.AddCommand(multiCmd)
}

func runMulticollections(ctx context.Context, cfg *config.Config, opts multiOptions, stdout io.Writer, log *zap.Logger) error {
	target, err := membership.LoadFile(opts.Target, cfg.Membership)
	if err != nil {
		return err
	}
	var prev *membership.Table
	if opts.Previous != "" {
		if prev, err = membership.LoadFile(opts.Previous, cfg.Membership); err != nil {
			return err
		}
	}
	log.Info("Loaded membership tables",
		zap.String("target", opts.Target), zap.Int("target_items", target.Len()),
		zap.String("previous", opts.Previous), zap.Int("previous_items", prev.Len()))

	merged := target.Merge(prev)
	if err := merged.Validate(); err != nil {
		return err
	}

	var enrich membership.Enricher
	if opts.LookupDSN != "" {
		e, closeLookup, err := openEnricher(ctx, opts.LookupDSN, log)
		if err != nil {
			return err
		}
		defer closeLookup()
		enrich = e
	}

	// Render everything before any output is created, so a failed lookup
	// leaves neither stdout nor the output files behind.
	mergedCSV, err := merged.RenderCSV(ctx, enrich)
	if err != nil {
		return fmt.Errorf("render %s: %w", merged.Label(), err)
	}
	var (
		rest    *membership.Table
		restCSV []byte
	)
	if opts.ExclusiveOut != "" {
		rest = target.Exclude(merged)
		if restCSV, err = rest.RenderCSV(ctx, nil); err != nil {
			return fmt.Errorf("render %s: %w", rest.Label(), err)
		}
	}

	if err := writeOutput(opts.Out, stdout, mergedCSV); err != nil {
		return err
	}
	log.Info("BMET CSV written", zap.String("label", merged.Label()), zap.Int("items", merged.Len()))

	if rest != nil {
		if err := writeOutput(opts.ExclusiveOut, stdout, restCSV); err != nil {
			return err
		}
		log.Info("Exclusive items written", zap.String("label", rest.Label()), zap.Int("items", rest.Len()))
	}
	return nil
}

// openEnricher connects the catalog lookup. Tests replace it.
var openEnricher = func(ctx context.Context, dsn string, log *zap.Logger) (membership.Enricher, func(), error) {
	db, err := catalog.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	storage, err := catalog.DetectNameStorage(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	log.Debug("Catalog name storage", zap.Stringer("storage", storage))
	return catalog.NewResolver(db, storage, log), func() { _ = db.Close() }, nil
}

func writeOutput(path string, stdout io.Writer, data []byte) error {
	w, closeOut, err := openOutput(path, stdout)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = closeOut()
		return fmt.Errorf("write output: %w", err)
	}
	return closeOut()
}
