package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/agentic-research/eraload/internal/config"
	"github.com/agentic-research/eraload/internal/faults"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit statuses by error category.
const (
	exitFailure   = 1
	exitShape     = 3
	exitReference = 4
	exitInvariant = 5
)

var (
	verbose    bool
	configPath string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "eraload",
	Short: "Prepare ERA reporting-year loads for a DSpace repository",
	Long: `eraload builds the community/collection structure for an ERA reporting
year from the FOR code discipline matrix, and works out which items must be
mapped into more than one collection across reporting years.

Data goes to stdout (or --out); progress and diagnostics go to stderr.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Job configuration file (.hcl, .yaml or .yml)")
}

// Execute runs the root command. The exit status says which kind of
// failure stopped the run.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, faults.ErrInputShape):
		return exitShape
	case errors.Is(err, faults.ErrReference):
		return exitReference
	case errors.Is(err, faults.ErrInvariant):
		return exitInvariant
	default:
		return exitFailure
	}
}

func loadConfig() (*config.Config, error) {
	return config.NewLoader(logger).Load(configPath)
}

// openOutput returns stdout when path is empty, otherwise a new file. The
// returned close func must always be called.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
