package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose      bool
	workspace    string
	manifestPath string
	noColor      bool

	// Logger
	logger *zap.Logger
)

// errVerificationFailed maps a failing report onto the exit-code contract
// without printing a second error message after the report.
var errVerificationFailed = errors.New("verification failed")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "preflight",
	Short: "preflight - verify build dependencies before the build runs",
	Long: `preflight verifies that the external content units a build depends on
are present, non-empty, and pinned to the expected refs, and re-acquires
broken units from their canonical sources.

Units are declared in preflight.yaml. A failing verification exits 1 so
build pipelines can branch on it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stderr"}
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace root the unit paths are relative to")
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "", "manifest path (default: $PREFLIGHT_MANIFEST, then <workspace>/preflight.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable ANSI colors in the report")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	// SIGINT/SIGTERM abort the run between units; the partial report is
	// still rendered and the process exits 1.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errVerificationFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
