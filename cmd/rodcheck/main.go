package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rodcheck/internal/config"
)

var (
	// Global flags
	verbose bool
	cfgPath string

	// Logger
	logger   *zap.Logger
	logLevel zap.AtomicLevel
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rodcheck",
	Short: "rodcheck - polling assertions against live pages",
	Long: `rodcheck runs declarative polling checks against live,
asynchronously-rendering pages. Each check is retried on an interval
until it passes or its deadline expires; a timed-out check reports a
screenshot, the page's console errors, and an outline of what actually
rendered.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		logLevel = zcfg.Level
		if verbose {
			zcfg.Level.SetLevel(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
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

// runCmd executes the suite once
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the check suite once",
	RunE:  runOnce,
}

// watchCmd re-runs the suite on config changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the check suite whenever the suite file changes",
	RunE:  runWatch,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "rodcheck.yaml", "path to the check suite")
	rootCmd.AddCommand(runCmd, watchCmd)
}

// applyLogLevel lets the suite file raise or lower the level unless
// --verbose already forced debug.
func applyLogLevel(cfg config.Config) {
	if verbose || cfg.Logging.Level == "" {
		return
	}
	if lvl, err := zapcore.ParseLevel(cfg.Logging.Level); err == nil {
		logLevel.SetLevel(lvl)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
