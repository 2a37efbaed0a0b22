// Package main implements the odmcheck CLI: browser-driven artifact
// collection from the ODM portal and reconciliation against the expected
// files manifest.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	debug      bool
	configPath string

	// Logger
	logger *zap.Logger
)

// errIncomplete signals a finished run whose report shows missing files.
// It maps to exit code 1; fatal setup errors map to 2.
var errIncomplete = errors.New("run incomplete")

var rootCmd = &cobra.Command{
	Use:   "odmcheck",
	Short: "odmcheck - ODM portal download checker",
	Long: `odmcheck drives a controlled browser through every tab of the Open Data
Maturity portal, downloads the artifacts each tab offers (chart exports and
linked resources), and reconciles the result against a per-edition manifest
of expected files.

The final report, not the download phase, is the authority on completeness:
individual download failures are recorded and the run continues.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if debug {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
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
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "odmcheck.yaml", "path to the config file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	err := rootCmd.Execute()
	switch {
	case err == nil:
	case errors.Is(err, errIncomplete):
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}
