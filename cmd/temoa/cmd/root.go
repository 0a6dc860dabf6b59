// Package cmd provides the CLI commands for Temoa.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pborenstein/temoa/internal/logging"
	"github.com/pborenstein/temoa/pkg/version"
)

// Debug logging flag, set up in PersistentPreRunE/PostRunE like the rest of
// the profiling/logging plumbing a cobra tree of this size needs.
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the temoa CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "temoa",
		Short: "Local semantic search over a Markdown vault",
		Long: `Temoa indexes a directory of Markdown notes and serves hybrid
(BM25 + embedding) search over it, either as a long-lived HTTP server
or directly from the command line.

Run 'temoa serve' in a vault directory to start the API, or use
'temoa search'/'temoa reindex' for one-off queries against it.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("temoa version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.temoa/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVaultsCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
