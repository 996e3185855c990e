// Package cmd provides the CLI commands for riptide.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/riptide-search/riptide/internal/logging"
	"github.com/riptide-search/riptide/pkg/version"
)

var (
	debugMode      bool
	corpusDir      string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the riptide CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "riptide",
		Short: "Hybrid document retrieval engine",
		Long: `Riptide turns free-text queries into ranked document chunks by
combining BM25 keyword search and dense vector search, with query
classification, synonym expansion, hypothetical document generation
and rank fusion.

Index a directory of text files, then search it:

  riptide index ./docs
  riptide search "how do I configure logging"`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("riptide version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVarP(&corpusDir, "dir", "d", ".", "Corpus directory holding the .riptide index")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newClassifyCmd())
	cmd.AddCommand(newExpandCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	cfg.WriteToStderr = false
	if debugMode {
		cfg.Level = "debug"
		cfg.WriteToStderr = true
	}

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
