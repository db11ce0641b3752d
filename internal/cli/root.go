// Package cli provides the command-line interface for leakguard.
package cli

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leakguard-dev/leakguard/internal/cli/commands"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)
	rootCmd := &cobra.Command{
		Use:   "leakguard",
		Short: "leakguard - training data leakage auditor",
		Long: `leakguard audits a tabular training dataset for data-leakage risk before
it is used to train a model: features that encode the target, statistics
computed over the full dataset, mis-parsed time columns, grouping structure
a naive CV scheme would violate, and mismatches between the declared CV
strategy and what the data requires.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
		},
	}
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./leakguard.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		commands.NewAuditCommand(&cfgFile),
		commands.NewFixCommand(&cfgFile),
		commands.NewDetectorsCommand(),
		commands.NewWatchCommand(&cfgFile),
		commands.NewVersionCommand(Version, BuildDate, GitCommit),
	)
	return rootCmd
}

// Execute runs the root command and returns the process exit code.
// Classification: 0 no risks, 2 low/medium findings only, 3 any
// high-severity finding, 4 configuration error (bad target or time column),
// 1 anything else.
func Execute() int {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		var ee *commands.ExitError
		if errors.As(err, &ee) {
			if ee.Msg != "" {
				cmd.PrintErrln(ee.Msg)
			}
			return ee.Code
		}
		cmd.PrintErrln("Error:", err)
		return 1
	}
	return 0
}

// main entry convenience used by cmd/leakguard.
func Main() {
	os.Exit(Execute())
}
