// Package main implements the cgrep CLI - a local code-aware search and
// navigation engine (spec §1). This file is the entry point and command
// registration hub; each subcommand's implementation lives in its own
// cmd_*.go file, following the teacher's one-file-per-command layout.
//
// # File Index
//
//   - main.go        - entry point, rootCmd, global flags, logger init
//   - output.go      - JSON2 envelope + text rendering shared by every command
//   - scope.go       - `-p/--path` scope resolution against the index root
//   - cmd_index.go   - `index`
//   - cmd_search.go  - `search`
//   - cmd_symbols.go - `symbols`, `definition`
//   - cmd_usage.go   - `references`, `callers`, `dependents`
//   - cmd_read.go    - `read`, `map`
//   - cmd_agent.go   - `agent locate`, `agent expand`
//   - cmd_status.go  - `status`, `stats`, `doctor`
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cgrep/internal/logging"
)

var (
	rootFlag      string
	outputFormat  string
	compactOutput bool
	verbose       bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cgrep",
	Short: "cgrep - local code-aware search and navigation engine",
	Long: `cgrep indexes a repository's source files and symbols, then serves
fast keyword/symbol/usage queries against that index — as a human-facing
CLI (--format text) or as an agent-facing JSON2 contract (--format json2)
with stable result IDs an agent can re-expand across turns.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		zcfg.OutputPaths = []string{"stderr"}
		zcfg.ErrorOutputPaths = []string{"stderr"}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("cgrep: init logger: %w", err)
		}

		if err := logging.Initialize(resolveRoot(), verbose, levelFor(verbose)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: file logging unavailable: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func levelFor(verbose bool) string {
	if verbose {
		return "debug"
	}
	return "info"
}

// resolveRoot returns the effective index root: --root if set, else the
// current working directory.
func resolveRoot() string {
	if rootFlag != "" {
		return rootFlag
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "repository root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "output format: text|json|json2")
	rootCmd.PersistentFlags().BoolVar(&compactOutput, "compact", false, "emit compact JSON with no indentation")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(definitionCmd)
	rootCmd.AddCommand(referencesCmd)
	rootCmd.AddCommand(callersCmd)
	rootCmd.AddCommand(dependentsCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(doctorCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cgrep: %v\n", err)
		os.Exit(1)
	}
}
