package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cgrep/internal/status"
)

var (
	statusPath string
	statsPath  string
	doctorPath string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the current/last index build phase",
	RunE: func(cmd *cobra.Command, args []string) error {
		rc := newRunCtx("status")
		root := resolvePath(rc.root, statusPath)
		if _, err := status.RecoverIfStale(root); err != nil {
			os.Exit(rc.emitError(err))
		}
		s, err := status.Read(root)
		if err != nil {
			os.Exit(rc.emitError(err))
		}
		os.Exit(rc.emitResult(s, func() { printStatus(s) }))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report statistics from the last completed index build",
	RunE: func(cmd *cobra.Command, args []string) error {
		rc := newRunCtx("stats")
		root := resolvePath(rc.root, statsPath)
		s, err := status.ReadStats(root)
		if err != nil {
			os.Exit(rc.emitError(err))
		}
		os.Exit(rc.emitResult(s, func() { printStats(s) }))
		return nil
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run read-only diagnostics against the index, manifest, and status",
	RunE: func(cmd *cobra.Command, args []string) error {
		rc := newRunCtx("doctor")
		root := resolvePath(rc.root, doctorPath)
		findings := status.Doctor(root)
		os.Exit(rc.emitResults(findings, func() { printFindings(findings) }))
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVarP(&statusPath, "path", "p", "", "repository root (default: --root)")
	statsCmd.Flags().StringVarP(&statsPath, "path", "p", "", "repository root (default: --root)")
	doctorCmd.Flags().StringVarP(&doctorPath, "path", "p", "", "repository root (default: --root)")
}

func printStatus(s status.Status) {
	fmt.Printf("phase=%s pid=%d started=%s updated=%s\n", s.Phase, s.PID, s.StartedAt, s.UpdatedAt)
	if s.Message != "" {
		fmt.Printf("message: %s\n", s.Message)
	}
}

func printStats(s status.Stats) {
	fmt.Printf("scanned=%d added=%d modified=%d deleted=%d unchanged=%d\n", s.Scanned, s.Added, s.Modified, s.Deleted, s.Unchanged)
	fmt.Printf("files_indexed=%d symbols_indexed=%d duration_ms=%d\n", s.FilesIndexed, s.SymbolsIndexed, s.DurationMS)
	fmt.Printf("finished_at=%s root_hash=%s\n", s.FinishedAt, s.RootHash)
}

func printFindings(findings []status.Finding) {
	if len(findings) == 0 {
		fmt.Println("no problems found")
		return
	}
	for _, f := range findings {
		fmt.Printf("[%s] %s: %s\n", f.Severity, f.ID, f.Message)
		if f.Recommendation != "" {
			fmt.Printf("  -> %s\n", f.Recommendation)
		}
	}
}
