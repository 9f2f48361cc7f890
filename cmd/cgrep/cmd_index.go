package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cgrep/internal/bleveindex"
	"cgrep/internal/logging"
	"cgrep/internal/manifest"
	"cgrep/internal/reuse"
	"cgrep/internal/scanner"
	"cgrep/internal/status"
)

var (
	indexForce          bool
	indexManifestOnly   bool
	indexIncludeIgnored bool
	indexBackground     bool
)

var indexCmd = &cobra.Command{
	Use:   "index [root]",
	Short: "Build or refresh the manifest and full-text/symbol index",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := resolveRoot()
		if len(args) == 1 {
			root = args[0]
		}
		rc := newRunCtx("index")
		rc.root = root

		if indexBackground {
			return runIndexBackground(rc, root)
		}
		summary, err := runIndex(cmd.Context(), root, indexForce, indexManifestOnly, indexIncludeIgnored)
		if err != nil {
			os.Exit(rc.emitError(err))
		}
		os.Exit(rc.emitResult(summary, func() { printIndexSummary(summary) }))
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "discard the existing index and rebuild from scratch")
	indexCmd.Flags().String("embeddings", "off", "off|auto|precompute (embeddings are not built by this implementation)")
	indexCmd.Flags().BoolVar(&indexManifestOnly, "manifest-only", false, "refresh the manifest without touching the full-text index")
	indexCmd.Flags().BoolVar(&indexBackground, "background", false, "spawn the build in a child process and return immediately")
	indexCmd.Flags().BoolVar(&indexIncludeIgnored, "include-ignored", false, "do not honor .gitignore while scanning")
}

// IndexSummary is the JSON2 result payload for `index` (spec §6.2 "stats
// summary").
type IndexSummary struct {
	manifest.Summary
	FilesIndexed   int    `json:"files_indexed"`
	SymbolsIndexed int    `json:"symbols_indexed"`
	FilesDeleted   int    `json:"files_deleted"`
	Reuse          string `json:"reuse"`
	DurationMS     int64  `json:"duration_ms"`
	RootHash       string `json:"root_hash"`
	ManifestOnly   bool   `json:"manifest_only"`
	Errors         []string `json:"errors,omitempty"`
}

// runIndex implements spec §4.2/§4.4's end-to-end build: scan, diff, hash,
// (optionally) write the index, persist the manifest and stats, and record
// reuse-state telemetry.
func runIndex(ctx context.Context, root string, force, manifestOnly, includeIgnored bool) (IndexSummary, error) {
	log := logging.Get(logging.CategoryIndex)
	start := time.Now()

	if err := status.Write(root, status.Status{Phase: status.PhaseScanning, PID: os.Getpid(), StartedAt: start.UTC().Format(time.RFC3339), UpdatedAt: start.UTC().Format(time.RFC3339)}); err != nil {
		log.Warn("index: failed to write status.json: %v", err)
	}

	opts := scanner.DefaultOptions()
	opts.RespectGitignore = !includeIgnored
	files, err := scanner.Scan(ctx, root, opts)
	if err != nil {
		markFailed(root, err)
		return IndexSummary{}, err
	}

	old, err := manifest.Load(root)
	if err != nil {
		markFailed(root, err)
		return IndexSummary{}, err
	}

	scanned := make([]manifest.ScannedFile, 0, len(files))
	for _, f := range files {
		scanned = append(scanned, manifest.ScannedFile{Abs: f.Abs, Rel: f.Rel, Language: f.Language, Ext: f.Ext})
	}

	_ = status.Write(root, status.Status{Phase: status.PhaseHashing, PID: os.Getpid(), StartedAt: start.UTC().Format(time.RFC3339), UpdatedAt: time.Now().UTC().Format(time.RFC3339)})
	diff, err := manifest.Compute(old, scanned)
	if err != nil {
		markFailed(root, err)
		return IndexSummary{}, err
	}

	wasDisabled := force
	decision := reuse.Classify(wasDisabled, diff.Summary.Unchanged, diff.Summary.Added, diff.Summary.Modified, diff.Summary.Deleted)
	_ = reuse.Save(root, reuse.State{Decision: decision, Reused: diff.Summary.Unchanged, Rehashed: diff.Summary.Hashed})

	summary := IndexSummary{Summary: diff.Summary, Reuse: string(decision), ManifestOnly: manifestOnly}

	if !manifestOnly {
		_ = status.Write(root, status.Status{Phase: status.PhaseIndexing, PID: os.Getpid(), StartedAt: start.UTC().Format(time.RFC3339), UpdatedAt: time.Now().UTC().Format(time.RFC3339)})

		idx, err := bleveindex.Open(root, force)
		if err != nil {
			markFailed(root, err)
			return IndexSummary{}, err
		}
		defer idx.Close()

		inputs := make(map[string]bleveindex.FileInput, len(files))
		for _, f := range files {
			inputs[f.Rel] = bleveindex.FileInput{Rel: f.Rel, Abs: f.Abs, Language: f.Language}
		}

		result, err := bleveindex.Build(idx, diff, inputs)
		if err != nil {
			markFailed(root, err)
			return IndexSummary{}, err
		}
		if err := bleveindex.VerifyCommitted(root, len(diff.Next.Entries) > 0); err != nil {
			markFailed(root, err)
			return IndexSummary{}, err
		}

		summary.FilesIndexed = result.FilesIndexed
		summary.SymbolsIndexed = result.SymbolsIndexed
		summary.FilesDeleted = result.FilesDeleted
		summary.Errors = result.Errors
	}

	// Manifest persistence happens strictly after the writer commit (spec
	// §5 ordering guarantee): a reader must never see a manifest that
	// references docs the index does not yet contain.
	if err := manifest.Save(root, diff.Next); err != nil {
		markFailed(root, err)
		return IndexSummary{}, err
	}
	summary.RootHash = diff.Next.RootHash
	summary.DurationMS = time.Since(start).Milliseconds()

	now := time.Now().UTC().Format(time.RFC3339)
	_ = status.WriteStats(root, status.Stats{
		Summary:        diff.Summary,
		SchemaVersion:  status.StatsSchemaVersion,
		FilesIndexed:   summary.FilesIndexed,
		SymbolsIndexed: summary.SymbolsIndexed,
		DurationMS:     summary.DurationMS,
		FinishedAt:     now,
		RootHash:       summary.RootHash,
	})
	_ = status.Write(root, status.Status{Phase: status.PhaseDone, PID: os.Getpid(), StartedAt: start.UTC().Format(time.RFC3339), UpdatedAt: now})

	log.Info("index: done in %dms (reuse=%s, files_indexed=%d, symbols_indexed=%d)", summary.DurationMS, summary.Reuse, summary.FilesIndexed, summary.SymbolsIndexed)
	return summary, nil
}

func markFailed(root string, cause error) {
	now := time.Now().UTC().Format(time.RFC3339)
	_ = status.Write(root, status.Status{Phase: status.PhaseFailed, PID: os.Getpid(), UpdatedAt: now, Message: cause.Error()})
}

// runIndexBackground spawns a detached child running the same command
// without --background, recording its PID so `status`/`doctor` can observe
// and recover from it (spec §5 "Process model").
func runIndexBackground(rc *runCtx, root string) error {
	self, err := os.Executable()
	if err != nil {
		return err
	}
	args := []string{"index", root}
	if indexForce {
		args = append(args, "--force")
	}
	if indexManifestOnly {
		args = append(args, "--manifest-only")
	}
	if indexIncludeIgnored {
		args = append(args, "--include-ignored")
	}

	proc, err := os.StartProcess(self, append([]string{self}, args...), &os.ProcAttr{
		Dir:   root,
		Files: []*os.File{nil, nil, nil},
	})
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if err := status.Write(root, status.Status{Phase: status.PhaseScanning, PID: proc.Pid, StartedAt: now, UpdatedAt: now, Message: "background build started"}); err != nil {
		return err
	}
	os.Exit(rc.emitResult(map[string]interface{}{"pid": proc.Pid, "background": true}, func() {
		fmt.Printf("index: background build started, pid=%d\n", proc.Pid)
	}))
	return nil
}

func printIndexSummary(s IndexSummary) {
	fmt.Printf("scanned=%d added=%d modified=%d deleted=%d unchanged=%d\n", s.Scanned, s.Added, s.Modified, s.Deleted, s.Unchanged)
	if !s.ManifestOnly {
		fmt.Printf("files_indexed=%d symbols_indexed=%d\n", s.FilesIndexed, s.SymbolsIndexed)
	}
	fmt.Printf("reuse=%s root_hash=%s duration_ms=%d\n", s.Reuse, s.RootHash, s.DurationMS)
	for _, e := range s.Errors {
		fmt.Printf("warning: %s\n", e)
	}
}
