// Package gitscope resolves the `--changed <rev>` flag (spec §4.2
// supplement, grounded in original_source/src/query/changed_files.rs)
// into a concrete list of changed absolute paths, shelling out to git
// the same way the teacher's retrieval tooling shells out to ripgrep,
// and falling back to "everything" when the root is not a git work tree.
package gitscope

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"cgrep/internal/logging"
)

// Result reports which paths changed relative to rev, and whether a
// fallback (non-git root) was used (spec §4.2 "no-git fallback").
type Result struct {
	Paths    []string
	Fallback bool
}

// Changed resolves --changed <rev> into absolute paths under root that
// differ from rev, including untracked files. If root is not inside a
// git work tree, Fallback is set and Paths is left empty so the caller
// scans the whole tree instead (spec: "a scope invalid for no-git
// repositories is not an error, it degrades to full scope").
func Changed(ctx context.Context, root, rev string) (Result, error) {
	log := logging.Get(logging.CategoryScanner)
	if !isGitRepo(ctx, root) {
		log.Debug("gitscope: %s is not a git work tree, falling back to full scope", root)
		return Result{Fallback: true}, nil
	}

	tracked, err := diffNames(ctx, root, rev)
	if err != nil {
		return Result{}, err
	}
	untracked, err := untrackedNames(ctx, root)
	if err != nil {
		return Result{}, err
	}

	seen := make(map[string]bool, len(tracked)+len(untracked))
	var out []string
	for _, rel := range append(tracked, untracked...) {
		if rel == "" || seen[rel] {
			continue
		}
		seen[rel] = true
		out = append(out, filepath.Join(root, rel))
	}

	log.Info("gitscope: --changed %s resolved to %d paths", rev, len(out))
	return Result{Paths: out}, nil
}

func isGitRepo(ctx context.Context, root string) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = root
	return cmd.Run() == nil
}

func diffNames(ctx context.Context, root, rev string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", "diff", "--name-only", rev)
	cmd.Dir = root
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return splitLines(out.String()), nil
}

func untrackedNames(ctx context.Context, root string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", "ls-files", "--others", "--exclude-standard")
	cmd.Dir = root
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return splitLines(out.String()), nil
}

func splitLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
