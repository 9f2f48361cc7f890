package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"cgrep/internal/bleveindex"
	"cgrep/internal/gitscope"
	"cgrep/internal/scanner"
	"cgrep/internal/usage"
)

var (
	referencesPath    string
	referencesMode    string
	referencesChanged string

	callersMode string

	dependentsLang string
)

var referencesCmd = &cobra.Command{
	Use:   "references <name>",
	Short: "Find identifier-like references to name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc := newRunCtx("references")
		hits, err := runUsage(cmd.Context(), rc.root, args[0], referencesPath, referencesMode, referencesChanged, false)
		if err != nil {
			os.Exit(rc.emitError(err))
		}
		os.Exit(rc.emitResults(hits, func() { printUsageHits(hits) }))
		return nil
	},
}

var callersCmd = &cobra.Command{
	Use:   "callers <function>",
	Short: "Find call sites of function",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc := newRunCtx("callers")
		hits, err := runUsage(cmd.Context(), rc.root, args[0], "", callersMode, "", true)
		if err != nil {
			os.Exit(rc.emitError(err))
		}
		os.Exit(rc.emitResults(hits, func() { printUsageHits(hits) }))
		return nil
	},
}

var dependentsCmd = &cobra.Command{
	Use:   "dependents <file>",
	Short: "Find files that reference symbols defined in file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc := newRunCtx("dependents")
		paths, err := runDependents(rc.root, args[0])
		if err != nil {
			os.Exit(rc.emitError(err))
		}
		os.Exit(rc.emitResults(paths, func() {
			for _, p := range paths {
				fmt.Println(p)
			}
		}))
		return nil
	},
}

func init() {
	referencesCmd.Flags().StringVarP(&referencesPath, "path", "p", "", "narrow to a scope directory/file")
	referencesCmd.Flags().StringVar(&referencesMode, "mode", "auto", "auto|ast|regex")
	referencesCmd.Flags().StringVar(&referencesChanged, "changed", "", "restrict to files changed since this git rev")

	callersCmd.Flags().StringVar(&callersMode, "mode", "auto", "auto|ast|regex")
}

// UsageHit is one reference/caller location (spec §4.6, §7).
type UsageHit struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

func runUsage(ctx context.Context, root, name, pathFlag, modeFlag, changedRev string, callers bool) ([]UsageHit, error) {
	scope, outside, err := resolveScope(root, pathFlag)
	if err != nil {
		return nil, err
	}
	if outside {
		return nil, nil
	}

	files, err := scanner.Scan(ctx, root, scanner.DefaultOptions())
	if err != nil {
		return nil, err
	}

	var restrictTo map[string]bool
	if changedRev != "" {
		res, err := gitscope.Changed(ctx, root, changedRev)
		if err != nil {
			return nil, err
		}
		// On fallback (no git work tree) the whole tree is scanned.
		if !res.Fallback {
			restrictTo = make(map[string]bool, len(res.Paths))
			for _, abs := range res.Paths {
				if rel, err := relFromRoot(root, abs); err == nil {
					restrictTo[rel] = true
				}
			}
		}
	}

	mode := usage.Mode(modeFlag)
	var out []UsageHit
	for _, f := range files {
		if len(scope.Prefixes) > 0 && !inScope(f.Rel, scope.Prefixes) {
			continue
		}
		if restrictTo != nil && !restrictTo[f.Rel] {
			continue
		}
		content, err := os.ReadFile(f.Abs)
		if err != nil {
			continue
		}
		var locs []usage.Location
		if callers {
			locs = usage.FindCallers(f.Language, content, name, mode)
		} else {
			locs = usage.FindReferences(f.Language, content, name, mode)
		}
		for _, l := range locs {
			out = append(out, UsageHit{Path: f.Rel, Line: l.Line, Column: l.Column})
		}
	}
	return out, nil
}

// runDependents reports which indexed files reference a symbol defined in
// file: extract file's own symbol names from the index, then scan every
// other file for a reference to any of them (spec §6.2 "dependents").
func runDependents(root, file string) ([]string, error) {
	if !bleveindex.Exists(root) {
		return nil, nil
	}
	idx, err := bleveindex.OpenReadOnly(root)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	rel, err := relFromRoot(root, resolvePath(root, file))
	if err != nil {
		return nil, err
	}
	hits, err := idx.SearchSymbolDefinitions("", false, bleveindex.Scope{Prefixes: []string{rel}})
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(hits))
	for _, h := range hits {
		if h.Path == rel && h.Name != "" {
			names[h.Name] = true
		}
	}
	if len(names) == 0 {
		return nil, nil
	}

	files, err := scanner.Scan(context.Background(), root, scanner.DefaultOptions())
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string
	for _, f := range files {
		if f.Rel == rel {
			continue
		}
		content, err := os.ReadFile(f.Abs)
		if err != nil {
			continue
		}
		for name := range names {
			if len(usage.FindReferences(f.Language, content, name, usage.ModeAuto)) > 0 {
				if !seen[f.Rel] {
					seen[f.Rel] = true
					out = append(out, f.Rel)
				}
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func printUsageHits(hits []UsageHit) {
	for _, h := range hits {
		fmt.Printf("%s:%d:%d\n", h.Path, h.Line, h.Column)
	}
}
