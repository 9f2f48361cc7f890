// Package agent implements the agent-facing locate/expand surface
// (spec §4.8), layering a result-ID hint cache over the same search and
// render primitives the human-facing commands use, so an agent can
// cheaply re-expand a result it saw a few turns ago without re-running
// the underlying query.
package agent

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"cgrep/internal/bleveindex"
	"cgrep/internal/logging"
	"cgrep/internal/render"
	"cgrep/internal/scanner"
)

// Profile selects how aggressively Locate trims its result set (spec
// §6.2 "--profile fast|agent", grounded on
// original_source/src/query/agent.rs).
type Profile string

const (
	ProfileFast  Profile = "fast"  // small, high-precision result set
	ProfileAgent Profile = "agent" // larger set, tuned for downstream expand
)

// LocateOptions configures one `agent locate` call.
type LocateOptions struct {
	Query   string
	Root    string
	Scope   bleveindex.Scope
	Profile Profile
	Budget  int // max results returned; 0 uses the profile default
}

// LocateResult is one candidate location returned by Locate (spec §4.8
// "locate").
type LocateResult struct {
	ResultID string  `json:"id"`
	Path     string  `json:"path"`
	Line     int     `json:"line"`
	EndLine  int      `json:"end_line,omitempty"`
	Snippet  string  `json:"snippet,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

func (p Profile) defaultBudget() int {
	if p == ProfileFast {
		return 10
	}
	return 40
}

// Locate runs a scoped full-text query and returns a budget-limited,
// hint-cached result list. As a side effect every emitted
// (id, path, line, snippet) is persisted into the hint cache (spec §4.8
// "Locate").
func Locate(idx *bleveindex.Index, store *Store, opts LocateOptions) ([]LocateResult, error) {
	log := logging.Get(logging.CategoryAgent)
	budget := opts.Budget
	if budget <= 0 {
		budget = opts.Profile.defaultBudget()
	}

	hits, err := idx.Search(opts.Query, bleveindex.SearchOptions{Scope: opts.Scope, Size: budget * 3})
	if err != nil {
		return nil, err
	}

	out := make([]LocateResult, 0, budget)
	for _, h := range hits {
		if len(out) >= budget {
			break
		}
		snippet, err := snippetAt(opts.Root, h.Path, h.LineNumber)
		if err != nil {
			// A hit whose source line can no longer be read (e.g. the
			// query ran against a stale index) is skipped rather than
			// surfaced with a fabricated ID.
			continue
		}
		id := ResultID(h.Path, h.LineNumber, snippet)
		store.Put(Hint{ResultID: id, Path: h.Path, Line: h.LineNumber, EndLine: h.SymbolEndLine, Snippet: snippet})
		out = append(out, LocateResult{ResultID: id, Path: h.Path, Line: h.LineNumber, EndLine: h.SymbolEndLine, Snippet: snippet, Score: h.Score})
	}

	log.Info("agent: locate %q -> %d results (profile=%s budget=%d)", opts.Query, len(out), opts.Profile, budget)
	return out, nil
}

// snippetAt reads rel (resolved against root) and returns the stable-ID
// snippet for line: the trimmed line content, truncated to 150 characters
// with an ellipsis when longer (spec §3.4).
func snippetAt(root, rel string, line int) (string, error) {
	abs := joinRoot(root, rel)
	rr, err := render.Read(abs, line, line)
	if err != nil {
		return "", err
	}
	if len(rr.Lines) == 0 {
		return "", nil
	}
	return TrimSnippet(rr.Lines[0]), nil
}

// TrimSnippet implements spec §3.4's snippet normalization: trim
// surrounding whitespace, then truncate to 150 characters with a
// trailing ellipsis when the trimmed line is longer.
func TrimSnippet(line string) string {
	s := strings.TrimSpace(line)
	runes := []rune(s)
	if len(runes) <= 150 {
		return s
	}
	return string(runes[:150]) + "…"
}

// ExpandStep is one step of an expand operation's deterministic
// envelope (spec §4.8 "expand" / JSON2 "steps" variant).
type ExpandStep struct {
	ResultID string            `json:"id"`
	Path     string            `json:"path"`
	Line     int               `json:"line"`
	Resolved string            `json:"resolved"` // "hint" | "scan" | "unresolved"
	Read     render.ReadResult `json:"read"`
}

// ExpandMeta reports the resolution-tier breakdown required by spec
// §4.8's "expand" meta envelope.
type ExpandMeta struct {
	RequestedIDs    []string `json:"requested_ids"`
	ResolvedIDs     []string `json:"resolved_ids"`
	HintResolvedIDs []string `json:"hint_resolved_ids"`
	ScanResolvedIDs []string `json:"scan_resolved_ids"`
	Context         int      `json:"context"`
	SearchRoot      string   `json:"search_root"`
}

// Expand resolves one or more result IDs to their surrounding source
// (spec §4.8 "expand"):
//
//  1. For each ID present (and not stale) in the hint cache, recompute
//     the snippet at the hinted line and re-derive the stable ID. A
//     match is hint_resolved.
//  2. Any ID left unresolved after step 1 — hint absent, hint's file
//     gone, or the recomputed ID no longer matching (content drift) —
//     is looked for via a bounded scan of every indexable file in root,
//     comparing the stable ID of every line. A match is scan_resolved.
//  3. Results are sorted by (path, line); meta reports the full
//     requested/resolved/hint/scan breakdown (spec §3.5 "Staleness
//     guarantee").
func Expand(ctx context.Context, root string, store *Store, resultIDs []string, contextLines int) ([]ExpandStep, ExpandMeta, error) {
	log := logging.Get(logging.CategoryAgent)
	meta := ExpandMeta{RequestedIDs: append([]string{}, resultIDs...), Context: contextLines, SearchRoot: root}

	steps := make(map[string]ExpandStep, len(resultIDs))
	var unresolved []string

	for _, id := range resultIDs {
		hint, ok := store.Get(id)
		if !ok {
			unresolved = append(unresolved, id)
			continue
		}
		abs := joinRoot(root, hint.Path)
		if _, err := os.Stat(abs); err != nil {
			// Deleted files make the hint inert (spec §3.5).
			unresolved = append(unresolved, id)
			continue
		}
		snippet, err := snippetAt(root, hint.Path, hint.Line)
		if err != nil || ResultID(hint.Path, hint.Line, snippet) != id {
			// Content at the hinted line drifted: the hint is ignored
			// and the scan tier runs instead (spec §3.5).
			unresolved = append(unresolved, id)
			continue
		}

		rr, err := render.Read(abs, expandRange(hint.Line, hint.EndLine, contextLines))
		if err != nil {
			return nil, meta, fmt.Errorf("agent: expand %s: %w", id, err)
		}
		steps[id] = ExpandStep{ResultID: id, Path: hint.Path, Line: hint.Line, Resolved: "hint", Read: rr}
		meta.HintResolvedIDs = append(meta.HintResolvedIDs, id)
	}

	if len(unresolved) > 0 {
		found, err := scanResolve(ctx, root, unresolved, contextLines)
		if err != nil {
			return nil, meta, err
		}
		for id, step := range found {
			steps[id] = step
			meta.ScanResolvedIDs = append(meta.ScanResolvedIDs, id)
		}
	}

	out := make([]ExpandStep, 0, len(resultIDs))
	for _, id := range resultIDs {
		if step, ok := steps[id]; ok {
			out = append(out, step)
			meta.ResolvedIDs = append(meta.ResolvedIDs, id)
			continue
		}
		out = append(out, ExpandStep{ResultID: id, Resolved: "unresolved", Read: render.ReadResult{Mode: render.ModeEmpty}})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Line < out[j].Line
	})
	sort.Strings(meta.ResolvedIDs)
	sort.Strings(meta.HintResolvedIDs)
	sort.Strings(meta.ScanResolvedIDs)

	log.Info("agent: expand %d ids -> %d hint-resolved, %d scan-resolved",
		len(resultIDs), len(meta.HintResolvedIDs), len(meta.ScanResolvedIDs))
	return out, meta, nil
}

// scanResolve performs the bounded-scan tier of spec §4.8 step 2:
// iterate every file the indexer would scan, compute the stable ID of
// every line, and match against the still-unresolved ID set. Matching
// stops per-file once every wanted ID has been found.
func scanResolve(ctx context.Context, root string, wanted []string, contextLines int) (map[string]ExpandStep, error) {
	want := make(map[string]bool, len(wanted))
	for _, id := range wanted {
		want[id] = true
	}

	files, err := scanner.Scan(ctx, root, scanner.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("agent: scan-resolve: %w", err)
	}

	found := make(map[string]ExpandStep, len(wanted))
	for _, f := range files {
		if len(found) == len(want) {
			break
		}
		// A section read with an oversized end returns every line
		// regardless of size/generated-file heuristics, which only
		// apply to the whole-file read path (spec §4.7's mode
		// detection is for `read`, not for this scan tier).
		rr, err := render.Read(f.Abs, 1, 1<<30)
		if err != nil || rr.Mode == render.ModeBinary || rr.Mode == render.ModeEmpty {
			continue
		}
		for i, line := range rr.Lines {
			lineNum := i + 1
			id := ResultID(f.Rel, lineNum, TrimSnippet(line))
			if !want[id] || found[id].ResultID != "" {
				continue
			}
			read, err := render.Read(f.Abs, expandRange(lineNum, 0, contextLines))
			if err != nil {
				continue
			}
			found[id] = ExpandStep{ResultID: id, Path: f.Rel, Line: lineNum, Resolved: "scan", Read: read}
		}
	}
	return found, nil
}

func expandRange(line, endLine, contextLines int) (int, int) {
	start := line - contextLines
	end := line + contextLines
	if endLine > 0 {
		end = endLine + contextLines
	}
	if start < 1 {
		start = 1
	}
	return start, end
}

func joinRoot(root, rel string) string {
	if root == "" {
		return rel
	}
	if strings.HasPrefix(rel, root) {
		return rel
	}
	if strings.HasSuffix(root, "/") {
		return root + rel
	}
	return root + "/" + rel
}
