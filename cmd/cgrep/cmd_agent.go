package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cgrep/internal/agent"
	"cgrep/internal/bleveindex"
	"cgrep/internal/errs"
	"cgrep/internal/json2"
)

var (
	agentLocatePath    string
	agentLocateLimit   int
	agentLocateBudget  int
	agentLocateProfile string

	agentExpandIDs     []string
	agentExpandContext int
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Two-stage agent-facing locate/expand surface",
}

var agentLocateCmd = &cobra.Command{
	Use:   "locate <query>",
	Short: "Run a scoped search and cache stable result IDs for later expand",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc := newRunCtx("agent locate")
		results, err := runAgentLocate(rc.root, args[0])
		if err != nil {
			os.Exit(rc.emitError(err))
		}
		os.Exit(rc.emitResults(results, func() { printLocateResults(results) }))
		return nil
	},
}

var agentExpandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Resolve one or more result IDs to their surrounding source",
	RunE: func(cmd *cobra.Command, args []string) error {
		rc := newRunCtx("agent expand")
		steps, meta, err := runAgentExpand(cmd.Context(), rc.root, agentExpandIDs, agentExpandContext)
		if err != nil {
			os.Exit(rc.emitError(err))
		}
		if rc.format == "text" {
			os.Exit(rc.emitSteps(steps, func() { printExpandSteps(steps) }))
		}
		env := buildExpandEnvelope(rc, steps, meta)
		os.Exit(rc.write(env))
		return nil
	},
}

func init() {
	agentLocateCmd.Flags().StringVarP(&agentLocatePath, "path", "p", "", "narrow to a scope directory/file")
	agentLocateCmd.Flags().IntVarP(&agentLocateLimit, "limit", "m", 0, "result limit (overrides --profile default)")
	agentLocateCmd.Flags().IntVar(&agentLocateBudget, "budget", 0, "alias for --limit")
	agentLocateCmd.Flags().StringVar(&agentLocateProfile, "profile", "agent", "fast|agent result-set sizing")

	agentExpandCmd.Flags().StringSliceVar(&agentExpandIDs, "id", nil, "result ID to expand (repeatable)")
	agentExpandCmd.Flags().IntVarP(&agentExpandContext, "context", "C", 3, "lines of context around each resolved location")

	agentCmd.AddCommand(agentLocateCmd)
	agentCmd.AddCommand(agentExpandCmd)
}

func runAgentLocate(root, query string) ([]agent.LocateResult, error) {
	scope, outside, err := resolveScope(root, agentLocatePath)
	if err != nil {
		return nil, err
	}
	if outside {
		return nil, nil
	}
	if !bleveindex.Exists(root) {
		return nil, &errs.IndexNotFoundError{Root: root}
	}

	idx, err := bleveindex.OpenReadOnly(root)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	store := agent.OpenStore(root)

	budget := agentLocateLimit
	if budget <= 0 {
		budget = agentLocateBudget
	}
	results, err := agent.Locate(idx, store, agent.LocateOptions{
		Query:   query,
		Root:    root,
		Scope:   scope,
		Profile: agent.Profile(agentLocateProfile),
		Budget:  budget,
	})
	if err != nil {
		return nil, err
	}
	if err := store.Save(); err != nil {
		return nil, err
	}
	return results, nil
}

func runAgentExpand(ctx context.Context, root string, ids []string, contextLines int) ([]agent.ExpandStep, agent.ExpandMeta, error) {
	if len(ids) == 0 {
		return nil, agent.ExpandMeta{}, &errs.UserInputError{Field: "id", Message: "at least one --id is required"}
	}
	store := agent.OpenStore(root)
	steps, meta, err := agent.Expand(ctx, root, store, ids, contextLines)
	if err != nil {
		return nil, meta, err
	}
	if err := store.Save(); err != nil {
		return nil, meta, err
	}
	return steps, meta, nil
}

// expandPayload is the JSON2 "steps" payload for `agent expand`: the
// resolved steps plus the resolution-tier breakdown spec §4.8 requires
// in the same response.
type expandPayload struct {
	Items           []agent.ExpandStep `json:"items"`
	RequestedIDs    []string           `json:"requested_ids"`
	ResolvedIDs     []string           `json:"resolved_ids"`
	HintResolvedIDs []string           `json:"hint_resolved_ids"`
	ScanResolvedIDs []string           `json:"scan_resolved_ids"`
	Context         int                `json:"context"`
	SearchRoot      string             `json:"search_root"`
}

func buildExpandEnvelope(rc *runCtx, steps []agent.ExpandStep, meta agent.ExpandMeta) json2.Envelope {
	payload := expandPayload{
		Items:           steps,
		RequestedIDs:    meta.RequestedIDs,
		ResolvedIDs:     meta.ResolvedIDs,
		HintResolvedIDs: meta.HintResolvedIDs,
		ScanResolvedIDs: meta.ScanResolvedIDs,
		Context:         meta.Context,
		SearchRoot:      meta.SearchRoot,
	}
	return json2.NewSteps(rc.command, rc.root, rc.durationMS(), payload)
}

func printLocateResults(results []agent.LocateResult) {
	for _, r := range results {
		fmt.Printf("%s\t%s:%d\t%s\n", r.ResultID, r.Path, r.Line, r.Snippet)
	}
}

func printExpandSteps(steps []agent.ExpandStep) {
	for _, s := range steps {
		fmt.Printf("=== %s (%s) %s:%d ===\n", s.ResultID, s.Resolved, s.Path, s.Line)
		for i, l := range s.Read.Lines {
			fmt.Printf("%d\t%s\n", s.Read.StartLine+i, l)
		}
	}
}
