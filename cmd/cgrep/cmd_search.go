package main

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"cgrep/internal/bleveindex"
	"cgrep/internal/config"
	"cgrep/internal/errs"
	"cgrep/internal/gitscope"
	"cgrep/internal/json2"
)

var (
	searchPath     string
	searchLimit    int
	searchContext  int
	searchGlob     string
	searchExclude  string
	searchRegex    bool
	searchNoIndex  bool
	searchChanged  string
	searchMode     string
	searchExplain  bool
	searchProfile  string
	searchBudget   int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text/symbol search over the indexed repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc := newRunCtx("search")
		hits, err := runSearch(cmd.Context(), rc.root, args[0])
		if err != nil {
			os.Exit(rc.emitError(err))
		}
		os.Exit(rc.emitResults(hits, func() { printSearchHits(hits) }))
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVarP(&searchPath, "path", "p", "", "narrow the search to a scope directory/file")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "m", 50, "maximum hits returned")
	searchCmd.Flags().IntVarP(&searchContext, "context", "C", 0, "accepted; no context lines are added to hits")
	searchCmd.Flags().StringVar(&searchGlob, "glob", "", "restrict to paths matching this glob (regex-scan mode)")
	searchCmd.Flags().StringVar(&searchExclude, "exclude", "", "exclude paths matching this glob (regex-scan mode)")
	searchCmd.Flags().BoolVar(&searchRegex, "regex", false, "treat the query as a regular expression (forces --no-index)")
	searchCmd.Flags().BoolVar(&searchNoIndex, "no-index", false, "bypass the index, scanning files directly")
	searchCmd.Flags().StringVar(&searchChanged, "changed", "", "boost files changed since this git rev (other files are not filtered out)")
	searchCmd.Flags().StringVar(&searchMode, "mode", "keyword", "keyword|semantic|hybrid (semantic degrades to keyword: no embedding backend)")
	searchCmd.Flags().BoolVar(&searchExplain, "explain", false, "include each hit's bm25 score in the response")
	searchCmd.Flags().StringVar(&searchProfile, "profile", "", "fast|agent result-set sizing")
	searchCmd.Flags().IntVar(&searchBudget, "budget", 0, "override the profile's result budget")
}

// SearchHit is one ranked search result (spec §4.5, §7).
type SearchHit struct {
	Path     string  `json:"path"`
	Line     int     `json:"line"`
	Name     string  `json:"name,omitempty"`
	Kind     string  `json:"kind,omitempty"`
	DocType  string  `json:"doc_type"`
	Score    string  `json:"score"`
	BM25     string  `json:"bm25,omitempty"`
	Language string  `json:"language,omitempty"`
}

func runSearch(ctx context.Context, root, query string) ([]SearchHit, error) {
	if searchRegex {
		searchNoIndex = true
	}

	scope, outside, err := resolveScope(root, searchPath)
	if err != nil {
		return nil, err
	}
	if outside {
		return nil, nil
	}

	limit := searchLimit
	if searchProfile != "" {
		budget := searchBudget
		if budget <= 0 {
			cfg, _ := config.Load(root)
			if cfg.Agent.DefaultBudget > 0 {
				budget = cfg.Agent.DefaultBudget
			}
		}
		if budget > 0 {
			limit = budget
		}
	}

	var changedPaths map[string]bool
	if searchChanged != "" {
		res, err := gitscope.Changed(ctx, root, searchChanged)
		if err != nil {
			return nil, &errs.UserInputError{Field: "changed", Message: err.Error()}
		}
		changedPaths = make(map[string]bool, len(res.Paths))
		for _, abs := range res.Paths {
			rel, err := relFromRoot(root, abs)
			if err == nil {
				changedPaths[rel] = true
			}
		}
	}

	if searchNoIndex {
		return regexScanSearch(root, query, scope, changedPaths, limit)
	}

	if !bleveindex.Exists(root) {
		return regexScanSearch(root, query, scope, changedPaths, limit)
	}

	idx, err := bleveindex.OpenReadOnly(root)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	cfg, _ := config.Load(root)
	weights := bleveindex.Weights(cfg.Weights)

	hits, err := idx.Search(query, bleveindex.SearchOptions{
		Scope:        scope,
		Phrase:       looksLikePhrase(query),
		ChangedPaths: changedPaths,
		Size:         limit,
		Weights:      &weights,
	})
	if err != nil {
		return nil, err
	}

	out := make([]SearchHit, 0, len(hits))
	for i, h := range hits {
		if i >= limit {
			break
		}
		sh := SearchHit{Path: h.Path, Line: h.LineNumber, Name: h.Name, Kind: h.Kind(), DocType: string(h.DocType), Language: h.Language, Score: json2.FormatFloat(h.Score)}
		if searchExplain {
			sh.BM25 = json2.FormatFloat(h.BM25)
		}
		out = append(out, sh)
	}
	return out, nil
}

var identifierLike = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*((::|\.)[A-Za-z_][A-Za-z0-9_]*)*$`)

func looksLikePhrase(q string) bool {
	return strings.ContainsAny(q, " \t") && !identifierLike.MatchString(q)
}

func printSearchHits(hits []SearchHit) {
	for _, h := range hits {
		kind := h.Kind
		if kind == "" {
			kind = h.DocType
		}
		fmt.Printf("%s:%d\t%s\t%s\t%s\n", h.Path, h.Line, kind, h.Name, h.Score)
	}
}
