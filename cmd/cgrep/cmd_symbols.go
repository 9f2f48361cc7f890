package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cgrep/internal/bleveindex"
	"cgrep/internal/errs"
	"cgrep/internal/json2"
)

var (
	symbolsType string
	symbolsLang string
	symbolsPath string
	symbolsExact bool

	definitionPath  string
	definitionLimit int
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols <name>",
	Short: "List symbols matching name (substring match by default)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc := newRunCtx("symbols")
		hits, err := runSymbols(rc.root, args[0], symbolsPath, symbolsLang, symbolsType, symbolsExact)
		if err != nil {
			os.Exit(rc.emitError(err))
		}
		os.Exit(rc.emitResults(hits, func() { printDefinitionHits(hits) }))
		return nil
	},
}

var definitionCmd = &cobra.Command{
	Use:   "definition <name>",
	Short: "Rank exact symbol definitions matching name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc := newRunCtx("definition")
		hits, err := runSymbols(rc.root, args[0], definitionPath, "", "", true)
		if err != nil {
			os.Exit(rc.emitError(err))
		}
		if len(hits) > definitionLimit && definitionLimit > 0 {
			hits = hits[:definitionLimit]
		}
		os.Exit(rc.emitResults(hits, func() { printDefinitionHits(hits) }))
		return nil
	},
}

func init() {
	symbolsCmd.Flags().StringVarP(&symbolsType, "type", "T", "", "restrict to a symbol kind (function, class, ...)")
	symbolsCmd.Flags().StringVar(&symbolsLang, "lang", "", "restrict to a language")
	symbolsCmd.Flags().StringVarP(&symbolsPath, "path", "p", "", "narrow to a scope directory/file")
	symbolsCmd.Flags().BoolVar(&symbolsExact, "exact", false, "require an exact (non-substring) name match")

	definitionCmd.Flags().StringVarP(&definitionPath, "path", "p", "", "narrow to a scope directory/file")
	definitionCmd.Flags().IntVarP(&definitionLimit, "limit", "m", 20, "maximum definitions returned")
}

// DefinitionHit is one symbol match (spec §3.3, §7).
type DefinitionHit struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Path     string `json:"path"`
	Line     int    `json:"line"`
	EndLine  int    `json:"end_line,omitempty"`
	Language string `json:"language,omitempty"`
	Score    string `json:"score,omitempty"`
}

func runSymbols(root, name, pathFlag, lang, kind string, exact bool) ([]DefinitionHit, error) {
	scope, outside, err := resolveScope(root, pathFlag)
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

	hits, err := idx.SearchSymbolDefinitions(name, exact, scope)
	if err != nil {
		return nil, err
	}

	out := make([]DefinitionHit, 0, len(hits))
	for _, h := range hits {
		if lang != "" && h.Language != lang {
			continue
		}
		k := h.Kind()
		if kind != "" && !strings.EqualFold(k, kind) {
			continue
		}
		out = append(out, DefinitionHit{Name: h.Name, Kind: k, Path: h.Path, Line: h.LineNumber, EndLine: h.SymbolEndLine, Language: h.Language, Score: json2.FormatFloat(h.BM25)})
	}
	return out, nil
}

func printDefinitionHits(hits []DefinitionHit) {
	for _, h := range hits {
		fmt.Printf("%s:%d\t%s\t%s\n", h.Path, h.Line, h.Kind, h.Name)
	}
}
