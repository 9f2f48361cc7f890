package main

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"cgrep/internal/bleveindex"
	"cgrep/internal/scanner"
)

func relFromRoot(root, abs string) (string, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// regexScanSearch implements the `--no-index`/`--regex` fallback tier of
// `search` (spec §6.2 "--no-index"): walk the same file set the indexer
// would, and grep each file's lines directly rather than querying bleve.
func regexScanSearch(root, query string, scope bleveindex.Scope, changed map[string]bool, limit int) ([]SearchHit, error) {
	var pat *regexp.Regexp
	var err error
	if searchRegex {
		pat, err = regexp.Compile(query)
	} else {
		pat, err = regexp.Compile(regexp.QuoteMeta(query))
	}
	if err != nil {
		return nil, err
	}

	files, err := scanner.Scan(context.Background(), root, scanner.DefaultOptions())
	if err != nil {
		return nil, err
	}

	var out []SearchHit
	for _, f := range files {
		if len(scope.Prefixes) > 0 && !inScope(f.Rel, scope.Prefixes) {
			continue
		}
		if searchGlob != "" {
			if ok, _ := filepath.Match(searchGlob, f.Rel); !ok {
				continue
			}
		}
		if searchExclude != "" {
			if ok, _ := filepath.Match(searchExclude, f.Rel); ok {
				continue
			}
		}

		data, err := os.ReadFile(f.Abs)
		if err != nil {
			continue
		}
		for i, line := range strings.Split(string(data), "\n") {
			if !pat.MatchString(line) {
				continue
			}
			score := "1.0"
			if changed[f.Rel] {
				score = "1.25"
			}
			out = append(out, SearchHit{Path: f.Rel, Line: i + 1, DocType: "file", Language: f.Language, Score: score})
			if len(out) >= limit*4 {
				break
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Line < out[j].Line
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func inScope(rel string, prefixes []string) bool {
	for _, p := range prefixes {
		if rel == p || strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}
