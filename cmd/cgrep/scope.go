package main

import (
	"path/filepath"
	"strings"

	"cgrep/internal/bleveindex"
	"cgrep/internal/errs"
)

// resolveScope turns a `-p/--path` flag into a bleveindex.Scope, narrowed to
// root. An empty pathFlag means "no narrowing" (spec §4.5.1 "returns None
// when the scope equals the index root"). A path outside root reports
// outside=true so the caller can short-circuit to an empty result rather
// than erroring (spec §4.5 "Scope normalization").
func resolveScope(root, pathFlag string) (scope bleveindex.Scope, outside bool, err error) {
	if pathFlag == "" {
		return bleveindex.Scope{}, false, nil
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return bleveindex.Scope{}, false, err
	}
	target := pathFlag
	if !filepath.IsAbs(target) {
		target = filepath.Join(rootAbs, target)
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return bleveindex.Scope{}, false, err
	}

	rel, err := filepath.Rel(rootAbs, absTarget)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return bleveindex.Scope{}, true, nil
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return bleveindex.Scope{}, false, nil
	}

	scope = bleveindex.Scope{Prefixes: []string{rel}}
	if alias := symlinkAlias(rootAbs, absTarget, rel); alias != "" {
		scope.Aliases = map[string][]string{rel: {alias}}
	}
	return scope, false, nil
}

// symlinkAlias computes rel's equivalent path when root and target are
// resolved through any symlinks in their path (spec §4.5.1/§9: a scope
// reached through a symlinked directory — e.g. /var vs /private/var on
// macOS — must still match docs indexed under their real path). Returns
// "" when symlink resolution fails or resolves to the same relative path.
func symlinkAlias(rootAbs, absTarget, rel string) string {
	realRoot, err := filepath.EvalSymlinks(rootAbs)
	if err != nil {
		return ""
	}
	realTarget, err := filepath.EvalSymlinks(absTarget)
	if err != nil {
		return ""
	}
	realRel, err := filepath.Rel(realRoot, realTarget)
	if err != nil {
		return ""
	}
	realRel = filepath.ToSlash(realRel)
	if realRel == rel || realRel == "." || realRel == ".." || strings.HasPrefix(realRel, "../") {
		return ""
	}
	return realRel
}

// requireScope is the strict counterpart used by commands that must reject
// (rather than silently empty-out) an out-of-root scope, e.g. `map`/`read`.
func requireScope(root, pathFlag string) (bleveindex.Scope, error) {
	scope, outside, err := resolveScope(root, pathFlag)
	if err != nil {
		return scope, err
	}
	if outside {
		return scope, &errs.ScopeOutsideRootError{Root: root, Scope: pathFlag}
	}
	return scope, nil
}

func resolvePath(root, rel string) string {
	if rel == "" {
		return root
	}
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(root, rel)
}
