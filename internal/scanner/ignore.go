package scanner

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ignoreMatcher is a minimal .gitignore-chain matcher: patterns from
// .gitignore and .git/info/exclude, relative to root, with later rules
// overriding earlier ones (last-match-wins, as git itself does). It
// supports the common subset: trailing-slash directory rules, leading
// "!" negation, and path.Match globs, where "*" (and so "**") never
// crosses a "/" — sufficient for the scanner's
// ignore-rule policy (spec §4.1). No pack example vends a gitignore
// library; this is implemented directly (see DESIGN.md).
type ignoreMatcher struct {
	rules []rule
}

type rule struct {
	pattern  string
	negate   bool
	dirOnly  bool
	anchored bool // pattern contained a "/" before the final segment
}

func loadIgnoreMatcher(root string, opts Options) (*ignoreMatcher, error) {
	if opts.IncludeIgnored || !opts.RespectGitignore {
		return nil, nil
	}
	m := &ignoreMatcher{}
	for _, p := range []string{filepath.Join(root, ".gitignore"), filepath.Join(root, ".git", "info", "exclude")} {
		if err := m.loadFile(p); err != nil && !os.IsNotExist(err) {
			return m, err
		}
	}
	return m, nil
}

func (m *ignoreMatcher) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " ")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r := rule{}
		if strings.HasPrefix(line, "!") {
			r.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			r.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.Contains(strings.TrimPrefix(line, "/"), "/") {
			r.anchored = true
		}
		line = strings.TrimPrefix(line, "/")
		r.pattern = line
		m.rules = append(m.rules, r)
	}
	return sc.Err()
}

func (m *ignoreMatcher) matchDir(rel string) bool  { return m.match(rel, true) }
func (m *ignoreMatcher) matchFile(rel string) bool { return m.match(rel, false) }

func (m *ignoreMatcher) match(rel string, isDir bool) bool {
	if m == nil || rel == "." {
		return false
	}
	matched := false
	base := path.Base(rel)
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		var hit bool
		if r.anchored {
			hit, _ = path.Match(r.pattern, rel)
		} else {
			hit, _ = path.Match(r.pattern, base)
			if !hit {
				hit, _ = path.Match(r.pattern, rel)
			}
		}
		if hit {
			matched = !r.negate
		}
	}
	return matched
}
