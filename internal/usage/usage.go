// Package usage implements the Usage Extractors (spec §4.6): AST-based
// reference/caller detection with a regex fallback for languages without a
// grammar, or when the caller explicitly selects --mode regex.
package usage

import (
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"cgrep/internal/logging"
	"cgrep/internal/symbols"
)

func parseForUsage(language string, content []byte) (*sitter.Tree, bool) {
	tree, ok, err := symbols.ParseTree(language, content)
	if err != nil || !ok {
		return nil, false
	}
	return tree, true
}

// Mode selects which tier to run.
type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeAST   Mode = "ast"
	ModeRegex Mode = "regex"
)

// Location is a single reference or call site within a file.
type Location struct {
	Line   int
	Column int
}

var identLikeNode = map[string]bool{
	"identifier": true, "field_identifier": true, "type_identifier": true,
	"property_identifier": true, "shorthand_property_identifier": true,
}

var callNode = map[string]bool{
	"call_expression": true, "method_invocation": true, "call": true, "function_call_expression": true,
}

// FindReferences returns every identifier-like occurrence of name in
// content, deduped by (line, column) per file (spec §4.6).
func FindReferences(language string, content []byte, name string, mode Mode) []Location {
	log := logging.Get(logging.CategoryUsage)
	if mode != ModeRegex {
		if tree, ok := parseForUsage(language, content); ok {
			defer tree.Close()
			locs := astReferences(tree.RootNode(), content, name)
			log.Debug("usage: ast references for %s: %d hits", name, len(locs))
			return dedupLocations(locs)
		}
		if mode == ModeAST {
			return nil
		}
	}
	return dedupLocations(regexReferences(content, name))
}

// FindCallers returns every call-expression location whose callee resolves
// to name (spec §4.6), deduped by line.
func FindCallers(language string, content []byte, name string, mode Mode) []Location {
	if mode != ModeRegex {
		if tree, ok := parseForUsage(language, content); ok {
			defer tree.Close()
			locs := astCallers(tree.RootNode(), content, name)
			return dedupByLine(locs)
		}
		if mode == ModeAST {
			return nil
		}
	}
	return dedupByLine(regexCallers(content, name))
}

func astReferences(root *sitter.Node, content []byte, name string) []Location {
	var out []Location
	walk(root, func(n *sitter.Node) {
		if !identLikeNode[n.Type()] {
			return
		}
		text := trimReference(n.Content(content))
		if text == name {
			out = append(out, Location{Line: int(n.StartPoint().Row) + 1, Column: int(n.StartPoint().Column) + 1})
		}
	})
	return out
}

func astCallers(root *sitter.Node, content []byte, name string) []Location {
	var out []Location
	walk(root, func(n *sitter.Node) {
		if !callNode[n.Type()] {
			return
		}
		callee := n.ChildByFieldName("function")
		if callee == nil {
			callee = n.Child(0)
		}
		if callee == nil {
			return
		}
		deepest := deepestIdentifier(callee, content)
		if deepest == name {
			out = append(out, Location{Line: int(n.StartPoint().Row) + 1, Column: int(n.StartPoint().Column) + 1})
		}
	})
	return out
}

// deepestIdentifier extracts the callee's deepest identifier, skipping the
// argument list (spec §4.6).
func deepestIdentifier(n *sitter.Node, content []byte) string {
	cur := n
	for {
		switch cur.Type() {
		case "member_expression", "field_expression", "attribute", "selector_expression", "scoped_identifier":
			if prop := cur.ChildByFieldName("property"); prop != nil {
				cur = prop
				continue
			}
			if field := cur.ChildByFieldName("field"); field != nil {
				cur = field
				continue
			}
			if name := cur.ChildByFieldName("name"); name != nil {
				cur = name
				continue
			}
		}
		break
	}
	return trimReference(cur.Content(content))
}

// trimReference strips a trailing "?" and leading qualifiers
// ("A::B::x" -> "x", "obj.x" -> "x"), per spec §4.6.
func trimReference(s string) string {
	s = strings.TrimSuffix(s, "?")
	if i := strings.LastIndex(s, "::"); i >= 0 {
		s = s[i+2:]
	}
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	return s
}

func walk(root *sitter.Node, visit func(*sitter.Node)) {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(n)
		count := int(n.ChildCount())
		for i := count - 1; i >= 0; i-- {
			stack = append(stack, n.Child(i))
		}
	}
}

func dedupLocations(locs []Location) []Location {
	seen := make(map[Location]bool, len(locs))
	out := make([]Location, 0, len(locs))
	for _, l := range locs {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	return out
}

func dedupByLine(locs []Location) []Location {
	seen := make(map[int]bool, len(locs))
	out := make([]Location, 0, len(locs))
	for _, l := range locs {
		if seen[l.Line] {
			continue
		}
		seen[l.Line] = true
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

var definitionKeywords = []string{"function ", "fn ", "def ", "func "}

func regexReferences(content []byte, name string) []Location {
	pat := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	return scanPattern(content, pat, false)
}

func regexCallers(content []byte, name string) []Location {
	pat := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*\(`)
	return scanPattern(content, pat, true)
}

// scanPattern applies pat line-by-line; when rejectDefinitions is set,
// lines that look like the target's own definition are skipped (spec
// §4.6 regex tier).
func scanPattern(content []byte, pat *regexp.Regexp, rejectDefinitions bool) []Location {
	var out []Location
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if !pat.MatchString(line) {
			continue
		}
		if rejectDefinitions && looksLikeDefinition(line) {
			continue
		}
		locs := pat.FindAllStringIndex(line, -1)
		for _, loc := range locs {
			out = append(out, Location{Line: i + 1, Column: loc[0] + 1})
		}
	}
	return out
}

func looksLikeDefinition(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, kw := range definitionKeywords {
		if strings.HasPrefix(trimmed, kw) {
			return true
		}
	}
	return false
}
