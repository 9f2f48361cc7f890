package symbols

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"cgrep/internal/logging"
)

// ParseTree parses content as language using the shared per-language
// parser pool. ok is false when no grammar is registered for language.
func ParseTree(language string, content []byte) (tree *sitter.Tree, ok bool, err error) {
	return pool.parse(language, content)
}

// Extract parses content as language and returns its deduplicated,
// forward-declaration-filtered symbol list (spec §4.3). Languages without
// a registered grammar return (nil, false) so the caller can fall back to
// the regex tier.
func Extract(path, language string, content []byte) ([]Symbol, bool, error) {
	log := logging.Get(logging.CategorySymbols)
	table, ok := languageTable[language]
	if !ok {
		return nil, false, nil
	}

	tree, ok, err := pool.parse(language, content)
	if err != nil || !ok {
		return nil, ok, err
	}
	defer tree.Close()

	var syms []Symbol
	walk(tree.RootNode(), nil, func(n *sitter.Node, ancestors []*sitter.Node) bool {
		r, defined := table[n.Type()]
		if !defined {
			return true
		}
		if n.Type() == "function_declarator" && hasAncestorOfType(ancestors, "function_definition") {
			// Inner declarator of a function_definition is not a separate
			// symbol (spec §4.3 "Skipping inner declarators").
			return true
		}
		if isCLike(language) && isForwardDeclaration(n) {
			// "struct Foo;" / "class Foo;" / "enum Foo;" carry no body
			// child; spec §4.3 only asks that forward declarations be
			// excluded from the auxiliary text pass, but the same rule
			// has to hold for the grammar-based path too, or a header
			// pair of (forward decl, real definition) would emit two
			// symbols instead of one (spec §8 scenario S4).
			return true
		}
		if sym, ok := buildSymbol(n, r, language, content); ok {
			syms = append(syms, sym)
		}
		return true
	})

	if isCLike(language) {
		syms = append(syms, scanCppAuxiliaryTypes(string(content), syms)...)
	}

	before := len(syms)
	syms = dedup(syms)
	log.Debug("extract: %s -> %d symbols (%d before dedup)", path, len(syms), before)
	return syms, true, nil
}

// walk performs an explicit work-stack traversal rather than native
// recursion (spec §9 "Tree-walking recursion"), so the accumulator never
// holds borrows into the tree beyond a node's lifetime: callbacks receive
// only values copied out at visit time.
func walk(root *sitter.Node, ancestors []*sitter.Node, visit func(n *sitter.Node, ancestors []*sitter.Node) bool) {
	type frame struct {
		node      *sitter.Node
		ancestors []*sitter.Node
	}
	stack := []frame{{root, ancestors}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(f.node, f.ancestors) {
			continue
		}
		childAncestors := append(append([]*sitter.Node{}, f.ancestors...), f.node)
		n := int(f.node.ChildCount())
		for i := n - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.Child(i), childAncestors})
		}
	}
}

// isForwardDeclaration reports whether a struct/class/enum specifier
// node has no body child, i.e. it is "struct Foo;" rather than
// "struct Foo { ... };" (spec §4.3, §8 S4).
func isForwardDeclaration(n *sitter.Node) bool {
	switch n.Type() {
	case "struct_specifier", "class_specifier":
		return n.ChildByFieldName("body") == nil
	case "enum_specifier":
		return n.ChildByFieldName("body") == nil
	default:
		return false
	}
}

func hasAncestorOfType(ancestors []*sitter.Node, t string) bool {
	for _, a := range ancestors {
		if a.Type() == t {
			return true
		}
	}
	return false
}

// fallbackDepth bounds the C-like name-resolution fallback search
// (spec §4.3 "Name resolution").
const fallbackDepth = 6

func buildSymbol(n *sitter.Node, r rule, language string, content []byte) (Symbol, bool) {
	name := ""
	if r.nameField != "" {
		if nameNode := n.ChildByFieldName(r.nameField); nameNode != nil {
			name = nameNode.Content(content)
		}
	}

	kind := r.kind
	if name == "" && isCLike(language) {
		if decl := n.ChildByFieldName("declarator"); decl != nil {
			name = canonicalizeCppFunctionName(decl.Content(content))
		}
		if name == "" {
			if found := findDescendantName(n, fallbackDepth, content); found != "" {
				name = found
			}
		}
		if n.Type() == "function_definition" {
			kind = KindFunction
		}
	}

	if name == "" {
		return Symbol{}, false
	}
	if isCLike(language) && (n.Type() == "function_definition" || n.Type() == "function_declarator") {
		name = canonicalizeCppFunctionName(name)
	}

	startLine := int(n.StartPoint().Row) + 1
	startCol := int(n.StartPoint().Column) + 1
	endLine := int(n.EndPoint().Row) + 1
	if endLine < startLine {
		endLine = startLine
	}

	return Symbol{
		Name:      name,
		Kind:      kind,
		Line:      startLine,
		Column:    startCol,
		EndLine:   endLine,
		ByteStart: int(n.StartByte()),
		ByteEnd:   int(n.EndByte()),
	}, true
}

// findDescendantName searches for the first descendant of kind
// type_identifier | identifier | qualified_identifier within a bounded
// depth (spec §4.3).
func findDescendantName(n *sitter.Node, maxDepth int, content []byte) string {
	type frame struct {
		node  *sitter.Node
		depth int
	}
	stack := []frame{{n, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.depth > maxDepth {
			continue
		}
		switch f.node.Type() {
		case "type_identifier", "identifier", "qualified_identifier":
			if f.node != n {
				return f.node.Content(content)
			}
		}
		count := int(f.node.ChildCount())
		for i := count - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.Child(i), f.depth + 1})
		}
	}
	return ""
}

// canonicalizeCppFunctionName reduces a raw declarator to a canonical
// function name (spec §4.3 "C/C++ canonicalization for function names"):
// strip trailing parameter list, strip leading/trailing &/*, strip
// surrounding parens, take the last whitespace-delimited token.
func canonicalizeCppFunctionName(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "&*")
	s = strings.TrimSpace(s)
	for strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// dedup collapses symbols sharing (kind, line, column, end_line,
// lower(name)), keeping the first occurrence (spec §4.3 "Dedup key").
func dedup(syms []Symbol) []Symbol {
	seen := make(map[dedupKey]bool, len(syms))
	out := make([]Symbol, 0, len(syms))
	for _, s := range syms {
		k := dedupKey{kind: s.Kind, line: s.Line, column: s.Column, endLine: s.EndLine, name: strings.ToLower(s.Name)}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}
