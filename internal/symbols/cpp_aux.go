package symbols

import (
	"regexp"
	"strings"
)

// auxDeclPattern matches "(class|struct|enum) NAME" at the start of a
// (possibly attribute/macro-decorated) declaration line, per spec §4.3
// "C/C++ auxiliary type pass".
var auxDeclPattern = regexp.MustCompile(`\b(class|struct|enum)\s+([A-Za-z_][A-Za-z0-9_:]*)\b`)

var macroLikePattern = regexp.MustCompile(`^(__.*|[A-Z0-9_]+)$`)

// scanCppAuxiliaryTypes synthesizes symbols for attribute/macro-decorated
// type declarations that confuse grammar-based extraction. It rejects
// macro-like candidate names and forward declarations (spec §4.3), and
// skips any (line, name) the grammar pass already extracted so an
// ordinary, unambiguous declaration never yields two symbols for one
// type (spec §4.3 dedup invariant) — this pass exists only to catch what
// the grammar missed.
func scanCppAuxiliaryTypes(content string, already []Symbol) []Symbol {
	lines := strings.Split(content, "\n")
	var out []Symbol

	kindFor := map[string]Kind{"class": KindClass, "struct": KindStruct, "enum": KindEnum}
	nextIdent := regexp.MustCompile(`^\s+([A-Za-z_][A-Za-z0-9_:]*)`)

	foundAt := make(map[int]map[string]bool, len(already))
	for _, s := range already {
		if foundAt[s.Line] == nil {
			foundAt[s.Line] = make(map[string]bool)
		}
		foundAt[s.Line][strings.ToLower(s.Name)] = true
	}

	for i, line := range lines {
		m := auxDeclPattern.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		kw := line[m[2]:m[3]]
		nameStart, nameEnd := m[4], m[5]
		// A macro-like token after the keyword ("class MY_EXPORT Foo") is
		// a decoration: step past it to the next identifier.
		for macroLikePattern.MatchString(line[nameStart:nameEnd]) {
			next := nextIdent.FindStringSubmatchIndex(line[nameEnd:])
			if next == nil {
				break
			}
			nameStart, nameEnd = nameEnd+next[2], nameEnd+next[3]
		}
		name := line[nameStart:nameEnd]

		if macroLikePattern.MatchString(name) {
			continue
		}

		if foundAt[i+1][strings.ToLower(name)] {
			// The grammar pass already produced a symbol for this type on
			// this line; it parsed cleanly and needs no synthetic backstop.
			continue
		}

		trimmed := strings.TrimSpace(line)
		if strings.HasSuffix(trimmed, ";") {
			// Forward declaration: "class Foo;" — excluded.
			continue
		}

		if !declarationOpensBlock(lines, i) {
			continue
		}

		col := m[4] + 1 // byte offset within the line, 1-based
		out = append(out, Symbol{
			Name:    name,
			Kind:    kindFor[kw],
			Line:    i + 1,
			Column:  col,
			EndLine: i + 1,
		})
	}
	return out
}

// declarationOpensBlock reports whether the declaration starting at line i
// is followed (within 3 non-blank lines) by an opening brace, or
// terminates that same line with "{".
func declarationOpensBlock(lines []string, i int) bool {
	if strings.Contains(lines[i], "{") {
		return true
	}
	seen := 0
	for j := i + 1; j < len(lines) && seen < 3; j++ {
		l := strings.TrimSpace(lines[j])
		if l == "" {
			continue
		}
		seen++
		if strings.Contains(l, "{") {
			return true
		}
		if strings.HasSuffix(l, ";") {
			return false
		}
	}
	return false
}
