// Package symbols implements the AST-driven Symbol Extractor (spec §4.3):
// per-language dispatch over tree-sitter grammars, C/C++ canonicalization,
// deduplication, and forward-declaration filtering.
package symbols

// Kind is one of the symbol kinds enumerated in spec §3.3.
type Kind string

const (
	KindFunction  Kind = "function"
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindType      Kind = "type"
	KindVariable  Kind = "variable"
	KindConstant  Kind = "constant"
	KindEnum      Kind = "enum"
	KindModule    Kind = "module"
	KindStruct    Kind = "struct"
	KindTrait     Kind = "trait"
	KindMethod    Kind = "method"
	KindProperty  Kind = "property"
	KindUnknown   Kind = "unknown"
)

// Symbol is one extracted definition (spec §3.3).
type Symbol struct {
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	ByteStart int    `json:"byte_start,omitempty"`
	ByteEnd   int    `json:"byte_end,omitempty"`
	Scope     string `json:"scope,omitempty"`
}

// dedupKey implements the uniqueness invariant of spec §3.3/§4.3:
// (kind, line, column, end_line, lowercased name).
type dedupKey struct {
	kind    Kind
	line    int
	column  int
	endLine int
	name    string
}
