package symbols

import (
	"testing"
)

const goSample = `package sample

func Helper(x int) int {
	return x + 1
}

type Thing struct {
	Name string
}

func (t Thing) Method() string {
	return t.Name
}
`

func TestExtractGoFunctionsAndMethods(t *testing.T) {
	syms, ok, err := Extract("sample.go", "go", []byte(goSample))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !ok {
		t.Fatalf("Extract reported no grammar for go")
	}

	names := make(map[string]Kind)
	for _, s := range syms {
		names[s.Name] = s.Kind
	}
	if _, ok := names["Helper"]; !ok {
		t.Fatalf("expected Helper among extracted symbols: %+v", syms)
	}
	if _, ok := names["Thing"]; !ok {
		t.Fatalf("expected Thing among extracted symbols: %+v", syms)
	}
	if _, ok := names["Method"]; !ok {
		t.Fatalf("expected Method among extracted symbols: %+v", syms)
	}
}

func TestExtractUnknownLanguageReturnsNotOK(t *testing.T) {
	syms, ok, err := Extract("x.unknown", "cobol", []byte("anything"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for a language with no registered grammar")
	}
	if syms != nil {
		t.Fatalf("expected nil symbols for an unregistered language, got %+v", syms)
	}
}

const pythonSample = `def helper(x):
    return x + 1


class Thing:
    def method(self):
        return self.x
`

func TestExtractPythonFunctionsAndClasses(t *testing.T) {
	syms, ok, err := Extract("sample.py", "python", []byte(pythonSample))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !ok {
		t.Fatalf("Extract reported no grammar for python")
	}
	names := make(map[string]bool)
	for _, s := range syms {
		names[s.Name] = true
	}
	if !names["helper"] || !names["Thing"] || !names["method"] {
		t.Fatalf("missing expected python symbols: %+v", syms)
	}
}

func TestDedupCollapsesSameKeySymbols(t *testing.T) {
	syms := []Symbol{
		{Name: "Foo", Kind: KindFunction, Line: 1, Column: 1, EndLine: 2},
		{Name: "foo", Kind: KindFunction, Line: 1, Column: 1, EndLine: 2},
		{Name: "Bar", Kind: KindFunction, Line: 5, Column: 1, EndLine: 6},
	}
	out := dedup(syms)
	if len(out) != 2 {
		t.Fatalf("expected dedup to collapse the case-insensitive duplicate, got %+v", out)
	}
}

func TestDedupSortsByLine(t *testing.T) {
	syms := []Symbol{
		{Name: "B", Kind: KindFunction, Line: 10, Column: 1, EndLine: 10},
		{Name: "A", Kind: KindFunction, Line: 2, Column: 1, EndLine: 2},
	}
	out := dedup(syms)
	if out[0].Name != "A" || out[1].Name != "B" {
		t.Fatalf("dedup did not sort by line: %+v", out)
	}
}

func TestCanonicalizeCppFunctionNameStripsParamsAndSigils(t *testing.T) {
	cases := map[string]string{
		"foo(int x, int y)":    "foo",
		"*bar":                 "bar",
		"Namespace::Qualified": "Namespace::Qualified",
		"  (baz)  ":            "baz",
	}
	for in, want := range cases {
		if got := canonicalizeCppFunctionName(in); got != want {
			t.Errorf("canonicalizeCppFunctionName(%q) = %q, want %q", in, got, want)
		}
	}
}

const cppSample = `struct TensorIteratorConfig {
 public:
  TensorIteratorConfig& set_check_mem_overlap(bool b) {
    check_mem_overlap_ = b;
    return *this;
  }

 private:
  bool check_mem_overlap_ = false;
};

struct ForwardDeclaredOnly;

enum class Color {
  Red,
  Green,
  Blue,
};
`

func TestExtractCppSingleSymbolPerOrdinaryDeclaration(t *testing.T) {
	syms, ok, err := Extract("sample.cpp", "cpp", []byte(cppSample))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !ok {
		t.Fatalf("Extract reported no grammar for cpp")
	}

	counts := make(map[string]int)
	for _, s := range syms {
		counts[s.Name]++
	}

	if counts["TensorIteratorConfig"] != 1 {
		t.Fatalf("expected exactly 1 symbol for TensorIteratorConfig (grammar pass + aux pass must not double-emit), got %d: %+v", counts["TensorIteratorConfig"], syms)
	}
	if counts["ForwardDeclaredOnly"] != 0 {
		t.Fatalf("expected a bodiless forward declaration to be excluded, got %d occurrences: %+v", counts["ForwardDeclaredOnly"], syms)
	}
	if counts["Color"] != 1 {
		t.Fatalf("expected exactly 1 symbol for the Color enum, got %d: %+v", counts["Color"], syms)
	}
}

const cppMacroDecoratedSample = `TORCH_API class MY_EXPORT ConfigHolder {
 public:
  int value;
};
`

func TestExtractCppAuxiliaryPassBackstopsMacroDecoratedType(t *testing.T) {
	syms, ok, err := Extract("sample.cpp", "cpp", []byte(cppMacroDecoratedSample))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !ok {
		t.Fatalf("Extract reported no grammar for cpp")
	}
	found := false
	for _, s := range syms {
		if s.Name == "ConfigHolder" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the auxiliary pass to recover ConfigHolder when macro decoration confuses the grammar pass: %+v", syms)
	}
}

func TestHasGrammarReportsKnownLanguages(t *testing.T) {
	if !HasGrammar("go") {
		t.Fatalf("expected go to have a registered grammar")
	}
	if HasGrammar("cobol") {
		t.Fatalf("expected cobol to have no registered grammar")
	}
}
