package symbols

import (
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// grammarFor is the process-wide language -> grammar registry (spec §9
// "Global/static language registry"). It is populated once, at package
// initialization, and is read-only afterwards — exactly the pattern spec §9 prescribes in place of
// a mutable global map.
var grammarFor = map[string]func() *sitter.Language{
	"go":         golang.GetLanguage,
	"python":     python.GetLanguage,
	"javascript": javascript.GetLanguage,
	"typescript": typescript.GetLanguage,
	"rust":       rust.GetLanguage,
	"java":       java.GetLanguage,
	"c":          cpp.GetLanguage,
	"cpp":        cpp.GetLanguage,
	"ruby":       ruby.GetLanguage,
}

// HasGrammar reports whether language has an AST grammar; languages
// without one always go through the regex tier.
func HasGrammar(language string) bool {
	_, ok := grammarFor[language]
	return ok
}

// parserPool caches one *sitter.Parser per language, reused across files —
// construction is expensive and parsers are safe to reuse once
// reconfigured via SetLanguage (spec §9 "Parser reuse across files"),
// mirroring the teacher's Scanner.parserPool (internal/world/fs.go).
type langParser struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

type parserPool struct {
	mu     sync.Mutex
	byLang map[string]*langParser
}

var pool = &parserPool{byLang: make(map[string]*langParser)}

func (p *parserPool) entry(language string) (*langParser, bool) {
	newLang, ok := grammarFor[language]
	if !ok {
		return nil, false
	}
	p.mu.Lock()
	lp, ok := p.byLang[language]
	if !ok {
		lp = &langParser{parser: sitter.NewParser()}
		lp.parser.SetLanguage(newLang())
		p.byLang[language] = lp
	}
	p.mu.Unlock()
	return lp, true
}

// parse reuses the language's shared parser, serialized with a mutex: the
// parser is reused across files (spec §9), but a *sitter.Parser is not
// safe for concurrent Parse calls from multiple goroutines.
func (p *parserPool) parse(language string, content []byte) (*sitter.Tree, bool, error) {
	lp, ok := p.entry(language)
	if !ok {
		return nil, false, nil
	}
	lp.mu.Lock()
	defer lp.mu.Unlock()
	tree, err := lp.parser.ParseCtx(context.Background(), nil, content)
	return tree, true, err
}
