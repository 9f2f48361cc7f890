package bleveindex

import (
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

// The code-identifier analyzer realizes spec §3.2: "analyzed with a code-
// identifier tokenizer that preserves underscores and splits
// snake_case/CamelCase into reusable sub-tokens." It is registered with
// bleve's global registry so it can be referenced by name from an
// IndexMapping, the way a custom analyzer is wired into any bleve schema.
const (
	identTokenizerName  = "cgrep_ident"
	camelSnakeFilterName = "cgrep_camel_snake"
	codeIdentifierAnalyzerName = "code_identifier"
	pathAnalyzerName           = "cgrep_path"
	keywordAnalyzerName        = "keyword"
)

func init() {
	registry.RegisterTokenizer(identTokenizerName, func(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
		return identTokenizer{}, nil
	})
	registry.RegisterTokenFilter(camelSnakeFilterName, func(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
		return camelSnakeFilter{}, nil
	})
}

// buildMapping assembles the IndexMapping used for every cgrep index
// (spec §3.2). It must be called once per process before any bleve.New /
// bleve.Open so the custom analyzer names resolve.
func buildMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	if err := im.AddCustomAnalyzer(codeIdentifierAnalyzerName, map[string]interface{}{
		"type":          "custom",
		"tokenizer":     identTokenizerName,
		"token_filters": []interface{}{camelSnakeFilterName, "to_lower"},
	}); err != nil {
		return nil, err
	}
	if err := im.AddCustomAnalyzer(pathAnalyzerName, map[string]interface{}{
		"type":          "custom",
		"tokenizer":     "unicode",
		"token_filters": []interface{}{"to_lower"},
	}); err != nil {
		return nil, err
	}

	im.DefaultAnalyzer = pathAnalyzerName
	im.DefaultMapping = buildDocumentMapping()
	return im, nil
}

// identTokenizer splits on runs of characters that are neither letters,
// digits, nor underscores — preserving underscores within a token.
type identTokenizer struct{}

func (identTokenizer) Tokenize(input []byte) analysis.TokenStream {
	var stream analysis.TokenStream
	pos := 1
	start := -1
	isWordByte := func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
	}

	runes := []rune(string(input))
	offsets := make([]int, len(runes)+1)
	byteOffset := 0
	for i, r := range runes {
		offsets[i] = byteOffset
		byteOffset += len(string(r))
	}
	offsets[len(runes)] = byteOffset

	flush := func(endIdx int) {
		if start < 0 {
			return
		}
		term := string(runes[start:endIdx])
		stream = append(stream, &analysis.Token{
			Term:     []byte(term),
			Start:    offsets[start],
			End:      offsets[endIdx],
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		start = -1
	}

	for i, r := range runes {
		if isWordByte(r) {
			if start < 0 {
				start = i
			}
		} else {
			flush(i)
		}
	}
	flush(len(runes))

	return stream
}

// camelSnakeFilter expands each token into its snake_case/CamelCase
// sub-tokens in addition to the original token, so "TensorIteratorConfig"
// is also reachable via "tensor", "iterator", and "config", and
// "add_owned_output" is also reachable via "add", "owned", "output"
// (spec §3.2).
type camelSnakeFilter struct{}

func (camelSnakeFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := make(analysis.TokenStream, 0, len(input))
	for _, tok := range input {
		out = append(out, tok)
		for _, sub := range splitIdentifier(string(tok.Term)) {
			if sub == string(tok.Term) {
				continue
			}
			out = append(out, &analysis.Token{
				Term:     []byte(sub),
				Start:    tok.Start,
				End:      tok.End,
				Position: tok.Position,
				Type:     analysis.AlphaNumeric,
			})
		}
	}
	return out
}

// splitIdentifier breaks an identifier into lowercase sub-words on
// underscore boundaries and CamelCase transitions.
func splitIdentifier(s string) []string {
	var words []string
	var cur []rune
	runes := []rune(s)

	flush := func() {
		if len(cur) == 0 {
			return
		}
		words = append(words, string(cur))
		cur = nil
	}

	for i, r := range runes {
		if r == '_' {
			flush()
			continue
		}
		if i > 0 {
			prev := runes[i-1]
			upperRun := unicode.IsUpper(prev) && unicode.IsUpper(r) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			camelBoundary := unicode.IsLower(prev) && unicode.IsUpper(r)
			digitBoundary := unicode.IsDigit(prev) != unicode.IsDigit(r)
			if camelBoundary || upperRun || digitBoundary {
				flush()
			}
		}
		cur = append(cur, unicode.ToLower(r))
	}
	flush()
	return words
}
