package bleveindex

import (
	"regexp"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"cgrep/internal/logging"
)

// Scope narrows a search to one or more path prefixes (spec §4.5
// "Scope"), with an optional set of symlink aliases that must be unioned
// in so a scope reached through a symlinked path still matches docs
// indexed under their real path.
type Scope struct {
	Prefixes []string
	Aliases  map[string][]string // literal scope prefix -> symlink-resolved prefixes
}

// BuildScopePathQuery implements spec §4.5's "build_scope_path_query":
// an OR of prefix-matches over path_exact, unioning every symlink alias
// of every scope prefix so a result is returned exactly once regardless
// of which path it was reached through.
func BuildScopePathQuery(scope Scope) query.Query {
	if len(scope.Prefixes) == 0 {
		return bleve.NewMatchAllQuery()
	}
	var disjuncts []query.Query
	seen := make(map[string]bool)
	add := func(prefix string) {
		prefix = strings.TrimSuffix(filepathToSlash(prefix), "/")
		if seen[prefix] {
			return
		}
		seen[prefix] = true
		pq := bleve.NewPrefixQuery(prefix)
		pq.SetField("path_exact")
		disjuncts = append(disjuncts, pq)
		eq := bleve.NewTermQuery(prefix)
		eq.SetField("path_exact")
		disjuncts = append(disjuncts, eq)
	}
	for _, p := range scope.Prefixes {
		add(p)
		for _, alias := range scope.Aliases[p] {
			add(alias)
		}
	}
	return bleve.NewDisjunctionQuery(disjuncts...)
}

func filepathToSlash(p string) string { return strings.ReplaceAll(p, `\`, "/") }

// SearchOptions configures a full-text query (spec §4.5).
type SearchOptions struct {
	Scope          Scope
	Language       string
	DocType        DocType
	Phrase         bool
	ChangedPaths   map[string]bool // boost files touched by --changed
	Size           int
	IdentifierLike bool
	// Weights overrides the default boost constants (spec §9 Open
	// Questions: "weights are tuning constants, not invariants"). Nil
	// uses the built-in defaults.
	Weights *Weights
}

// Weights holds the additive ranking-boost constants of spec §4.5's
// "final = bm25 * (1 + ...)" formula, mirroring internal/config's
// on-disk shape so a loaded .cgrep.toml can override them wholesale.
type Weights struct {
	PathBoost    float64
	SymbolBoost  float64
	ChangedBoost float64
	KindBoost    float64
	DepthPenalty float64
}

// DefaultWeights are the built-in boost constants applied when a
// SearchOptions carries no override.
func DefaultWeights() Weights {
	return Weights{PathBoost: 0.2, SymbolBoost: 0.35, ChangedBoost: 0.25, KindBoost: 0.1, DepthPenalty: 0.05}
}

// identifierLikeQuery implements spec §4.5's "Identifier-like detection":
// a single token matching [A-Za-z_][A-Za-z0-9_]*, with optional :: or .
// segments. Phrase-like queries take the non-identifier path.
var identifierLikeQuery = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*((::|\.)[A-Za-z_][A-Za-z0-9_]*)*$`)

// IsIdentifierLike reports whether term qualifies for path_boost eligibility.
func IsIdentifierLike(term string) bool { return identifierLikeQuery.MatchString(term) }

// pathStem returns the file name with its extension removed, the unit
// path_boost compares an identifier-like query against.
func pathStem(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}

// Hit is one ranked result (spec §4.5 ranking formula).
type Hit struct {
	Path          string
	Name          string
	SymbolID      string
	DocType       DocType
	Language      string
	LineNumber    int
	SymbolEndLine int
	Score         float64
	BM25          float64
}

// Kind parses the symbol kind out of a symbol_id of the form
// "<rel_path>#<kind>@<line>:<column>" (spec §3.2).
func (h Hit) Kind() string {
	i := strings.IndexByte(h.SymbolID, '#')
	j := strings.IndexByte(h.SymbolID, '@')
	if i < 0 || j < 0 || j < i {
		return ""
	}
	return h.SymbolID[i+1 : j]
}

// Search runs a full-text query over content/symbols and applies the
// ranking boost formula of spec §4.5:
//
//	final = bm25 * (1 + path_boost + symbol_boost + changed_boost + kind_boost + penalties)
func (x *Index) Search(term string, opts SearchOptions) ([]Hit, error) {
	log := logging.Get(logging.CategoryIndex)

	// Identifier-likeness is an intrinsic property of the query term
	// (spec §4.5 "Identifier-like detection"), not a caller preference.
	opts.IdentifierLike = IsIdentifierLike(term)

	var textQuery query.Query
	if opts.Phrase {
		mq := bleve.NewMatchPhraseQuery(term)
		mq.SetField("content")
		textQuery = mq
	} else {
		disj := bleve.NewDisjunctionQuery(
			fieldMatch(term, "content"),
			fieldMatch(term, "symbols"),
		)
		textQuery = disj
	}

	conjuncts := []query.Query{textQuery}
	if scopeQuery := BuildScopePathQuery(opts.Scope); len(opts.Scope.Prefixes) > 0 {
		conjuncts = append(conjuncts, scopeQuery)
	}
	if opts.Language != "" {
		lq := bleve.NewTermQuery(opts.Language)
		lq.SetField("language")
		conjuncts = append(conjuncts, lq)
	}
	if opts.DocType != "" {
		dq := bleve.NewTermQuery(string(opts.DocType))
		dq.SetField("doc_type")
		conjuncts = append(conjuncts, dq)
	}

	q := bleve.NewConjunctionQuery(conjuncts...)
	req := bleve.NewSearchRequest(q)
	req.Size = opts.Size
	if req.Size <= 0 {
		req.Size = 100
	}
	req.Fields = []string{"path", "doc_type", "language", "symbol_id", "line_number", "symbol_end_line", "symbols"}
	req.IncludeLocations = true

	res, err := x.bi.Search(req)
	if err != nil {
		return nil, err
	}
	log.Debug("query: %q -> %d raw hits", term, len(res.Hits))

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := hydrateHit(h)
		hit.BM25 = h.Score
		hit.Score = applyBoosts(h.Score, hit, opts, term)
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Path != hits[j].Path {
			return hits[i].Path < hits[j].Path
		}
		return hits[i].LineNumber < hits[j].LineNumber
	})
	return hits, nil
}

func fieldMatch(term, field string) query.Query {
	mq := bleve.NewMatchQuery(term)
	mq.SetField(field)
	return mq
}

func hydrateHit(h *search.DocumentMatch) Hit {
	hit := Hit{Path: asString(h.Fields["path"])}
	hit.DocType = DocType(asString(h.Fields["doc_type"]))
	hit.Language = asString(h.Fields["language"])
	hit.SymbolID = asString(h.Fields["symbol_id"])
	hit.LineNumber = asInt(h.Fields["line_number"])
	hit.SymbolEndLine = asInt(h.Fields["symbol_end_line"])
	hit.Name = asString(h.Fields["symbols"])
	return hit
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

// applyBoosts implements spec §4.5's additive boost terms on top of BM25.
func applyBoosts(bm25 float64, hit Hit, opts SearchOptions, term string) float64 {
	w := DefaultWeights()
	if opts.Weights != nil {
		w = *opts.Weights
	}

	var boost float64
	if opts.IdentifierLike && strings.EqualFold(pathStem(hit.Path), term) {
		boost += w.PathBoost // the query names the file itself, e.g. "config" -> config.go
	}
	if hit.DocType == DocTypeSymbol {
		boost += w.SymbolBoost // a named definition outranks plain text
	}
	if opts.ChangedPaths != nil && opts.ChangedPaths[hit.Path] {
		boost += w.ChangedBoost // files touched by --changed surface first
	}
	if isIdentifierLikeKind(hit.SymbolID) {
		boost += w.KindBoost // function/class/method kinds over locals
	}
	if strings.Count(hit.Path, "/") > 4 {
		boost -= w.DepthPenalty // deeply nested paths rank slightly lower
	}

	return bm25 * (1 + boost)
}

func isIdentifierLikeKind(symbolID string) bool {
	for _, k := range []string{"#function@", "#class@", "#method@", "#interface@", "#struct@"} {
		if strings.Contains(symbolID, k) {
			return true
		}
	}
	return false
}

// FindFilesWithContent implements spec §4.5's find_files_with_content:
// a content-only query scoped to a set of path prefixes, returning
// distinct file paths sorted lexicographically.
func (x *Index) FindFilesWithContent(term string, scope Scope) ([]string, error) {
	hits, err := x.Search(term, SearchOptions{Scope: scope, DocType: DocTypeFile, Size: 10000})
	if err != nil {
		return nil, err
	}
	return distinctPaths(hits), nil
}

// FindFilesWithSymbolDefinition implements spec §4.5's
// find_files_with_symbol_definition at file granularity: exact mode
// matches the symbol name as a whole identifier, contains mode matches
// any symbol doc whose stored name contains name as a substring. When
// the index is absent, callers are expected to fall back to a regex
// scan via the usage package (spec §4.5 "Index-absent fallback") —
// that fallback is the caller's responsibility, not this function's.
func (x *Index) FindFilesWithSymbolDefinition(name string, exact bool, scope Scope) ([]string, error) {
	hits, err := x.SearchSymbolDefinitions(name, exact, scope)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(hits))
	for _, h := range hits {
		paths = append(paths, h.Path)
	}
	return distinctSorted(paths), nil
}

// SearchSymbolDefinitions implements spec §4.5's
// find_files_with_symbol_definition at full-hit granularity (name, path,
// line) rather than distinct-path granularity, so `definition`/`symbols`
// can rank and display individual symbols. Exact mode term-matches the
// analyzed symbols field and keeps only hits whose stored name equals
// name case-insensitively; contains mode fetches every symbol doc in
// scope and filters on the raw stored name in post-processing, since
// the analyzer may have split a CamelCase/snake_case name into
// sub-tokens that no longer support substring matching at the index
// level (spec §4.5 "find_files_with_symbol_definition").
func (x *Index) SearchSymbolDefinitions(name string, exact bool, scope Scope) ([]Hit, error) {
	conjuncts := []query.Query{mustDocType(DocTypeSymbol)}
	if len(scope.Prefixes) > 0 {
		conjuncts = append(conjuncts, BuildScopePathQuery(scope))
	}
	if exact {
		tq := bleve.NewTermQuery(strings.ToLower(name))
		tq.SetField("symbols")
		conjuncts = append(conjuncts, tq)
	}

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(conjuncts...))
	req.Size = 10000
	req.Fields = []string{"path", "symbol_id", "line_number", "symbol_end_line", "language", "symbols"}
	res, err := x.bi.Search(req)
	if err != nil {
		return nil, err
	}

	lowerName := strings.ToLower(name)
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		storedName := asString(h.Fields["symbols"])
		if exact && strings.ToLower(storedName) != lowerName {
			// The term query also hits CamelCase/snake_case sub-tokens;
			// exact mode keeps only whole-name matches.
			continue
		}
		if !exact && !strings.Contains(strings.ToLower(storedName), lowerName) {
			continue
		}
		hit := hydrateHit(h)
		hit.BM25 = h.Score
		hit.Score = h.Score
		hits = append(hits, hit)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Path != hits[j].Path {
			return hits[i].Path < hits[j].Path
		}
		return hits[i].LineNumber < hits[j].LineNumber
	})
	return hits, nil
}

func mustDocType(t DocType) query.Query {
	q := bleve.NewTermQuery(string(t))
	q.SetField("doc_type")
	return q
}

func distinctPaths(hits []Hit) []string {
	seen := make(map[string]bool, len(hits))
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if seen[h.Path] {
			continue
		}
		seen[h.Path] = true
		out = append(out, h.Path)
	}
	sort.Strings(out)
	return out
}

func distinctSorted(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
