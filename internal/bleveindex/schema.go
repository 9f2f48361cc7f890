package bleveindex

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// DocType distinguishes the two document variants sharing one schema
// (spec §3.2).
type DocType string

const (
	DocTypeFile   DocType = "file"
	DocTypeSymbol DocType = "symbol"
)

// Document is the bleve document indexed for both file and symbol
// variants (spec §3.2). Fields unused by a variant are left zero-valued.
type Document struct {
	Path          string  `json:"path"`
	PathExact     string  `json:"path_exact"`
	Content       string  `json:"content,omitempty"`
	Language      string  `json:"language,omitempty"`
	Symbols       string  `json:"symbols,omitempty"`
	DocType       DocType `json:"doc_type"`
	SymbolID      string  `json:"symbol_id,omitempty"`
	SymbolEndLine int     `json:"symbol_end_line,omitempty"`
	LineNumber    int     `json:"line_number,omitempty"`
}

// buildDocumentMapping assembles the field-level analyzer wiring described
// in spec §3.2: path is word-tokenized for display search, path_exact is an
// unanalyzed keyword used for scope filtering, symbols/content use the
// code-identifier and default analyzers respectively, and doc_type/language
// are exact-match keywords.
func buildDocumentMapping() *mapping.DocumentMapping {
	dm := bleve.NewDocumentMapping()

	path := bleve.NewTextFieldMapping()
	path.Analyzer = pathAnalyzerName
	dm.AddFieldMappingsAt("path", path)

	pathExact := bleve.NewTextFieldMapping()
	pathExact.Analyzer = keywordAnalyzerName
	dm.AddFieldMappingsAt("path_exact", pathExact)

	content := bleve.NewTextFieldMapping()
	content.Analyzer = pathAnalyzerName
	dm.AddFieldMappingsAt("content", content)

	language := bleve.NewTextFieldMapping()
	language.Analyzer = keywordAnalyzerName
	dm.AddFieldMappingsAt("language", language)

	docType := bleve.NewTextFieldMapping()
	docType.Analyzer = keywordAnalyzerName
	dm.AddFieldMappingsAt("doc_type", docType)

	symbolID := bleve.NewTextFieldMapping()
	symbolID.Analyzer = keywordAnalyzerName
	dm.AddFieldMappingsAt("symbol_id", symbolID)

	symbols := bleve.NewTextFieldMapping()
	symbols.Analyzer = codeIdentifierAnalyzerName
	dm.AddFieldMappingsAt("symbols", symbols)

	endLine := bleve.NewNumericFieldMapping()
	dm.AddFieldMappingsAt("symbol_end_line", endLine)

	lineNumber := bleve.NewNumericFieldMapping()
	dm.AddFieldMappingsAt("line_number", lineNumber)

	return dm
}
