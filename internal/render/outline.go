package render

import (
	"bufio"
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"cgrep/internal/scanner"
	"cgrep/internal/symbols"
)

// Outline dispatches to the right outline strategy for path's detected
// type (spec §4.7 "Outline dispatchers": code / markdown / structured /
// tabular / log / generic).
func Outline(path string, content []byte) []OutlineEntry {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	language := scanner.DetectLanguage(ext)

	switch {
	case language == "markdown":
		return markdownOutline(content)
	case language == "json" || language == "yaml" || language == "toml":
		return structuredOutline(content)
	case ext == "csv" || ext == "tsv":
		return tabularOutline(content)
	case ext == "log":
		return logOutline(content)
	case symbols.HasGrammar(language):
		return codeOutline(path, language, content)
	default:
		return genericOutline(content)
	}
}

// codeOutline reuses the same symbol extractor as the indexer, so a
// file's outline matches exactly what `cgrep symbols` would report for
// it (spec §4.7 "Code outline mirrors the symbol index").
func codeOutline(path, language string, content []byte) []OutlineEntry {
	syms, ok, err := symbols.Extract(path, language, content)
	if err != nil || !ok {
		return genericOutline(content)
	}
	out := make([]OutlineEntry, 0, len(syms))
	for _, s := range syms {
		out = append(out, OutlineEntry{Name: s.Name, Kind: string(s.Kind), Line: s.Line, EndLine: s.EndLine})
	}
	return out
}

var markdownHeading = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

func markdownOutline(content []byte) []OutlineEntry {
	var out []OutlineEntry
	sc := bufio.NewScanner(bytes.NewReader(content))
	line := 0
	for sc.Scan() {
		line++
		m := markdownHeading.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		out = append(out, OutlineEntry{Name: strings.TrimSpace(m[2]), Kind: "heading", Line: line})
	}
	return out
}

// structuredOutline reports top-level keys of a JSON/YAML/TOML document
// by indentation only: a key line starting at column 0 counts as
// top-level. Brace depth is not tracked, so JSON whose keys are indented
// yields no entries. A cheap approximation that avoids pulling in a full
// parser just to list top-level sections.
var topLevelKey = regexp.MustCompile(`^(["']?)([A-Za-z0-9_.\-]+)["']?\s*[:=]`)

func structuredOutline(content []byte) []OutlineEntry {
	var out []OutlineEntry
	sc := bufio.NewScanner(bytes.NewReader(content))
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if len(text) == 0 || text[0] == ' ' || text[0] == '\t' {
			continue
		}
		m := topLevelKey.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		out = append(out, OutlineEntry{Name: m[2], Kind: "key", Line: line})
	}
	return out
}

func tabularOutline(content []byte) []OutlineEntry {
	sc := bufio.NewScanner(bytes.NewReader(content))
	if !sc.Scan() {
		return nil
	}
	header := sc.Text()
	sep := ","
	if strings.Contains(header, "\t") {
		sep = "\t"
	}
	cols := strings.Split(header, sep)
	out := make([]OutlineEntry, 0, len(cols))
	for i, c := range cols {
		out = append(out, OutlineEntry{Name: strings.TrimSpace(c), Kind: "column", Line: 1, EndLine: i})
	}
	return out
}

var logLevelPattern = regexp.MustCompile(`\b(ERROR|WARN|FATAL|PANIC)\b`)

// logOutline surfaces only the lines that look like elevated-severity
// entries, since a full log is rarely worth a line-by-line outline.
func logOutline(content []byte) []OutlineEntry {
	var out []OutlineEntry
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		m := logLevelPattern.FindString(text)
		if m == "" {
			continue
		}
		out = append(out, OutlineEntry{Name: truncate(text, 120), Kind: strings.ToLower(m), Line: line})
	}
	return out
}

// genericOutline falls back to reporting blank-line-delimited paragraph
// start lines for any file type with no dedicated dispatcher.
func genericOutline(content []byte) []OutlineEntry {
	var out []OutlineEntry
	sc := bufio.NewScanner(bytes.NewReader(content))
	line := 0
	inParagraph := false
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			inParagraph = false
			continue
		}
		if !inParagraph {
			out = append(out, OutlineEntry{Name: truncate(text, 80), Kind: "paragraph", Line: line})
			inParagraph = true
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
