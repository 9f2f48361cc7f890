// Package render implements the Read/Map Renderer (spec §4.7, component
// H): rendering a file (or a line range of one) in one of several
// modes, and the bounded recursive directory map used by `cgrep map`.
package render

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"cgrep/internal/scanner"
)

// Mode is the detected rendering strategy for a file (spec §4.7 "Read
// modes").
type Mode string

const (
	ModeFull      Mode = "full"
	ModeOutline   Mode = "outline"
	ModeSection   Mode = "section"
	ModeDirectory Mode = "directory"
	ModeBinary    Mode = "binary"
	ModeEmpty     Mode = "empty"
	ModeGenerated Mode = "generated"
)

// ReadResult is the payload returned by Read (spec §4.7).
type ReadResult struct {
	Path        string   `json:"path"`
	Mode        Mode     `json:"mode"`
	Lines       []string `json:"lines,omitempty"`
	StartLine   int      `json:"start_line,omitempty"`
	EndLine     int      `json:"end_line,omitempty"`
	TotalLines  int      `json:"total_lines"`
	Truncated   bool     `json:"truncated,omitempty"`
	Outline     []OutlineEntry `json:"outline,omitempty"`
}

// OutlineEntry is one entry of a file's outline (spec §4.7 "Outline
// dispatchers").
type OutlineEntry struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Line    int    `json:"line"`
	EndLine int    `json:"end_line,omitempty"`
}

// MaxFullLines bounds how large a file can be before Read downgrades
// from ModeFull to ModeOutline (spec §4.7 "Full-file size ceiling").
const MaxFullLines = 2000

// generatedMarkers are header substrings that flag a file as machine
// generated (spec §4.7 "generated" mode).
var generatedMarkers = []string{"DO NOT EDIT", "Code generated by", "@generated", "AUTO-GENERATED"}

// Read renders path according to spec §4.7's mode-detection rules. When
// startLine/endLine are both zero, the whole file (or its outline, if
// too large) is returned; otherwise a bounded "section" read is done.
func Read(path string, startLine, endLine int) (ReadResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ReadResult{}, err
	}
	if info.IsDir() {
		return ReadResult{}, fmt.Errorf("render: %s is a directory, use Map instead", path)
	}
	if info.Size() == 0 {
		return ReadResult{Path: path, Mode: ModeEmpty}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ReadResult{}, err
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return ReadResult{Path: path, Mode: ModeBinary}, nil
	}

	lines := splitLines(data)
	result := ReadResult{Path: path, TotalLines: len(lines)}

	if startLine > 0 {
		return sectionRead(result, lines, startLine, endLine), nil
	}

	if isGenerated(lines) {
		result.Mode = ModeGenerated
		result.Lines = firstN(lines, 20)
		result.StartLine, result.EndLine = 1, len(result.Lines)
		return result, nil
	}

	if len(lines) > MaxFullLines {
		result.Mode = ModeOutline
		result.Outline = Outline(path, data)
		return result, nil
	}

	result.Mode = ModeFull
	result.Lines = lines
	result.StartLine, result.EndLine = 1, len(lines)
	return result, nil
}

func sectionRead(result ReadResult, lines []string, start, end int) ReadResult {
	if end <= 0 || end < start {
		end = start
	}
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	result.Mode = ModeSection
	if start > len(lines) {
		result.StartLine, result.EndLine = len(lines)+1, len(lines)
		return result
	}
	result.Lines = lines[start-1 : end]
	result.StartLine, result.EndLine = start, end
	return result
}

func firstN(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[:n]
}

func isGenerated(lines []string) bool {
	limit := 5
	if len(lines) < limit {
		limit = len(lines)
	}
	for _, l := range lines[:limit] {
		for _, marker := range generatedMarkers {
			if strings.Contains(l, marker) {
				return true
			}
		}
	}
	return false
}

func splitLines(data []byte) []string {
	scannerB := bufio.NewScanner(bytes.NewReader(data))
	scannerB.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var lines []string
	for scannerB.Scan() {
		lines = append(lines, scannerB.Text())
	}
	return lines
}

// DirEntry is one entry in a Map result (spec §4.7 "map").
type DirEntry struct {
	Name     string     `json:"name"`
	IsDir    bool       `json:"is_dir"`
	Children []DirEntry `json:"children,omitempty"`
}

// MapOptions bounds the recursive directory walk (spec §4.7 "map").
type MapOptions struct {
	MaxDepth   int
	MaxEntries int
}

// DefaultMapOptions matches the teacher's scanner defaults in magnitude.
func DefaultMapOptions() MapOptions { return MapOptions{MaxDepth: 6, MaxEntries: 5000} }

// Map performs a bounded recursive walk of root, skipping the same
// always-ignored directories as the file scanner (spec §4.7 "map"
// reuses scanner eligibility rules so the map matches what `index`
// would scan).
func Map(root string, opts MapOptions) (DirEntry, bool, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMapOptions().MaxDepth
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMapOptions().MaxEntries
	}
	budget := opts.MaxEntries
	truncated := false
	entry, err := walkDir(root, filepath.Base(root), 0, opts.MaxDepth, &budget, &truncated)
	return entry, truncated, err
}

func walkDir(abs, name string, depth, maxDepth int, budget *int, truncated *bool) (DirEntry, error) {
	result := DirEntry{Name: name, IsDir: true}
	if depth >= maxDepth {
		return result, nil
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return result, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if *budget <= 0 {
			*truncated = true
			return result, nil
		}
		if e.IsDir() {
			if scanner.AlwaysSkipDir(e.Name()) {
				continue
			}
			if strings.HasPrefix(e.Name(), ".") && !scanner.IsAllowedHiddenDir(e.Name()) {
				continue
			}
			*budget--
			child, err := walkDir(filepath.Join(abs, e.Name()), e.Name(), depth+1, maxDepth, budget, truncated)
			if err != nil {
				continue
			}
			result.Children = append(result.Children, child)
			continue
		}
		*budget--
		result.Children = append(result.Children, DirEntry{Name: e.Name()})
	}
	return result, nil
}
