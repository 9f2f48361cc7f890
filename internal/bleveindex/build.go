package bleveindex

import (
	"fmt"
	"os"
	"strings"

	"cgrep/internal/logging"
	"cgrep/internal/manifest"
	"cgrep/internal/symbols"
)

// FileInput is everything the builder needs for one file (spec §4.4
// step 4: "parse once, extract symbols once, write one file doc plus N
// symbol docs").
type FileInput struct {
	Rel      string
	Abs      string
	Language string
}

// BuildResult summarizes one Build call for stats.json (spec §6.2).
type BuildResult struct {
	FilesIndexed   int
	SymbolsIndexed int
	FilesDeleted   int
	Errors         []string
}

// Build applies a manifest diff to the index: deletes docs for removed
// paths, then re-indexes added and modified paths, parsing each file at
// most once for both its file doc and its symbol docs (spec §4.4).
func Build(idx *Index, diff *manifest.Diff, inputs map[string]FileInput) (*BuildResult, error) {
	log := logging.Get(logging.CategoryIndex)
	result := &BuildResult{}
	batch := idx.NewBatch()

	for _, path := range diff.Deleted {
		if err := idx.DeletePathDocs(batch, path); err != nil {
			return nil, err
		}
		result.FilesDeleted++
	}

	toIndex := append(append([]string{}, diff.Added...), diff.Modified...)
	for _, path := range toIndex {
		in, ok := inputs[path]
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: no scan input", path))
			continue
		}
		// A file being re-indexed first needs its previous docs cleared,
		// since symbol counts/positions may have shifted (spec §4.4 step 5).
		if err := idx.DeletePathDocs(batch, path); err != nil {
			return nil, err
		}

		content, err := os.ReadFile(in.Abs)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
			continue
		}

		rel := NormalizeRel(path)
		fileDoc := Document{
			Path:      rel,
			PathExact: rel,
			Content:   string(content),
			Language:  in.Language,
			DocType:   DocTypeFile,
			LineNumber: 1,
		}
		if err := batch.IndexFileDoc(rel, fileDoc); err != nil {
			return nil, err
		}
		result.FilesIndexed++

		syms, ok, err := symbols.Extract(in.Abs, in.Language, content)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: symbol extraction: %v", path, err))
		}
		if ok {
			names := make([]string, 0, len(syms))
			for _, s := range syms {
				names = append(names, s.Name)
			}
			fileDoc.Symbols = strings.Join(names, " ")
			if err := batch.IndexFileDoc(rel, fileDoc); err != nil {
				return nil, err
			}

			for _, s := range syms {
				id := SymbolDocID(rel, string(s.Kind), s.Line, s.Column)
				doc := Document{
					Path:          rel,
					PathExact:     rel,
					Language:      in.Language,
					Symbols:       s.Name,
					DocType:       DocTypeSymbol,
					SymbolID:      id,
					SymbolEndLine: s.EndLine,
					LineNumber:    s.Line,
				}
				if err := batch.IndexSymbolDoc(id, doc); err != nil {
					return nil, err
				}
				result.SymbolsIndexed++
			}
		}
	}

	if err := idx.Commit(batch); err != nil {
		return nil, err
	}
	log.Info("build: indexed %d files (%d symbols), deleted %d, %d errors",
		result.FilesIndexed, result.SymbolsIndexed, result.FilesDeleted, len(result.Errors))

	return result, nil
}
