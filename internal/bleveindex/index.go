// Package bleveindex implements the Index Writer and Index Reader /
// Query Layer (spec §4.4, §4.5) on top of bleve's scorch segment store,
// which realizes the "tree of meta.json + segments" layout spec §6.1
// requires of the full-text index.
package bleveindex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"cgrep/internal/errs"
	"cgrep/internal/logging"
)

// Dir returns the full-text index directory under <root>/.cgrep/.
func Dir(root string) string { return filepath.Join(root, ".cgrep", "index") }

// Index wraps a bleve index with the commit/verify contract of spec §4.4.
type Index struct {
	bi   bleve.Index
	root string
}

// Exists reports whether an index directory is already present at root.
func Exists(root string) bool {
	_, err := os.Stat(filepath.Join(Dir(root), "index_meta.json"))
	return err == nil
}

// Open opens (or, if force or absent, creates) the index at root
// (spec §4.4 step 3).
func Open(root string, force bool) (*Index, error) {
	log := logging.Get(logging.CategoryIndex)
	dir := Dir(root)

	if force {
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("bleveindex: clear existing index: %w", err)
		}
	}

	if !Exists(root) {
		if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
			return nil, err
		}
		m, err := buildMapping()
		if err != nil {
			return nil, fmt.Errorf("bleveindex: build mapping: %w", err)
		}
		bi, err := bleve.New(dir, m)
		if err != nil {
			return nil, fmt.Errorf("bleveindex: create: %w", err)
		}
		log.Info("index: created fresh index at %s", dir)
		return &Index{bi: bi, root: root}, nil
	}

	bi, err := bleve.Open(dir)
	if err != nil {
		return nil, &errs.CorruptIndexError{Root: root, Err: err}
	}
	log.Info("index: opened existing index at %s", dir)
	return &Index{bi: bi, root: root}, nil
}

// OpenReadOnly opens an existing index for query-only callers (spec §4.5
// "Opening"). It is not a read-only open: bleve's default open already
// tolerates concurrent readers while a writer holds the batch lock, so
// this is the same call as Open with force=false; callers that only query should use
// this name for clarity and must not mutate the returned Index.
func OpenReadOnly(root string) (*Index, error) {
	if !Exists(root) {
		return nil, &errs.IndexNotFoundError{Root: root}
	}
	return Open(root, false)
}

// Close releases the underlying bleve index.
func (x *Index) Close() error {
	if x.bi == nil {
		return nil
	}
	return x.bi.Close()
}

// Batch accumulates document writes/deletes for one commit.
type Batch struct {
	b *bleve.Batch
}

// NewBatch starts a new write batch.
func (x *Index) NewBatch() *Batch { return &Batch{b: x.bi.NewBatch()} }

// IndexFileDoc stages the single file doc for path; its symbol docs are
// staged into the same batch with IndexSymbolDoc (spec §4.4 step 4:
// "write one file doc plus N symbol docs in a single writer batch").
func (b *Batch) IndexFileDoc(relPath string, doc Document) error {
	return b.b.Index(fileDocID(relPath), doc)
}

// IndexSymbolDoc stages one symbol doc.
func (b *Batch) IndexSymbolDoc(symbolID string, doc Document) error {
	return b.b.Index(symbolID, doc)
}

// DeleteID stages a deletion by document ID.
func (b *Batch) DeleteID(id string) { b.b.Delete(id) }

// fileDocID is the stable bleve document ID for a file doc.
func fileDocID(relPath string) string { return "file:" + relPath }

// Commit executes the batch atomically against the index and fsyncs
// (spec §4.4 step 6). Batch commit failures leave the previous index
// state intact — bleve never partially applies a batch.
func (x *Index) Commit(b *Batch) error {
	if err := x.bi.Batch(b.b); err != nil {
		return fmt.Errorf("bleveindex: commit batch: %w", err)
	}
	return nil
}

// DeletePathDocs deletes the file doc and every symbol doc whose
// path_exact equals rel (spec §4.4 step 5, §3.2 invariant).
func (x *Index) DeletePathDocs(b *Batch, rel string) error {
	ids, err := x.idsForPath(rel)
	if err != nil {
		return err
	}
	for _, id := range ids {
		b.DeleteID(id)
	}
	return nil
}

func (x *Index) idsForPath(rel string) ([]string, error) {
	q := bleve.NewTermQuery(rel)
	q.SetField("path_exact")
	req := bleve.NewSearchRequest(q)
	req.Size = 100000
	req.Fields = nil
	res, err := x.bi.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleveindex: find docs for %s: %w", rel, err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// VerifyCommitted performs the post-commit verification of spec §4.4 step
// 8: re-open the index read-only and confirm a non-zero doc count whenever
// the manifest is non-empty.
func VerifyCommitted(root string, expectNonEmpty bool) error {
	idx, err := OpenReadOnly(root)
	if err != nil {
		return err
	}
	defer idx.Close()

	count, err := idx.bi.DocCount()
	if err != nil {
		return fmt.Errorf("bleveindex: post-commit doc count: %w", err)
	}
	if expectNonEmpty && count == 0 {
		return fmt.Errorf("bleveindex: post-commit verification failed: index at %s has zero documents", root)
	}
	return nil
}

// DocCount returns the number of documents currently committed.
func (x *Index) DocCount() (uint64, error) { return x.bi.DocCount() }

// HasExpectedSchema reports whether the open index's field mapping still
// carries the fields cgrep's writer and query layer depend on, catching
// an index left over from an older, incompatible field layout
// (spec §4.10 "index_schema_mismatch").
func (x *Index) HasExpectedSchema() bool {
	im, ok := x.bi.Mapping().(*mapping.IndexMappingImpl)
	if !ok || im.DefaultMapping == nil {
		return false
	}
	for _, field := range []string{"path_exact", "doc_type", "symbol_id"} {
		if _, ok := im.DefaultMapping.Properties[field]; !ok {
			return false
		}
	}
	return true
}

// symbolDocID implements spec §3.2's stable symbol_id format:
// "<rel_path>#<kind>@<line>:<column>".
func symbolDocID(relPath, kind string, line, column int) string {
	return fmt.Sprintf("%s#%s@%d:%d", relPath, kind, line, column)
}

// SymbolDocID is the exported form used by callers building documents.
func SymbolDocID(relPath, kind string, line, column int) string {
	return symbolDocID(relPath, kind, line, column)
}

// NormalizeRel ensures forward slashes, matching spec §3.1's path
// convention.
func NormalizeRel(rel string) string { return filepath.ToSlash(strings.TrimPrefix(rel, "./")) }
