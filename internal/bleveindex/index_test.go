package bleveindex

import (
	"testing"

	"cgrep/internal/errs"
)

func TestOpenCreatesIndexWhenAbsent(t *testing.T) {
	root := t.TempDir()
	if Exists(root) {
		t.Fatalf("Exists reported true before any index was created")
	}
	idx, err := Open(root, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()
	if !Exists(root) {
		t.Fatalf("Exists reported false after Open created an index")
	}
}

func TestOpenReadOnlyOnMissingIndexReturnsIndexNotFoundError(t *testing.T) {
	_, err := OpenReadOnly(t.TempDir())
	if err == nil {
		t.Fatalf("expected an error opening a read-only index that doesn't exist")
	}
	if _, ok := err.(*errs.IndexNotFoundError); !ok {
		t.Fatalf("expected *errs.IndexNotFoundError, got %T: %v", err, err)
	}
}

func TestOpenForceClearsExistingIndex(t *testing.T) {
	root := t.TempDir()
	idx, err := Open(root, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	batch := idx.NewBatch()
	if err := batch.IndexFileDoc("a.go", Document{Path: "a.go", PathExact: "a.go", Content: "package a", DocType: DocTypeFile}); err != nil {
		t.Fatalf("IndexFileDoc: %v", err)
	}
	if err := idx.Commit(batch); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	idx.Close()

	idx2, err := Open(root, true)
	if err != nil {
		t.Fatalf("Open(force): %v", err)
	}
	defer idx2.Close()
	count, err := idx2.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected a forced re-open to start from an empty index, got %d docs", count)
	}
}

func TestCommitAndSearchRoundTrip(t *testing.T) {
	root := t.TempDir()
	idx, err := Open(root, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	batch := idx.NewBatch()
	doc := Document{Path: "a.go", PathExact: "a.go", Content: "func helper() {}", Language: "go", DocType: DocTypeFile}
	if err := batch.IndexFileDoc(NormalizeRel("a.go"), doc); err != nil {
		t.Fatalf("IndexFileDoc: %v", err)
	}
	if err := idx.Commit(batch); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := VerifyCommitted(root, true); err != nil {
		t.Fatalf("VerifyCommitted: %v", err)
	}

	hits, err := idx.Search("helper", SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Path != "a.go" {
		t.Fatalf("unexpected search hits: %+v", hits)
	}
}

func TestDeletePathDocsRemovesFileAndSymbolDocs(t *testing.T) {
	root := t.TempDir()
	idx, err := Open(root, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	rel := NormalizeRel("a.go")
	batch := idx.NewBatch()
	fileDoc := Document{Path: rel, PathExact: rel, Content: "package a", DocType: DocTypeFile}
	if err := batch.IndexFileDoc(rel, fileDoc); err != nil {
		t.Fatalf("IndexFileDoc: %v", err)
	}
	symID := SymbolDocID(rel, "function", 3, 1)
	symDoc := Document{Path: rel, PathExact: rel, Symbols: "helper", DocType: DocTypeSymbol, SymbolID: symID, LineNumber: 3}
	if err := batch.IndexSymbolDoc(symID, symDoc); err != nil {
		t.Fatalf("IndexSymbolDoc: %v", err)
	}
	if err := idx.Commit(batch); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	delBatch := idx.NewBatch()
	if err := idx.DeletePathDocs(delBatch, rel); err != nil {
		t.Fatalf("DeletePathDocs: %v", err)
	}
	if err := idx.Commit(delBatch); err != nil {
		t.Fatalf("Commit (delete): %v", err)
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 docs after deleting all docs for the path, got %d", count)
	}
}

func TestNormalizeRelStripsLeadingDotSlashAndUsesForwardSlashes(t *testing.T) {
	if got := NormalizeRel("./a/b.go"); got != "a/b.go" {
		t.Fatalf("NormalizeRel(./a/b.go) = %q", got)
	}
	if got := NormalizeRel(`a\b.go`); got != "a/b.go" {
		t.Fatalf("NormalizeRel(a\\b.go) = %q", got)
	}
}

func TestHasExpectedSchemaTrueForFreshIndex(t *testing.T) {
	root := t.TempDir()
	idx, err := Open(root, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()
	if !idx.HasExpectedSchema() {
		t.Fatalf("a freshly created index should match its own schema")
	}
}

func TestSymbolDocIDFormat(t *testing.T) {
	got := SymbolDocID("a/b.go", "function", 10, 2)
	want := "a/b.go#function@10:2"
	if got != want {
		t.Fatalf("SymbolDocID = %q, want %q", got, want)
	}
}
