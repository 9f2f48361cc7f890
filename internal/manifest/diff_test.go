package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestComputeFirstRunClassifiesEverythingAdded(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.go", "package a\n")
	b := writeFile(t, dir, "b.go", "package b\n")

	scanned := []ScannedFile{
		{Abs: a, Rel: "a.go", Language: "go", Ext: "go"},
		{Abs: b, Rel: "b.go", Language: "go", Ext: "go"},
	}
	d, err := Compute(nil, scanned)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if d.Summary.Added != 2 || d.Summary.Modified != 0 || d.Summary.Deleted != 0 || d.Summary.Unchanged != 0 {
		t.Fatalf("unexpected summary on first run: %+v", d.Summary)
	}
	if len(d.Next.Entries) != 2 {
		t.Fatalf("expected 2 entries in the next manifest, got %d", len(d.Next.Entries))
	}
}

func TestComputeReuseUnchangedSkipsRehash(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.go", "package a\n")
	scanned := []ScannedFile{{Abs: a, Rel: "a.go", Language: "go", Ext: "go"}}

	first, err := Compute(nil, scanned)
	if err != nil {
		t.Fatalf("Compute (first): %v", err)
	}

	second, err := Compute(first.Next, scanned)
	if err != nil {
		t.Fatalf("Compute (second): %v", err)
	}
	if second.Summary.Unchanged != 1 || second.Summary.Added != 0 || second.Summary.Hashed != 0 {
		t.Fatalf("expected a pure reuse on the second pass, got %+v", second.Summary)
	}
}

func TestComputeDetectsModifiedContent(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.go", "package a\n")
	scanned := []ScannedFile{{Abs: a, Rel: "a.go", Language: "go", Ext: "go"}}

	first, err := Compute(nil, scanned)
	if err != nil {
		t.Fatalf("Compute (first): %v", err)
	}

	// Change size and mtime so the fast path can't short-circuit, but
	// content hashing is still required to detect the change.
	writeFile(t, dir, "a.go", "package a\n\nvar x = 1\n")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(a, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	second, err := Compute(first.Next, scanned)
	if err != nil {
		t.Fatalf("Compute (second): %v", err)
	}
	if second.Summary.Modified != 1 {
		t.Fatalf("expected 1 modified file, got %+v", second.Summary)
	}
	if len(second.Modified) != 1 || second.Modified[0] != "a.go" {
		t.Fatalf("Modified list = %+v", second.Modified)
	}
}

func TestComputeDetectsDeletedFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.go", "package a\n")
	scanned := []ScannedFile{{Abs: a, Rel: "a.go", Language: "go", Ext: "go"}}

	first, err := Compute(nil, scanned)
	if err != nil {
		t.Fatalf("Compute (first): %v", err)
	}

	second, err := Compute(first.Next, nil)
	if err != nil {
		t.Fatalf("Compute (second): %v", err)
	}
	if second.Summary.Deleted != 1 || len(second.Deleted) != 1 || second.Deleted[0] != "a.go" {
		t.Fatalf("expected a.go reported deleted, got %+v", second)
	}
	if len(second.Next.Entries) != 0 {
		t.Fatalf("deleted entries must not survive into the next manifest: %+v", second.Next.Entries)
	}
}
