package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashFileIsStableAndContentSensitive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	if err := os.WriteFile(path, []byte("package a\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	a, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	b, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if a != b {
		t.Fatalf("HashFile is not stable across calls: %q != %q", a, b)
	}

	if err := os.WriteFile(path, []byte("package a\n\nvar x = 1\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if c == a {
		t.Fatalf("HashFile did not change when content changed")
	}
}

func TestSortOrdersEntriesAndComputesRootHash(t *testing.T) {
	m := New()
	m.Entries = []Entry{
		{Path: "b.go", Size: 1, ContentHash: "h2"},
		{Path: "a.go", Size: 1, ContentHash: "h1"},
	}
	m.Sort()

	if m.Entries[0].Path != "a.go" || m.Entries[1].Path != "b.go" {
		t.Fatalf("Sort did not order entries by path: %+v", m.Entries)
	}
	if m.RootHash == "" {
		t.Fatalf("Sort did not populate RootHash")
	}
}

func TestRootHashIsOrderIndependent(t *testing.T) {
	m1 := New()
	m1.Entries = []Entry{{Path: "a.go", ContentHash: "h1"}, {Path: "b.go", ContentHash: "h2"}}
	m1.Sort()

	m2 := New()
	m2.Entries = []Entry{{Path: "b.go", ContentHash: "h2"}, {Path: "a.go", ContentHash: "h1"}}
	m2.Sort()

	if m1.RootHash != m2.RootHash {
		t.Fatalf("RootHash depends on insertion order: %q != %q", m1.RootHash, m2.RootHash)
	}
}

func TestGetFindsTrackedEntry(t *testing.T) {
	m := New()
	m.Entries = []Entry{{Path: "a.go", ContentHash: "h1"}}

	got, ok := m.Get("a.go")
	if !ok || got.ContentHash != "h1" {
		t.Fatalf("Get(a.go) = %+v, %v", got, ok)
	}
	if _, ok := m.Get("missing.go"); ok {
		t.Fatalf("Get reported ok=true for an untracked path")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	m := New()
	m.Entries = []Entry{{Path: "a.go", Size: 10, MTime: 100, ContentHash: "h1", Language: "go", Ext: "go"}}

	if err := Save(root, m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatalf("Load returned nil after Save")
	}
	if loaded.RootHash != m.RootHash {
		t.Fatalf("RootHash not preserved: got %q, want %q", loaded.RootHash, m.RootHash)
	}
	got, ok := loaded.Get("a.go")
	if !ok || got.ContentHash != "h1" {
		t.Fatalf("loaded manifest missing entry: %+v", loaded.Entries)
	}
}

func TestLoadMissingManifestReturnsNilNil(t *testing.T) {
	m, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m != nil {
		t.Fatalf("Load on an empty root returned a non-nil manifest")
	}
}

func TestDiagnoseReportsMissingFilesOnEmptyRoot(t *testing.T) {
	diag := Diagnose(t.TempDir())
	if !diag.VersionMissing {
		t.Errorf("expected VersionMissing on an empty root")
	}
	if !diag.SnapshotMissing {
		t.Errorf("expected SnapshotMissing on an empty root")
	}
	if diag.SnapshotParseErr != nil {
		t.Errorf("expected no parse error when the snapshot is simply absent: %v", diag.SnapshotParseErr)
	}
}

func TestDiagnoseCleanAfterSave(t *testing.T) {
	root := t.TempDir()
	m := New()
	m.Entries = []Entry{{Path: "a.go", Size: 1, ContentHash: "h1"}}
	if err := Save(root, m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	diag := Diagnose(root)
	if diag.VersionMissing || diag.VersionMismatch {
		t.Errorf("unexpected version diagnosis after Save: %+v", diag)
	}
	if diag.SnapshotMissing || diag.SnapshotParseErr != nil {
		t.Errorf("unexpected snapshot diagnosis after Save: %+v", diag)
	}
}

func TestDiagnoseReportsCorruptSnapshot(t *testing.T) {
	root := t.TempDir()
	m := New()
	if err := Save(root, m); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(SnapshotPath(root), []byte("not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	diag := Diagnose(root)
	if diag.SnapshotParseErr == nil {
		t.Fatalf("expected a parse error for a corrupt snapshot")
	}
}

func TestDiagnoseReportsVersionMismatch(t *testing.T) {
	root := t.TempDir()
	m := New()
	if err := Save(root, m); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(VersionPath(root), []byte("99\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	diag := Diagnose(root)
	if !diag.VersionMismatch {
		t.Fatalf("expected a version mismatch after overwriting manifest/version")
	}
}
