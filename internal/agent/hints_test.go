package agent

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStorePutGetRoundTrip(t *testing.T) {
	s := OpenStore(t.TempDir())
	s.Put(Hint{ResultID: "abc123", Path: "a.go", Line: 10})

	got, ok := s.Get("abc123")
	if !ok {
		t.Fatalf("Get did not find a hint just Put")
	}
	if got.Path != "a.go" || got.Line != 10 {
		t.Fatalf("unexpected hint: %+v", got)
	}
}

func TestStoreGetMissingReportsFalse(t *testing.T) {
	s := OpenStore(t.TempDir())
	if _, ok := s.Get("nope"); ok {
		t.Fatalf("Get reported ok=true for a never-Put id")
	}
}

func TestStoreGetExpiredReportsFalse(t *testing.T) {
	s := OpenStore(t.TempDir())
	s.Put(Hint{ResultID: "stale", Path: "a.go", Line: 1})

	h := s.byID["stale"]
	h.UpdatedAt = time.Now().Add(-HintTTL - time.Hour).Unix()
	s.byID["stale"] = h

	if _, ok := s.Get("stale"); ok {
		t.Fatalf("Get returned an expired hint")
	}
}

func TestStorePutLastWriterWinsAndRefreshesTimestamp(t *testing.T) {
	s := OpenStore(t.TempDir())
	s.Put(Hint{ResultID: "id", Path: "a.go", Line: 1})
	first := s.byID["id"].UpdatedAt

	time.Sleep(time.Millisecond)
	s.Put(Hint{ResultID: "id", Path: "b.go", Line: 2})

	got, ok := s.Get("id")
	if !ok || got.Path != "b.go" || got.Line != 2 {
		t.Fatalf("last write did not win: %+v", got)
	}
	if s.byID["id"].UpdatedAt < first {
		t.Fatalf("UpdatedAt went backwards on refresh")
	}
}

func TestStoreEvictsOldestFirstThenByID(t *testing.T) {
	s := OpenStore(t.TempDir())
	// Two entries tied at the oldest timestamp (0), plus enough later
	// entries to fill the store to exactly MaxHints.
	s.byID["a-id"] = Hint{ResultID: "a-id", UpdatedAt: 0}
	s.byID["z-id"] = Hint{ResultID: "z-id", UpdatedAt: 0}
	for i := 1; i < MaxHints-1; i++ {
		s.byID[idFor(i)] = Hint{ResultID: idFor(i), UpdatedAt: int64(i)}
	}
	if len(s.byID) != MaxHints {
		t.Fatalf("setup: store has %d entries, want %d", len(s.byID), MaxHints)
	}

	// Put pushes the store one over capacity, forcing exactly one
	// eviction: the tiebreak must pick the lexicographically smaller of
	// the two oldest-timestamp entries.
	s.Put(Hint{ResultID: "newest", Path: "x.go", Line: 1})

	if len(s.byID) != MaxHints {
		t.Fatalf("store size after eviction = %d, want %d", len(s.byID), MaxHints)
	}
	if _, ok := s.byID["a-id"]; ok {
		t.Fatalf("expected the lexicographically smaller tied-oldest entry to be evicted")
	}
	if _, ok := s.byID["z-id"]; !ok {
		t.Fatalf("expected the tied-oldest entry with the larger ID to survive")
	}
	if _, ok := s.byID["newest"]; !ok {
		t.Fatalf("the just-Put entry must survive its own insertion")
	}
}

func TestStoreSaveAndReopenRoundTrips(t *testing.T) {
	root := t.TempDir()
	s := OpenStore(root)
	s.Put(Hint{ResultID: "id", Path: "a.go", Line: 7, Snippet: "func f() {}"})
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened := OpenStore(root)
	got, ok := reopened.Get("id")
	if !ok {
		t.Fatalf("reopened store lost a saved hint")
	}
	if got.Path != "a.go" || got.Line != 7 || got.Snippet != "func f() {}" {
		t.Fatalf("unexpected reopened hint: %+v", got)
	}
}

func TestSaveWritesDocumentedPathAndEnvelope(t *testing.T) {
	root := t.TempDir()
	s := OpenStore(root)
	s.Put(Hint{ResultID: "id", Path: "a.go", Line: 7})
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	wantPath := filepath.Join(root, ".cgrep", "cache", "agent_expand_hints.json")
	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("expected the hint cache at %s: %v", wantPath, err)
	}

	var file hintsFile
	if err := json.Unmarshal(data, &file); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if file.Version != 1 {
		t.Fatalf("Version = %d, want 1", file.Version)
	}
	if len(file.Entries) != 1 || file.Entries[0].ResultID != "id" {
		t.Fatalf("unexpected entries: %+v", file.Entries)
	}
}

func idFor(i int) string {
	const hex = "0123456789abcdef"
	b := make([]byte, 8)
	for j := 0; j < 8; j++ {
		b[j] = hex[(i>>(j*4))&0xf]
	}
	return string(b)
}
