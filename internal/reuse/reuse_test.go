package reuse

import (
	"os"
	"testing"
)

func TestLoadMissingFileReportsFallback(t *testing.T) {
	s := Load(t.TempDir())
	if s.Decision != DecisionFallback {
		t.Fatalf("Decision = %q, want %q", s.Decision, DecisionFallback)
	}
}

func TestLoadCorruptFileReportsFallback(t *testing.T) {
	root := t.TempDir()
	if err := Save(root, State{Decision: DecisionHit}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(path(root), []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s := Load(root)
	if s.Decision != DecisionFallback {
		t.Fatalf("Decision = %q, want %q for a corrupt sidecar", s.Decision, DecisionFallback)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	want := State{Decision: DecisionHit, Reused: 10, Rehashed: 2}
	if err := Save(root, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got := Load(root)
	if got.Decision != want.Decision || got.Reused != want.Reused || got.Rehashed != want.Rehashed {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
	if got.RecordedAt == "" {
		t.Fatalf("Save did not stamp RecordedAt")
	}
}

func TestClassifyDisabledIsOff(t *testing.T) {
	if got := Classify(true, 5, 1, 1, 0); got != DecisionOff {
		t.Fatalf("Classify(disabled) = %q, want %q", got, DecisionOff)
	}
}

func TestClassifyFirstRunIsMiss(t *testing.T) {
	if got := Classify(false, 0, 3, 0, 0); got != DecisionMiss {
		t.Fatalf("Classify(first run) = %q, want %q", got, DecisionMiss)
	}
}

func TestClassifyFullReuseIsHit(t *testing.T) {
	if got := Classify(false, 5, 0, 0, 0); got != DecisionHit {
		t.Fatalf("Classify(no changes) = %q, want %q", got, DecisionHit)
	}
}

func TestClassifyPartialChangeIsMiss(t *testing.T) {
	if got := Classify(false, 4, 0, 1, 0); got != DecisionMiss {
		t.Fatalf("Classify(partial change) = %q, want %q", got, DecisionMiss)
	}
}
