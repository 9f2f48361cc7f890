// Package reuse implements the warm-start reuse-state tracking of spec
// §4.2's supplement (grounded in original_source/src/indexer/reuse.rs):
// a small sidecar recording whether the last build was a clean reuse of
// the prior manifest (hit), had files added, modified or deleted (miss),
// or ran with reuse disabled (off). Load reports fallback when the
// sidecar itself is missing or unreadable.
package reuse

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Decision classifies how much of the prior manifest a build was able
// to reuse (spec §4.2 supplement).
type Decision string

const (
	DecisionOff      Decision = "off"      // reuse disabled, e.g. --force
	DecisionMiss     Decision = "miss"     // first run, or some files added/modified/deleted
	DecisionHit      Decision = "hit"      // prior manifest fully reused via fast path
	DecisionFallback Decision = "fallback" // reported by Load: sidecar missing or unreadable
)

// State is the contents of .cgrep/reuse-state.json.
type State struct {
	Decision    Decision `json:"decision"`
	Reused      int      `json:"reused"`
	Rehashed    int      `json:"rehashed"`
	RecordedAt  string   `json:"recorded_at"`
}

func path(root string) string { return filepath.Join(root, ".cgrep", "reuse-state.json") }

// Load reads the prior reuse state. A missing or corrupt file reports
// DecisionFallback rather than erroring, since this sidecar is advisory
// only — it never gates correctness, just telemetry for `cgrep status`.
func Load(root string) State {
	data, err := os.ReadFile(path(root))
	if err != nil {
		return State{Decision: DecisionFallback}
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{Decision: DecisionFallback}
	}
	return s
}

// Save atomically persists s.
func Save(root string, s State) error {
	dir := filepath.Join(root, ".cgrep")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	s.RecordedAt = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.tmp-%d-%d", path(root), os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path(root)); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Classify derives a Decision from a manifest.Diff's summary counters,
// given whether reuse was explicitly disabled for this run.
func Classify(disabled bool, unchanged, added, modified, deleted int) Decision {
	if disabled {
		return DecisionOff
	}
	if unchanged == 0 && (added > 0 || modified > 0) {
		return DecisionMiss
	}
	if added == 0 && modified == 0 && deleted == 0 {
		return DecisionHit
	}
	return DecisionMiss
}
