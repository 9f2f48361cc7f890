// Package status implements status.json / stats.json persistence, the
// stale-worker recovery check, and the read-only "doctor" diagnostics
// (spec §6, §4.4 "Background indexing state").
package status

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"cgrep/internal/bleveindex"
	"cgrep/internal/logging"
	"cgrep/internal/manifest"
)

// Phase is the lifecycle state of the most recent (or in-progress)
// index build (spec §6.1).
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseScanning Phase = "scanning"
	PhaseHashing  Phase = "hashing"
	PhaseIndexing Phase = "indexing"
	PhaseDone     Phase = "done"
	PhaseFailed   Phase = "failed"
)

// Status is the contents of .cgrep/status.json.
type Status struct {
	Phase     Phase  `json:"phase"`
	PID       int    `json:"pid"`
	StartedAt string `json:"started_at"`
	UpdatedAt string `json:"updated_at"`
	Message   string `json:"message,omitempty"`
}

// StatsSchemaVersion is the current on-disk schema version of stats.json.
const StatsSchemaVersion = 1

// Stats is the contents of .cgrep/stats.json, written after every
// completed build (spec §6.2).
type Stats struct {
	manifest.Summary
	SchemaVersion  int    `json:"schema_version"`
	FilesIndexed   int    `json:"files_indexed"`
	SymbolsIndexed int    `json:"symbols_indexed"`
	DurationMS     int64  `json:"duration_ms"`
	FinishedAt     string `json:"finished_at"`
	RootHash       string `json:"root_hash"`
}

func dir(root string) string    { return filepath.Join(root, ".cgrep") }
func statusPath(root string) string { return filepath.Join(dir(root), "status.json") }
func statsPath(root string) string  { return filepath.Join(dir(root), "stats.json") }

// Write persists s atomically to status.json.
func Write(root string, s Status) error {
	if err := os.MkdirAll(dir(root), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(statusPath(root), data)
}

// Read loads status.json; a missing file reports PhaseIdle.
func Read(root string) (Status, error) {
	data, err := os.ReadFile(statusPath(root))
	if os.IsNotExist(err) {
		return Status{Phase: PhaseIdle}, nil
	}
	if err != nil {
		return Status{}, err
	}
	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		return Status{}, err
	}
	return s, nil
}

// WriteStats persists build statistics atomically to stats.json.
func WriteStats(root string, s Stats) error {
	if err := os.MkdirAll(dir(root), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(statsPath(root), data)
}

// ReadStats loads stats.json.
func ReadStats(root string) (Stats, error) {
	data, err := os.ReadFile(statsPath(root))
	if err != nil {
		return Stats{}, err
	}
	var s Stats
	if err := json.Unmarshal(data, &s); err != nil {
		return Stats{}, err
	}
	return s, nil
}

func atomicWrite(path string, data []byte) error {
	tmp := fmt.Sprintf("%s.tmp-%d-%d", path, os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// RecoverIfStale inspects status.json and, if it claims a PID that is no
// longer alive while the phase is still in-progress, rewrites the phase
// to failed so a subsequent command does not wait forever on a worker
// that crashed mid-build (spec §6.1 "stale-worker recovery").
func RecoverIfStale(root string) (bool, error) {
	log := logging.Get(logging.CategoryStatus)
	s, err := Read(root)
	if err != nil {
		return false, err
	}
	if s.Phase == PhaseIdle || s.Phase == PhaseDone || s.Phase == PhaseFailed {
		return false, nil
	}
	if s.PID == 0 || processAlive(s.PID) {
		return false, nil
	}

	log.Warn("status: recovering stale build, pid %d is gone (phase=%s)", s.PID, s.Phase)
	s.Phase = PhaseFailed
	s.Message = fmt.Sprintf("worker pid %d no longer running", s.PID)
	s.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return true, Write(root, s)
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}

// Finding is one read-only diagnostic produced by Doctor, identified by
// one of the fixed ids enumerated in spec §4.10.
type Finding struct {
	ID             string `json:"id"`
	Severity       string `json:"severity"` // error | warning
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
}

func finding(id, severity, message, recommendation string) Finding {
	return Finding{ID: id, Severity: severity, Message: message, Recommendation: recommendation}
}

// Doctor runs the read-only diagnostic battery of spec §4.10 against the
// index, manifest, and status/stats sidecar files, without mutating any
// state. An empty result means every check passed; Doctor only reports
// problems, it never confirms health.
func Doctor(root string) []Finding {
	var findings []Finding

	findings = append(findings, doctorIndex(root)...)
	findings = append(findings, doctorMetadata(root)...)
	findings = append(findings, doctorStats(root)...)
	findings = append(findings, doctorManifest(root)...)
	findings = append(findings, doctorTmpLeftovers(root)...)

	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Message < b.Message
	})
	return findings
}

func doctorIndex(root string) []Finding {
	if _, err := os.Stat(bleveindex.Dir(root)); os.IsNotExist(err) {
		return []Finding{finding("missing_index_dir", "error",
			"no index directory found under .cgrep/index",
			"run `cgrep index`")}
	}
	if !bleveindex.Exists(root) {
		return []Finding{finding("missing_tantivy_meta", "error",
			"index directory exists but its meta file is missing",
			"run `cgrep index --force` to rebuild")}
	}
	idx, err := bleveindex.OpenReadOnly(root)
	if err != nil {
		return []Finding{finding("corrupt_tantivy_index", "error",
			fmt.Sprintf("index present but failed to open: %v", err),
			"run `cgrep index --force` to rebuild")}
	}
	defer idx.Close()
	if !idx.HasExpectedSchema() {
		return []Finding{finding("index_schema_mismatch", "error",
			"index field mapping does not match the schema cgrep currently writes",
			"run `cgrep index --force` to rebuild")}
	}
	return nil
}

func doctorMetadata(root string) []Finding {
	data, err := os.ReadFile(statusPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return []Finding{finding("missing_metadata_file", "warning",
				"status.json is absent",
				"run `cgrep index` to create it")}
		}
		return []Finding{finding("metadata_parse_error", "warning",
			fmt.Sprintf("status.json unreadable: %v", err),
			"run `cgrep index` to regenerate it")}
	}
	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		return []Finding{finding("metadata_parse_error", "warning",
			fmt.Sprintf("status.json is corrupt: %v", err),
			"run `cgrep index` to regenerate it")}
	}
	return nil
}

func doctorStats(root string) []Finding {
	data, err := os.ReadFile(statsPath(root))
	if err != nil {
		// stats.json does not exist until the first build completes;
		// that is not itself a fault.
		return nil
	}
	var s Stats
	if err := json.Unmarshal(data, &s); err != nil {
		return []Finding{finding("stats_parse_error", "warning",
			fmt.Sprintf("stats.json is corrupt: %v", err),
			"run `cgrep index` to regenerate it")}
	}
	if s.SchemaVersion != StatsSchemaVersion {
		return []Finding{finding("stats_schema_mismatch", "warning",
			fmt.Sprintf("stats.json schema_version=%d, want %d", s.SchemaVersion, StatsSchemaVersion),
			"run `cgrep index` to regenerate it")}
	}
	return nil
}

func doctorManifest(root string) []Finding {
	var findings []Finding
	diag := manifest.Diagnose(root)

	switch {
	case diag.VersionMissing:
		findings = append(findings, finding("missing_manifest_version", "error",
			"manifest/version is absent",
			"run `cgrep index` to create it"))
	case diag.VersionMismatch:
		findings = append(findings, finding("manifest_version_mismatch", "error",
			"manifest/version does not match the schema version cgrep currently writes",
			"run `cgrep index --force` to rebuild"))
	}

	switch {
	case diag.SnapshotMissing:
		findings = append(findings, finding("missing_manifest_snapshot", "error",
			"manifest/v1.json is absent",
			"run `cgrep index` to create it"))
	case diag.SnapshotParseErr != nil:
		findings = append(findings, finding("manifest_parse_error", "error",
			fmt.Sprintf("manifest/v1.json is corrupt: %v", diag.SnapshotParseErr),
			"run `cgrep index --force` to rebuild"))
	}
	return findings
}

func doctorTmpLeftovers(root string) []Finding {
	var leftover []string
	_ = filepath.WalkDir(dir(root), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.Contains(d.Name(), "tmp-") {
			leftover = append(leftover, path)
		}
		return nil
	})
	if len(leftover) == 0 {
		return nil
	}
	sort.Strings(leftover)
	return []Finding{finding("interrupted_state_tmp_files", "warning",
		fmt.Sprintf("%d leftover tmp file(s) under .cgrep, e.g. %s", len(leftover), leftover[0]),
		"the interrupted write's tmp file was never renamed into place; safe to remove and re-run the command that produced it")}
}
