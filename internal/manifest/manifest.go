// Package manifest implements the file-hash manifest (spec §3.1) and the
// diff algorithm that drives incremental indexing (spec §4.2).
package manifest

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"cgrep/internal/logging"

	"github.com/zeebo/blake3"
)

// Entry is one tracked file's fingerprint.
type Entry struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	MTime       int64  `json:"mtime"`
	ContentHash string `json:"content_hash"`
	Language    string `json:"language,omitempty"`
	Ext         string `json:"ext,omitempty"`
}

// Manifest is the path-sorted, persisted set of tracked file entries.
type Manifest struct {
	SchemaVersion int              `json:"schema_version"`
	Entries       []Entry          `json:"entries"`
	RootHash      string           `json:"root_hash"`
	byPath        map[string]int   `json:"-"`
}

const SchemaVersion = 1

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{SchemaVersion: SchemaVersion, Entries: nil}
}

// index builds (or rebuilds) the path -> slice-index lookup.
func (m *Manifest) index() {
	m.byPath = make(map[string]int, len(m.Entries))
	for i, e := range m.Entries {
		m.byPath[e.Path] = i
	}
}

// Get returns the entry for path, if tracked.
func (m *Manifest) Get(path string) (Entry, bool) {
	if m.byPath == nil {
		m.index()
	}
	i, ok := m.byPath[path]
	if !ok {
		return Entry{}, false
	}
	return m.Entries[i], true
}

// Sort orders entries by path and rebuilds the root hash, satisfying the
// invariant that entries are sorted by path (spec §3.1).
func (m *Manifest) Sort() {
	sort.Slice(m.Entries, func(i, j int) bool { return m.Entries[i].Path < m.Entries[j].Path })
	m.index()
	m.RootHash = computeRootHash(m.Entries)
}

// computeRootHash is BLAKE3 over "path\0size\0mtime\0hash\0ext\0language\0"
// concatenated per entry in path order (spec §3.1).
func computeRootHash(entries []Entry) string {
	h := blake3.New()
	for _, e := range entries {
		fmt.Fprintf(h, "%s\x00%d\x00%d\x00%s\x00%s\x00%s\x00", e.Path, e.Size, e.MTime, e.ContentHash, e.Ext, e.Language)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashFile streams a file through BLAKE3 in 64 KiB chunks (spec §4.2 step 2)
// and returns its hex digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	buf := make([]byte, 64*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Paths for the manifest's on-disk layout under <root>/.cgrep/manifest/
// (spec §6.1).
func VersionPath(root string) string { return filepath.Join(root, ".cgrep", "manifest", "version") }
func SnapshotPath(root string) string {
	return filepath.Join(root, ".cgrep", "manifest", "v1.json")
}
func RootHashPath(root string) string {
	return filepath.Join(root, ".cgrep", "manifest", "root.hash")
}

// Load reads the persisted manifest for root. A missing manifest returns
// (nil, nil) — callers treat that as "first index".
func Load(root string) (*Manifest, error) {
	log := logging.Get(logging.CategoryManifest)
	data, err := os.ReadFile(SnapshotPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("no manifest snapshot at %s", SnapshotPath(root))
			return nil, nil
		}
		return nil, fmt.Errorf("manifest: read snapshot: %w", err)
	}

	m, err := decode(data)
	if err != nil {
		log.Warn("manifest: corrupt snapshot, treating as absent: %v", err)
		return nil, nil
	}
	m.index()
	return m, nil
}

// Save persists the manifest, its version marker, and its root-hash
// sidecar atomically (tmp-<pid>-<nanos> + rename, spec §6.1/§9).
func Save(root string, m *Manifest) error {
	log := logging.Get(logging.CategoryManifest)
	m.Sort()

	dir := filepath.Join(root, ".cgrep", "manifest")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("manifest: create dir: %w", err)
	}

	data, err := encode(m)
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}

	if err := atomicWrite(SnapshotPath(root), data); err != nil {
		return fmt.Errorf("manifest: write snapshot: %w", err)
	}
	if err := atomicWrite(VersionPath(root), []byte("1\n")); err != nil {
		return fmt.Errorf("manifest: write version: %w", err)
	}
	if err := atomicWrite(RootHashPath(root), []byte(m.RootHash+"\n")); err != nil {
		return fmt.Errorf("manifest: write root hash: %w", err)
	}

	log.Info("manifest saved: %d entries, root_hash=%s", len(m.Entries), m.RootHash[:16])
	return nil
}

// Diagnosis reports the on-disk state of the manifest's sidecar files
// without attempting any repair. Unlike Load, which folds a corrupt
// snapshot into "absent" so ordinary callers can treat both as "first
// index", Diagnosis keeps the two apart so `doctor` (spec §4.10) can
// report the right finding id for each.
type Diagnosis struct {
	VersionMissing  bool
	VersionMismatch bool
	SnapshotMissing bool
	SnapshotParseErr error
}

// Diagnose inspects root's manifest files on disk.
func Diagnose(root string) Diagnosis {
	var d Diagnosis

	versionData, err := os.ReadFile(VersionPath(root))
	switch {
	case err != nil:
		d.VersionMissing = true
	case strings.TrimSpace(string(versionData)) != strconv.Itoa(SchemaVersion):
		d.VersionMismatch = true
	}

	snapData, err := os.ReadFile(SnapshotPath(root))
	if err != nil {
		d.SnapshotMissing = true
		return d
	}
	if _, err := decode(snapData); err != nil {
		d.SnapshotParseErr = err
	}
	return d
}

// atomicWrite writes data to a tmp-<pid>-<nanos> file in the same
// directory as path, then renames it into place. On rename failure because
// the target already exists, it removes the target and retries once
// (spec §9, Windows rename semantics).
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf("tmp-%d-%d", os.Getpid(), time.Now().UnixNano()))

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		if os.IsExist(err) {
			if rmErr := os.Remove(path); rmErr == nil {
				if err2 := os.Rename(tmp, path); err2 == nil {
					return nil
				}
			}
		}
		os.Remove(tmp)
		return err
	}
	return nil
}
