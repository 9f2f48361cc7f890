package manifest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cgrep/internal/logging"
)

// Summary reports the per-run counters persisted into stats.json
// (spec §3.6, §4.2).
type Summary struct {
	Added     int `json:"added"`
	Modified  int `json:"modified"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
	Scanned   int `json:"scanned"`
	Suspects  int `json:"suspects"`
	Hashed    int `json:"hashed"`
}

// Diff is the output of comparing a fresh scan against the stored manifest.
type Diff struct {
	Summary Summary
	Next    *Manifest
	Added   []string
	Modified []string
	Deleted  []string
}

// ScannedFile is an (absolute, repo-relative) path pair plus detected
// language, as produced by the File Scanner (component A).
type ScannedFile struct {
	Abs      string
	Rel      string
	Language string
	Ext      string
}

// Compute runs the manifest-diff algorithm of spec §4.2 over a full scan.
func Compute(old *Manifest, scanned []ScannedFile) (*Diff, error) {
	log := logging.Get(logging.CategoryManifest)
	if old == nil {
		old = New()
	}

	sort.Slice(scanned, func(i, j int) bool { return scanned[i].Rel < scanned[j].Rel })

	next := New()
	d := &Diff{Next: next}
	seen := make(map[string]bool, len(scanned))

	for _, sf := range scanned {
		seen[sf.Rel] = true
		d.Summary.Scanned++

		info, err := os.Lstat(sf.Abs)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		size := info.Size()
		mtime := info.ModTime().UnixNano()

		oldEntry, hadOld := old.Get(sf.Rel)

		if hadOld && oldEntry.Size == size && oldEntry.MTime == mtime && oldEntry.ContentHash != "" {
			// Fast path: identical (size, mtime) -> reuse hash without re-hashing.
			next.Entries = append(next.Entries, oldEntry)
			d.Summary.Unchanged++
			continue
		}

		// Suspect: either new, or (size, mtime) changed. Stream-hash.
		d.Summary.Suspects++
		hash, err := HashFile(sf.Abs)
		if err != nil {
			log.Warn("diff: hash failed for %s: %v", sf.Rel, err)
			continue
		}
		d.Summary.Hashed++

		entry := Entry{Path: sf.Rel, Size: size, MTime: mtime, ContentHash: hash, Language: sf.Language, Ext: sf.Ext}
		next.Entries = append(next.Entries, entry)

		switch {
		case !hadOld:
			d.Summary.Added++
			d.Added = append(d.Added, sf.Rel)
		case oldEntry.ContentHash == hash:
			d.Summary.Unchanged++
		default:
			d.Summary.Modified++
			d.Modified = append(d.Modified, sf.Rel)
		}
	}

	for _, e := range old.Entries {
		if !seen[e.Path] {
			d.Summary.Deleted++
			d.Deleted = append(d.Deleted, e.Path)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Modified)
	sort.Strings(d.Deleted)
	next.Sort()

	log.Info("diff: scanned=%d added=%d modified=%d deleted=%d unchanged=%d suspects=%d hashed=%d",
		d.Summary.Scanned, d.Summary.Added, d.Summary.Modified, d.Summary.Deleted, d.Summary.Unchanged, d.Summary.Suspects, d.Summary.Hashed)

	return d, nil
}

// ComputeDelta runs the same per-entry classification logic as Compute but
// restricted to an explicit list of changed paths (spec §4.2 "Alternate
// path"), e.g. as supplied by a caller that already knows which files moved.
func ComputeDelta(old *Manifest, root string, changedAbs []string, detect func(ext, abs string) (lang string)) (*Diff, error) {
	if old == nil {
		old = New()
	}
	next := New()
	next.Entries = append(next.Entries, old.Entries...)
	next.index()

	d := &Diff{Next: next}

	for _, abs := range changedAbs {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		d.Summary.Scanned++

		info, err := os.Lstat(abs)
		if err != nil {
			// Path no longer exists: remove its entry.
			if i, ok := next.byPath[rel]; ok {
				next.Entries = append(next.Entries[:i], next.Entries[i+1:]...)
				next.index()
				d.Summary.Deleted++
				d.Deleted = append(d.Deleted, rel)
			}
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		d.Summary.Suspects++
		hash, err := HashFile(abs)
		if err != nil {
			continue
		}
		d.Summary.Hashed++

		ext := strings.TrimPrefix(filepath.Ext(abs), ".")
		lang := detect(ext, abs)
		entry := Entry{Path: rel, Size: info.Size(), MTime: info.ModTime().UnixNano(), ContentHash: hash, Language: lang, Ext: strings.ToLower(ext)}

		oldEntry, hadOld := old.Get(rel)
		if i, ok := next.byPath[rel]; ok {
			next.Entries[i] = entry
		} else {
			next.Entries = append(next.Entries, entry)
		}
		next.index()

		switch {
		case !hadOld:
			d.Summary.Added++
			d.Added = append(d.Added, rel)
		case oldEntry.ContentHash == hash:
			d.Summary.Unchanged++
		default:
			d.Summary.Modified++
			d.Modified = append(d.Modified, rel)
		}
	}

	next.Sort()
	return d, nil
}
