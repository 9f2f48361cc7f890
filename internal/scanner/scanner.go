// Package scanner implements the File Scanner (spec §4.1): it produces the
// set of indexable files for a root, respecting ignore rules, and feeds a
// worker pool the way the teacher's filesystem scanner does
// (bounded-concurrency channel fan-out, consumer-side sort).
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cgrep/internal/logging"
)

// allowedExt is the fixed extension allow-list from spec §4.1.
var allowedExt = map[string]bool{
	"rs": true, "ts": true, "tsx": true, "js": true, "jsx": true,
	"py": true, "go": true, "java": true, "c": true, "cpp": true,
	"h": true, "hpp": true, "cs": true, "rb": true, "php": true,
	"swift": true, "kt": true, "scala": true, "lua": true,
	"md": true, "txt": true, "json": true, "yaml": true, "toml": true,
}

// alwaysSkipDirs are never walked, ignore-rule opt-out notwithstanding.
var alwaysSkipDirs = map[string]bool{
	".git": true, ".cgrep": true, ".hg": true, ".svn": true,
}

var tempSuffixes = []string{".tmp", ".swp", ".swo", "~"}

// File is one scanner-emitted candidate, carrying both the absolute path
// used for I/O and the repo-relative path used as the manifest/index key.
type File struct {
	Abs      string
	Rel      string
	Ext      string
	Language string
}

// Options configures a scan.
type Options struct {
	// RespectGitignore honors the root's .gitignore and .git/info/exclude
	// when true (the default policy per spec §4.1). Nested .gitignore files
	// and the user's global excludes file are not read.
	RespectGitignore bool
	// IncludeIgnored disables ignore-rule filtering entirely
	// (--include-ignored).
	IncludeIgnored bool
	// Concurrency bounds the number of parallel stat/classify workers.
	Concurrency int
}

// DefaultOptions returns the spec-default scan policy.
func DefaultOptions() Options {
	return Options{RespectGitignore: true, Concurrency: 20}
}

// Scan walks root and returns every eligible file, sorted by relative path.
// Emission from the worker pool is unordered; the caller-visible result is
// always sorted (spec §4.1: "order of emission is not specified but the
// downstream consumer sorts by relative path").
func Scan(ctx context.Context, root string, opts Options) ([]File, error) {
	log := logging.Get(logging.CategoryScanner)
	timer := logging.StartTimer(logging.CategoryScanner, "Scan")

	ig, err := loadIgnoreMatcher(root, opts)
	if err != nil {
		log.Warn("scanner: ignore rules unavailable, continuing without them: %v", err)
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 20
	}

	type candidate struct {
		abs string
		rel string
	}
	work := make(chan candidate, concurrency*4)
	results := make(chan File, concurrency*4)
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range work {
				ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(c.rel), "."))
				results <- File{Abs: c.abs, Rel: c.rel, Ext: ext, Language: DetectLanguage(ext)}
			}
		}()
	}

	var walkErr error
	go func() {
		defer close(work)
		walkErr = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err != nil {
				log.Warn("scanner: walk error at %s: %v", path, err)
				return nil
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if info.IsDir() {
				name := info.Name()
				if name != "." && (alwaysSkipDirs[name] || (strings.HasPrefix(name, ".") && !isAllowedHiddenDir(name))) {
					return filepath.SkipDir
				}
				if ig != nil && ig.matchDir(rel) {
					return filepath.SkipDir
				}
				return nil
			}

			if !eligible(info.Name()) {
				return nil
			}
			if ig != nil && ig.matchFile(rel) {
				return nil
			}
			work <- candidate{abs: path, rel: rel}
			return nil
		})
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var out []File
	for f := range results {
		out = append(out, f)
	}
	if walkErr != nil && walkErr != context.Canceled {
		return nil, walkErr
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Rel < out[j].Rel })
	timer.StopWithInfo()
	log.Info("scanner: %d files eligible under %s", len(out), root)
	return out, nil
}

func isAllowedHiddenDir(name string) bool {
	switch name {
	case ".github", ".vscode", ".circleci", ".config":
		return true
	default:
		return false
	}
}

// IsAllowedHiddenDir exports the hidden-directory allow-list so other
// packages (e.g. render's directory map) walk the same tree `index`
// would scan.
func IsAllowedHiddenDir(name string) bool { return isAllowedHiddenDir(name) }

// AlwaysSkipDir reports whether name is unconditionally excluded from
// any walk, ignore-rule opt-out notwithstanding.
func AlwaysSkipDir(name string) bool { return alwaysSkipDirs[name] }

func eligible(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	if strings.HasPrefix(name, ".#") {
		return false
	}
	for _, suf := range tempSuffixes {
		if strings.HasSuffix(name, suf) {
			return false
		}
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return allowedExt[ext]
}

// DetectLanguage maps a lowercased extension to the symbolic language tag
// used throughout the index schema and symbol extractor.
func DetectLanguage(ext string) string {
	switch ext {
	case "rs":
		return "rust"
	case "ts", "tsx":
		return "typescript"
	case "js", "jsx":
		return "javascript"
	case "py":
		return "python"
	case "go":
		return "go"
	case "java":
		return "java"
	case "c", "h":
		return "c"
	case "cpp", "hpp":
		return "cpp"
	case "cs":
		return "csharp"
	case "rb":
		return "ruby"
	case "php":
		return "php"
	case "swift":
		return "swift"
	case "kt":
		return "kotlin"
	case "scala":
		return "scala"
	case "lua":
		return "lua"
	case "md":
		return "markdown"
	case "json":
		return "json"
	case "yaml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return ""
	}
}
