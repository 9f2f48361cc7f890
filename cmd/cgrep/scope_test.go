package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveScopeEmptyPathMeansNoNarrowing(t *testing.T) {
	root := t.TempDir()
	scope, outside, err := resolveScope(root, "")
	if err != nil {
		t.Fatalf("resolveScope: %v", err)
	}
	if outside {
		t.Fatalf("expected outside=false for an empty path")
	}
	if len(scope.Prefixes) != 0 {
		t.Fatalf("expected no prefixes for an empty path, got %+v", scope.Prefixes)
	}
}

func TestResolveScopeOutsideRootReportsOutside(t *testing.T) {
	root := t.TempDir()
	_, outside, err := resolveScope(root, "/definitely/not/under/root")
	if err != nil {
		t.Fatalf("resolveScope: %v", err)
	}
	if !outside {
		t.Fatalf("expected outside=true for a path outside root")
	}
}

func TestResolveScopePopulatesSymlinkAlias(t *testing.T) {
	root := t.TempDir()
	realDir := filepath.Join(root, "external", "lib-real")
	if err := os.MkdirAll(realDir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	linkedDir := filepath.Join(root, "vendor", "lib")
	if err := os.MkdirAll(filepath.Dir(linkedDir), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.Symlink(realDir, linkedDir); err != nil {
		t.Skipf("symlinks unavailable in this environment: %v", err)
	}

	scope, outside, err := resolveScope(root, "vendor/lib")
	if err != nil {
		t.Fatalf("resolveScope: %v", err)
	}
	if outside {
		t.Fatalf("did not expect outside=true")
	}
	if len(scope.Prefixes) != 1 || scope.Prefixes[0] != "vendor/lib" {
		t.Fatalf("unexpected prefixes: %+v", scope.Prefixes)
	}
	aliases := scope.Aliases["vendor/lib"]
	if len(aliases) != 1 || aliases[0] != "external/lib-real" {
		t.Fatalf("expected a symlink alias of external/lib-real for a scope reached through a symlinked subdirectory, got %+v", aliases)
	}
}

func TestRequireScopeRejectsOutsideRoot(t *testing.T) {
	root := t.TempDir()
	_, err := requireScope(root, "/definitely/not/under/root")
	if err == nil {
		t.Fatalf("expected requireScope to reject a path outside root")
	}
}
