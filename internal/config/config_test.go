package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("Load() with no config file = %+v, want Default() = %+v", cfg, Default())
	}
}

func TestLoadOverlaysOntoDefaults(t *testing.T) {
	root := t.TempDir()
	body := `[weights]
symbol_boost = 0.9

[agent]
default_budget = 100
`
	if err := os.WriteFile(Path(root), []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Weights.SymbolBoost != 0.9 {
		t.Errorf("SymbolBoost = %v, want 0.9", cfg.Weights.SymbolBoost)
	}
	if cfg.Agent.DefaultBudget != 100 {
		t.Errorf("DefaultBudget = %v, want 100", cfg.Agent.DefaultBudget)
	}
	// Fields the override file didn't touch keep their defaults, since
	// Load decodes onto an already-populated Default() config.
	if cfg.Weights.ChangedBoost != Default().Weights.ChangedBoost {
		t.Errorf("ChangedBoost = %v, want default %v", cfg.Weights.ChangedBoost, Default().Weights.ChangedBoost)
	}
	if cfg.Scanner.RespectGitignore != true {
		t.Errorf("RespectGitignore = %v, want default true", cfg.Scanner.RespectGitignore)
	}
}

func TestLoadInvalidTOMLReturnsError(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(Path(root), []byte("not valid = = toml"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(root); err == nil {
		t.Fatalf("expected an error decoding invalid TOML")
	}
}

func TestPathIsDotfileAtRoot(t *testing.T) {
	got := Path("/repo")
	want := filepath.Join("/repo", ".cgrep.toml")
	if got != want {
		t.Fatalf("Path(/repo) = %q, want %q", got, want)
	}
}
