// Package config loads the optional .cgrep.toml ranking/behavior
// overrides (spec §4.5 "Ranking is configurable"), grounded in the
// BurntSushi/toml decoding style used for TOML config throughout the
// pack rather than a hand-rolled parser.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"cgrep/internal/logging"
)

// Weights holds the additive ranking boosts applied on top of BM25
// (spec §4.5's "final = bm25 * (1 + ...)" formula).
type Weights struct {
	PathBoost    float64 `toml:"path_boost"`
	SymbolBoost  float64 `toml:"symbol_boost"`
	ChangedBoost float64 `toml:"changed_boost"`
	KindBoost    float64 `toml:"kind_boost"`
	DepthPenalty float64 `toml:"depth_penalty"`
}

// Scanner holds file-discovery overrides.
type Scanner struct {
	Concurrency      int      `toml:"concurrency"`
	RespectGitignore bool     `toml:"respect_gitignore"`
	ExtraExtensions  []string `toml:"extra_extensions"`
}

// Agent holds agent-profile defaults (spec §8's locate/expand budgets).
type Agent struct {
	DefaultProfile string `toml:"default_profile"`
	DefaultBudget  int    `toml:"default_budget"`
}

// Config is the root of .cgrep.toml.
type Config struct {
	Weights Weights `toml:"weights"`
	Scanner Scanner `toml:"scanner"`
	Agent   Agent   `toml:"agent"`
}

// Default returns the built-in weights used when no config file is
// present, matching the constants internal/bleveindex applies inline.
func Default() Config {
	return Config{
		Weights: Weights{PathBoost: 0.2, SymbolBoost: 0.35, ChangedBoost: 0.25, KindBoost: 0.1, DepthPenalty: 0.05},
		Scanner: Scanner{Concurrency: 0, RespectGitignore: true},
		Agent:   Agent{DefaultProfile: "agent", DefaultBudget: 40},
	}
}

// Path returns the expected config file location for root.
func Path(root string) string { return filepath.Join(root, ".cgrep.toml") }

// Load reads .cgrep.toml from root if present, overlaying it onto
// Default(); a missing file is not an error (spec: config is optional).
func Load(root string) (Config, error) {
	cfg := Default()
	path := Path(root)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Default(), err
	}

	logging.Get(logging.CategoryStatus).Debug("config: loaded overrides from %s", path)
	return cfg, nil
}
