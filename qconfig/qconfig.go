// Package qconfig holds the simulator's tunable numeric tolerances, loaded
// either from spec.md defaults or from a TOML file.
package qconfig

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config collects the two epsilons spec.md §9 calls out as "coexisting"
// (pruning/norm and structural comparison), plus a debug-only cap on
// q_while iterations.
type Config struct {
	// Threshold is the pruning/norm-zero epsilon (spec.md §4.1, §6):
	// branches with |amp| below this are dropped, and norms below it are
	// treated as zero.
	Threshold float64 `toml:"threshold"`

	// StructEps is the absolute tolerance used when comparing amplitudes
	// for structural equality during uncompute verification (spec.md
	// §4.5-§4.6).
	StructEps float64 `toml:"struct_eps"`

	// MaxWhileIterations caps the q_while fixed-point loop (spec.md §9);
	// 0 means unbounded, matching original_source/qumquat/main.py's
	// do_while, which has no cap. Intended for debug builds catching
	// user code that never drives its loop expression to zero.
	MaxWhileIterations int `toml:"max_while_iterations"`
}

// Default returns the spec-mandated defaults: both epsilons at 1e-10,
// unbounded while loops.
func Default() Config {
	return Config{
		Threshold:          1e-10,
		StructEps:          1e-10,
		MaxWhileIterations: 0,
	}
}

// Load reads a TOML config file, filling in any field left at its zero
// value with the spec default.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("qconfig: reading %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("qconfig: parsing %s: %w", path, err)
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = Default().Threshold
	}
	if cfg.StructEps <= 0 {
		cfg.StructEps = Default().StructEps
	}
	return cfg, nil
}
