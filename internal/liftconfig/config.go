// Package liftconfig loads the TOML configuration read by the ssadump and
// ssacheck front ends: resource limit values and how results are rendered.
package liftconfig

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFileName is the conventional file name front ends look for.
const ConfigFileName = "classlift.toml"

// Config holds the tunables shared by the CLI front ends.
type Config struct {
	Limits Limits `toml:"limits"`
	Output Output `toml:"output"`
}

// Limits holds the max_locals/max_stack values read from the config file.
// Neither front end applies them: a lift always uses the max_locals and
// max_stack of the fixture's method entry (0 when the entry omits them).
type Limits struct {
	MaxLocals int `toml:"max_locals"`
	MaxStack  int `toml:"max_stack"`
}

// Output controls how lifted methods are rendered by ssadump and how
// ssacheck reports its summary.
type Output struct {
	Format  string `toml:"format"`  // "tree" or "yaml"
	Workers int    `toml:"workers"` // ssacheck worker pool size; 0 means GOMAXPROCS
	Verbose bool   `toml:"verbose"`
}

// Default returns the configuration front ends fall back to when no config
// file is found.
func Default() Config {
	return Config{
		Limits: Limits{MaxLocals: 256, MaxStack: 256},
		Output: Output{Format: "tree", Workers: 0, Verbose: false},
	}
}

// Load reads and parses a TOML config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("liftconfig: read %s: %w", path, err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("liftconfig: parse %s: %w", path, err)
	}
	return cfg, nil
}

// FindAndLoad looks for ConfigFileName in dir and loads it if present,
// otherwise returns Default with no error.
func FindAndLoad(dir string) (Config, error) {
	path := dir + string(os.PathSeparator) + ConfigFileName
	if _, err := os.Stat(path); err != nil {
		return Default(), nil
	}
	return Load(path)
}
