package liftconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Limits.MaxLocals <= 0 || cfg.Limits.MaxStack <= 0 {
		t.Fatalf("expected positive default limits, got %+v", cfg.Limits)
	}
	if cfg.Output.Format != "tree" {
		t.Errorf("expected default format tree, got %q", cfg.Output.Format)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[limits]
max_locals = 64
max_stack = 32

[output]
format = "yaml"
workers = 4
verbose = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Limits.MaxLocals != 64 || cfg.Limits.MaxStack != 32 {
		t.Errorf("expected limits {64,32}, got %+v", cfg.Limits)
	}
	if cfg.Output.Format != "yaml" || cfg.Output.Workers != 4 || !cfg.Output.Verbose {
		t.Errorf("unexpected output config: %+v", cfg.Output)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestFindAndLoadFallsBackToDefault(t *testing.T) {
	cfg, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected the default config when no file is present, got %+v", cfg)
	}
}
