package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Compaction.Threshold != 0.80 {
		t.Errorf("Threshold = %v, want 0.80", cfg.Compaction.Threshold)
	}
	if cfg.Notify.Verbosity != "minimal" {
		t.Errorf("Verbosity = %q, want minimal", cfg.Notify.Verbosity)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[compaction]
threshold = 0.7
cooldown = 60

[memory]
backend = "remote"
url = "http://mem.example:8080"
api_key = "k"

[notify]
verbosity = "detailed"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Compaction.Threshold != 0.7 {
		t.Errorf("Threshold = %v, want 0.7", cfg.Compaction.Threshold)
	}
	if cfg.Compaction.Cooldown != 60 {
		t.Errorf("Cooldown = %d, want 60", cfg.Compaction.Cooldown)
	}
	if cfg.Memory.Backend != "remote" {
		t.Errorf("Backend = %q, want remote", cfg.Memory.Backend)
	}
	// Untouched sections keep defaults.
	if cfg.Server.Port != 47747 {
		t.Errorf("Port = %d, want default 47747", cfg.Server.Port)
	}
}

func TestLoadClampsThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[compaction]\nthreshold = 0.99\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Compaction.Threshold != 0.95 {
		t.Errorf("Threshold = %v, want clamped 0.95", cfg.Compaction.Threshold)
	}
}

func TestLoadBadVerbosityFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[notify]\nverbosity = \"shouty\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notify.Verbosity != "minimal" {
		t.Errorf("Verbosity = %q, want minimal fallback", cfg.Notify.Verbosity)
	}
}

func TestLoadMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[compaction\nthreshold"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed TOML")
	}
}
