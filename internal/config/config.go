// Package config holds all ballast configuration: the event server, the
// memory backend, compaction thresholds, recall and pattern extraction knobs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all ballast configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Host       HostConfig       `toml:"host"`
	Memory     MemoryConfig     `toml:"memory"`
	Compaction CompactionConfig `toml:"compaction"`
	Recall     RecallConfig     `toml:"recall"`
	Patterns   PatternsConfig   `toml:"patterns"`
	Notify     NotifyConfig     `toml:"notify"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

// HostConfig points at the conversation engine's local control API, which
// ballast calls to dispatch summarize requests and continuation prompts.
type HostConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"` // seconds
}

type MemoryConfig struct {
	Backend    string `toml:"backend"` // "local" or "remote"
	URL        string `toml:"url"`     // remote service base URL
	APIKey     string `toml:"api_key"`
	Path       string `toml:"path"`     // local sqlite path; empty = default
	Identity   string `toml:"identity"` // user identity for tag derivation; empty = $USER
	Timeout    int    `toml:"timeout"`  // seconds, per call
	MaxResults int    `toml:"max_results"`
}

type CompactionConfig struct {
	Enabled        bool    `toml:"enabled"`
	Threshold      float64 `toml:"threshold"` // usage ratio, clamped to [0.5, 0.95]
	Cooldown       int     `toml:"cooldown"`  // seconds between compactions; 0 disables the window
	MinTokens      int     `toml:"min_tokens"`
	DefaultLimit   int     `toml:"default_limit"` // context-limit fallback
	InjectMemories bool    `toml:"inject_memories"`
	InjectCount    int     `toml:"inject_count"`
	AutoContinue   bool    `toml:"auto_continue"`
	ContinueText   string  `toml:"continue_text"`
}

type RecallConfig struct {
	Limit         int     `toml:"limit"`
	MinSimilarity float64 `toml:"min_similarity"`
}

type PatternsConfig struct {
	MinMessages   int     `toml:"min_messages"`
	MinConfidence float64 `toml:"min_confidence"`
	MaxChars      int     `toml:"max_chars"`
}

type NotifyConfig struct {
	Verbosity string `toml:"verbosity"` // off, minimal, detailed
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 47747,
		},
		Host: HostConfig{
			URL:     "http://127.0.0.1:47700",
			Timeout: 120,
		},
		Memory: MemoryConfig{
			Backend:    "local",
			Path:       "", // resolved at runtime via store.DefaultDBPath()
			Timeout:    10,
			MaxResults: 20,
		},
		Compaction: CompactionConfig{
			Enabled:        true,
			Threshold:      0.80,
			Cooldown:       120,
			MinTokens:      20000,
			DefaultLimit:   200000,
			InjectMemories: true,
			InjectCount:    5,
			AutoContinue:   false,
			ContinueText:   "Continue where you left off.",
		},
		Recall: RecallConfig{
			Limit:         8,
			MinSimilarity: 0.30,
		},
		Patterns: PatternsConfig{
			MinMessages:   6,
			MinConfidence: 0.60,
			MaxChars:      2000,
		},
		Notify: NotifyConfig{
			Verbosity: "minimal",
		},
	}
}

// DefaultPath returns the default config location: ~/.ballast/config.toml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".ballast", "config.toml"), nil
}

// Load reads TOML config from path, layered over defaults. A missing file is
// not an error — defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize clamps out-of-range values back to safe bounds.
func (c *Config) normalize() {
	if c.Compaction.Threshold < 0.5 {
		c.Compaction.Threshold = 0.5
	}
	if c.Compaction.Threshold > 0.95 {
		c.Compaction.Threshold = 0.95
	}
	if c.Compaction.Cooldown < 0 {
		c.Compaction.Cooldown = 0
	}
	if c.Recall.Limit <= 0 {
		c.Recall.Limit = Default().Recall.Limit
	}
	if c.Memory.MaxResults <= 0 {
		c.Memory.MaxResults = Default().Memory.MaxResults
	}
	switch c.Notify.Verbosity {
	case "off", "minimal", "detailed":
	default:
		c.Notify.Verbosity = "minimal"
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// CooldownDuration returns the compaction cooldown as a duration.
func (c *Config) CooldownDuration() time.Duration {
	return time.Duration(c.Compaction.Cooldown) * time.Second
}

// MemoryTimeout returns the per-call memory service timeout.
func (c *Config) MemoryTimeout() time.Duration {
	return time.Duration(c.Memory.Timeout) * time.Second
}
