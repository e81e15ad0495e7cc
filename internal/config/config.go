// Package config loads worksplit.toml and applies defaults and CLI overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFileName is the config file looked up in the project root.
const ConfigFileName = "worksplit.toml"

// Config is the top-level configuration for the engine.
type Config struct {
	Ollama   OllamaConfig   `toml:"ollama"`
	Limits   LimitsConfig   `toml:"limits"`
	Behavior BehaviorConfig `toml:"behavior"`
	Build    BuildConfig    `toml:"build"`
	Archive  ArchiveConfig  `toml:"archive"`
	Cleanup  CleanupConfig  `toml:"cleanup"`
}

// OllamaConfig configures the generation service endpoint.
type OllamaConfig struct {
	URL            string `toml:"url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LimitsConfig bounds context and output sizes.
type LimitsConfig struct {
	MaxOutputLines  int `toml:"max_output_lines"`
	MaxContextLines int `toml:"max_context_lines"`
	MaxContextFiles int `toml:"max_context_files"`
}

// BehaviorConfig controls runtime behavior.
type BehaviorConfig struct {
	StreamOutput     bool     `toml:"stream_output"`
	CreateOutputDirs bool     `toml:"create_output_dirs"`
	RecordEvents     bool     `toml:"record_events"`
	ProtectedGlobs   []string `toml:"protected_globs"`
}

// BuildConfig configures optional build/test verification after generation.
type BuildConfig struct {
	BuildCommand string `toml:"build_command"`
	TestCommand  string `toml:"test_command"`
	VerifyBuild  bool   `toml:"verify_build"`
	VerifyTests  bool   `toml:"verify_tests"`
}

// ArchiveConfig controls archiving of completed job files.
type ArchiveConfig struct {
	Auto bool `toml:"auto"`
}

// CleanupConfig controls age-based deletion of archived job files.
type CleanupConfig struct {
	Enabled bool `toml:"enabled"`
	Days    int  `toml:"days"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return defaultWithBools()
}

// applyDefaults fills zero-valued fields with engine defaults.
func applyDefaults(cfg *Config) {
	if cfg.Ollama.URL == "" {
		cfg.Ollama.URL = "http://localhost:11434"
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = "qwen-32k:latest"
	}
	if cfg.Ollama.TimeoutSeconds == 0 {
		cfg.Ollama.TimeoutSeconds = 300
	}
	if cfg.Limits.MaxOutputLines == 0 {
		cfg.Limits.MaxOutputLines = 900
	}
	if cfg.Limits.MaxContextLines == 0 {
		cfg.Limits.MaxContextLines = 1000
	}
	if cfg.Limits.MaxContextFiles == 0 {
		cfg.Limits.MaxContextFiles = 2
	}
	if cfg.Cleanup.Days == 0 {
		cfg.Cleanup.Days = 30
	}
}

// Load reads worksplit.toml from dir, falling back to defaults when the
// file does not exist.
func Load(dir string) (Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultWithBools(), nil
		}
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := defaultWithBools()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// defaultWithBools seeds the boolean fields whose default is true, so a
// config file that omits them keeps the documented defaults while one
// that sets them false is respected.
func defaultWithBools() Config {
	cfg := Config{}
	cfg.Behavior.StreamOutput = true
	cfg.Behavior.CreateOutputDirs = true
	cfg.Behavior.RecordEvents = true
	applyDefaults(&cfg)
	return cfg
}

// Overrides are optional CLI-level settings merged over the file config.
type Overrides struct {
	Model    string
	URL      string
	Timeout  int
	NoStream bool
}

// WithOverrides returns a copy of cfg with the non-zero overrides applied.
func (c Config) WithOverrides(o Overrides) Config {
	if o.Model != "" {
		c.Ollama.Model = o.Model
	}
	if o.URL != "" {
		c.Ollama.URL = o.URL
	}
	if o.Timeout > 0 {
		c.Ollama.TimeoutSeconds = o.Timeout
	}
	if o.NoStream {
		c.Behavior.StreamOutput = false
	}
	return c
}
