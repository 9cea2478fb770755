// Package config loads and persists brain configuration.
// Configuration lives in config.yaml in the working directory; a missing file
// yields defaults. API credentials are never stored here, they come from the
// environment (see credentials.go).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file name looked up in the working directory.
const DefaultConfigFile = "config.yaml"

// Config holds all brain configuration.
type Config struct {
	// Default backend used for single dispatch and, unless overridden,
	// for synthesis.
	DefaultProvider string `yaml:"default_provider"`

	// Model hint forwarded to the default provider. Empty means each
	// adapter's built-in default.
	DefaultModel string `yaml:"default_model"`

	// Backend that receives the synthesis meta-prompt. Empty means
	// DefaultProvider.
	SynthesisProvider string `yaml:"synthesis_provider,omitempty"`

	// Generation parameters passed to every adapter.
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`

	// Number of recent thread messages supplied as context per call.
	ContextWindow int `yaml:"context_window"`

	// Thread history persistence.
	History HistoryConfig `yaml:"history"`
}

// HistoryConfig configures the thread store.
type HistoryConfig struct {
	// Backend selects the store implementation: "file" or "sqlite".
	Backend string `yaml:"backend"`

	// Dir holds one JSON record per thread for the file backend.
	Dir string `yaml:"dir"`

	// DatabasePath is the sqlite database location for the sqlite backend.
	DatabasePath string `yaml:"database_path,omitempty"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DefaultProvider: "mistral",
		DefaultModel:    "mistral-large-latest",
		MaxTokens:       4096,
		Temperature:     0.7,
		ContextWindow:   10,
		History: HistoryConfig{
			Backend: "file",
			Dir:     defaultHistoryDir(),
		},
	}
}

func defaultHistoryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".brain-cli"
	}
	return filepath.Join(home, ".brain-cli")
}

// Load reads configuration from path, falling back to defaults when the file
// does not exist. An unreadable or malformed file is an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyFallbacks()
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c Config) Save(path string) error {
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// SynthesisBackend resolves the backend that handles synthesis meta-prompts.
func (c Config) SynthesisBackend() string {
	if c.SynthesisProvider != "" {
		return c.SynthesisProvider
	}
	return c.DefaultProvider
}

func (c *Config) applyFallbacks() {
	def := Default()
	if c.DefaultProvider == "" {
		c.DefaultProvider = def.DefaultProvider
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = def.MaxTokens
	}
	if c.Temperature < 0 {
		c.Temperature = def.Temperature
	}
	if c.ContextWindow <= 0 {
		c.ContextWindow = def.ContextWindow
	}
	if c.History.Backend == "" {
		c.History.Backend = def.History.Backend
	}
	if c.History.Dir == "" {
		c.History.Dir = def.History.Dir
	}
}
