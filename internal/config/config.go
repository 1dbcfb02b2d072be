// Package config loads workspace configuration from
// .ground/config.yaml with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the workspace data directory, created alongside the code
	// being worked on.
	Dir = ".ground"

	configFile = "config.yaml"
	dbFile     = "sessions.db"
)

// OllamaConfig selects the local inference endpoint and model.
type OllamaConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// StorageConfig selects where session state persists. Path is relative
// to the workspace root unless absolute.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Config is the full workspace configuration.
type Config struct {
	Ollama  OllamaConfig  `yaml:"ollama"`
	Storage StorageConfig `yaml:"storage"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Ollama: OllamaConfig{
			BaseURL:        "http://localhost:11434",
			Model:          "qwen2.5-coder:7b",
			TimeoutSeconds: 60,
		},
		Storage: StorageConfig{
			Path: filepath.Join(Dir, dbFile),
		},
	}
}

// Load reads configuration for the workspace rooted at root. A missing
// config file yields defaults; a malformed one is an error. Environment
// variables GROUND_OLLAMA_URL and GROUND_MODEL override the file.
func Load(root string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(root, Dir, configFile)
	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if v := os.Getenv("GROUND_OLLAMA_URL"); v != "" {
		cfg.Ollama.BaseURL = v
	}
	if v := os.Getenv("GROUND_MODEL"); v != "" {
		cfg.Ollama.Model = v
	}

	if cfg.Ollama.TimeoutSeconds <= 0 {
		cfg.Ollama.TimeoutSeconds = Default().Ollama.TimeoutSeconds
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = Default().Storage.Path
	}
	return cfg, nil
}

// Save writes the configuration to the workspace's config file,
// creating the data directory when needed.
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	raw, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, configFile), raw, 0o644)
}

// DBPath resolves the session database path against the workspace
// root.
func (c *Config) DBPath(root string) string {
	if filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(root, c.Storage.Path)
}

// Timeout returns the Ollama request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Ollama.TimeoutSeconds) * time.Second
}
