package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoaderOptions configures the configuration loader.
type LoaderOptions struct {
	// Path to a bluebeam.yaml file. Defaults to "./bluebeam.yaml".
	Path string
	// DotEnvPath, if non-empty, is loaded into the process environment
	// before BLUEBEAM_ overrides are applied (development convenience).
	DotEnvPath string
}

// DefaultLoaderOptions returns the default loader options.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{
		Path:       "bluebeam.yaml",
		DotEnvPath: ".env",
	}
}

// Load loads configuration from a YAML file, falling back to defaults on
// any read or parse failure, then overlays BLUEBEAM_-prefixed environment
// variables. Load never returns an error: a missing or malformed config
// file is not fatal, mirroring the settings blob's load-failure-yields-
// defaults rule.
func Load(opts ...LoaderOptions) *Config {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	if options.DotEnvPath != "" {
		_ = godotenv.Load(options.DotEnvPath)
	}

	cfg := Defaults()
	if fileCfg, err := loadFile(options.Path); err == nil {
		cfg = fileCfg
	}

	if cfg.Environment == "" {
		cfg.Environment = GetEnvironment()
	}

	substituteStrings(cfg)
	applyEnvironmentOverrides(cfg)

	return cfg
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func substituteStrings(cfg *Config) {
	cfg.Data.Dir = SubstituteEnvVars(cfg.Data.Dir)
	cfg.Data.ConfigDir = SubstituteEnvVars(cfg.Data.ConfigDir)
	cfg.Transport.ListenAddr = SubstituteEnvVars(cfg.Transport.ListenAddr)
	cfg.Logging.Level = SubstituteEnvVars(cfg.Logging.Level)
	cfg.Metrics.Addr = SubstituteEnvVars(cfg.Metrics.Addr)
}

// DataDir resolves the directory persisted state lives under, honoring
// an explicit override or falling back to the OS data directory.
func (c *Config) DataDir() (string, error) {
	if c.Data.Dir != "" {
		return c.Data.Dir, nil
	}
	base, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve data dir: %w", err)
	}
	return filepath.Join(base, ".local", "share", "bluebeam"), nil
}

// SettingsDir resolves the directory the encrypted settings blob lives
// under, honoring an explicit override or falling back to the OS config
// directory.
func (c *Config) SettingsDir() (string, error) {
	if c.Data.ConfigDir != "" {
		return c.Data.ConfigDir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "bluebeam"), nil
}
