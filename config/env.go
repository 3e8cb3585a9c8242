package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// envVarPattern matches ${VAR} or ${VAR:default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with environment
// variable values found in a config file string field.
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// GetEnvironment returns the current environment from BLUEBEAM_ENV or
// defaults to "development".
func GetEnvironment() string {
	env := os.Getenv("BLUEBEAM_ENV")
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// applyEnvironmentOverrides overrides config fields with BLUEBEAM_-prefixed
// environment variables, highest priority in the load order.
func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("BLUEBEAM_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("BLUEBEAM_CONFIG_DIR"); v != "" {
		cfg.Data.ConfigDir = v
	}
	if v := os.Getenv("BLUEBEAM_LISTEN_ADDR"); v != "" {
		cfg.Transport.ListenAddr = v
	}
	if v := os.Getenv("BLUEBEAM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BLUEBEAM_LOG_PRETTY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.Pretty = b
		}
	}
	if v := os.Getenv("BLUEBEAM_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("BLUEBEAM_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("BLUEBEAM_SESSION_MAX_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.MaxAge = d
		}
	}
}
