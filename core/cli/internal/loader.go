// Package internal holds the loading and resolution helpers shared by the
// CLI commands.
package internal

import (
	"os"
	"strconv"

	"github.com/chenhy0213/test-tool-with-db/core/config"
	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/logging"
	"github.com/chenhy0213/test-tool-with-db/core/shared/errors"
)

// LoadConfig loads, validates, and env-resolves a configuration document.
// A missing or unparseable file falls back to the built-in defaults with a
// warning, matching the tool's recover-and-keep-going behavior; a document
// that parses but fails validation is a hard error.
func LoadConfig(path string) (*config.Config, error) {
	log := logging.New("Config")

	cfg, err := config.Load(path)
	if err != nil {
		log.Warnf("Failed to load configuration from %s, using defaults: %v", path, err)
		return config.Default(), nil
	}

	if err := validateAndResolve(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigStrict loads a configuration document without the default
// fallback. Used by validate, where a broken document is the whole point.
func LoadConfigStrict(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, logging.WithTag("Config",
			errors.WrapError(errors.ErrCodeConfigError, "failed to load configuration", err))
	}

	if err := validateAndResolve(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateAndResolve runs validation and environment resolution. Validation
// details are logged by Validate itself; the returned error carries the
// summary line and the logging tag for the top-level handler.
func validateAndResolve(cfg *config.Config) error {
	if err := config.Validate(cfg); err != nil {
		return logging.WithTag("Config", err)
	}
	if err := config.ResolveEnv(cfg); err != nil {
		return logging.WithTag("Config", err)
	}
	return nil
}

// ResolvePort resolves the port from CLI flag, config file, env var, or default
func ResolvePort(cliPort string, cfg *config.Config) string {
	if cliPort != "" {
		return cliPort
	}
	if cfg != nil && cfg.Server.Port > 0 {
		return strconv.Itoa(cfg.Server.Port)
	}
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}

// ResolveLogLevel resolves the log level from verbose flag, CLI flag, config file, or default
func ResolveLogLevel(verbose bool, cliLogLevel int, cfg *config.Config) int {
	if verbose {
		return logging.LogLevelDebug
	}
	if cliLogLevel > 0 {
		return cliLogLevel
	}
	if cfg != nil && cfg.Server.LogLevel != "" {
		if level, ok := logLevelFromName(cfg.Server.LogLevel); ok {
			return level
		}
	}
	return logging.LogLevelInfo
}

func logLevelFromName(name string) (int, bool) {
	switch name {
	case "error":
		return logging.LogLevelError, true
	case "warn":
		return logging.LogLevelWarn, true
	case "info":
		return logging.LogLevelInfo, true
	case "debug":
		return logging.LogLevelDebug, true
	default:
		return 0, false
	}
}
