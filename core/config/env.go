package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\{\{\s*env\.(\w+)\s*\}\}`)

// ResolveEnv expands {{ env.VAR }} references in the database block so that
// credentials can live outside the document. Template SQL is never touched:
// {{...}} markers there belong to input substitution.
func ResolveEnv(cfg *Config) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"host", &cfg.Database.Host},
		{"username", &cfg.Database.Username},
		{"password", &cfg.Database.Password},
		{"database", &cfg.Database.Database},
	}

	for _, field := range fields {
		resolved, err := substituteEnvVars(*field.value)
		if err != nil {
			return fmt.Errorf("resolve database.%s: %w", field.name, err)
		}
		*field.value = resolved
	}

	for key, value := range cfg.Database.Params {
		resolved, err := substituteEnvVars(value)
		if err != nil {
			return fmt.Errorf("resolve database.params.%s: %w", key, err)
		}
		cfg.Database.Params[key] = resolved
	}

	return nil
}

func substituteEnvVars(value string) (string, error) {
	result := value
	matches := envVarPattern.FindAllStringSubmatch(value, -1)
	seen := make(map[string]bool)

	for _, match := range matches {
		if len(match) < 2 {
			continue
		}
		envVarName := match[1]
		placeholder := match[0]
		if seen[placeholder] {
			continue
		}
		seen[placeholder] = true

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			return "", fmt.Errorf("environment variable '%s' not found", envVarName)
		}
		result = strings.ReplaceAll(result, placeholder, envValue)
	}

	return result, nil
}
