// Package config loads, validates, and defaults the configuration document:
// a database connection block plus the query template definitions. JSON is
// the primary format and YAML is accepted by file extension.
package config

import (
	"time"

	"github.com/chenhy0213/test-tool-with-db/core/template"
)

// DatabaseConfig is the connection block of the configuration document.
type DatabaseConfig struct {
	Driver   string            `json:"driver" validate:"omitempty,oneof=mysql postgres"`
	Host     string            `json:"host" validate:"required"`
	Port     int               `json:"port" validate:"required,min=1,max=65535"`
	Username string            `json:"username" validate:"required"`
	Password string            `json:"password"`
	Database string            `json:"database" validate:"required"`
	Params   map[string]string `json:"params"`
}

// ServerConfig tunes the HTTP service wrapper.
type ServerConfig struct {
	Port                int    `json:"port" validate:"omitempty,min=1,max=65535"`
	LogLevel            string `json:"log_level" validate:"omitempty,oneof=error warn info debug"`
	QueryTimeoutSeconds int    `json:"query_timeout_seconds" validate:"omitempty,min=1"`
}

// QueryTimeout returns the per-execution deadline, zero when unset.
func (s ServerConfig) QueryTimeout() time.Duration {
	return time.Duration(s.QueryTimeoutSeconds) * time.Second
}

// Config is the fully loaded configuration document.
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Templates *template.Library
}

// Default returns the fallback configuration used when no document can be
// loaded: a local MySQL connection and an empty template set.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			Username: "root",
			Password: "",
			Database: "test_db",
		},
		Templates: template.NewLibrary(nil),
	}
}
