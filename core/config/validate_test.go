package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chenhy0213/test-tool-with-db/core/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := ParseJSON([]byte(sampleJSON))
	require.NoError(t, err)
	return cfg
}

func TestValidate_ValidConfigPasses(t *testing.T) {
	require.NoError(t, Validate(validConfig(t)))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg, err := ParseJSON([]byte(`{
  "database": {"host": "", "port": 0, "username": "", "database": ""},
  "queries": [
    {"name": "", "sql": ""},
    {
      "name": "bad_fields",
      "sql": "SELECT 1",
      "input_fields": [
        {"label": ""},
        {"label": "x"},
        {"label": "x"},
        {"label": "pick", "type": "select"}
      ]
    }
  ]
}`))
	require.NoError(t, err)

	err = Validate(cfg)
	require.Error(t, err)

	var ve *ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "validation failed with")

	joined := ""
	for _, msg := range ve.Errors {
		joined += msg + "\n"
	}
	assert.Contains(t, joined, "database.host is required")
	assert.Contains(t, joined, "database.port is required")
	assert.Contains(t, joined, "database.username is required")
	assert.Contains(t, joined, "queries[0] - name is required")
	assert.Contains(t, joined, "sql is required")
	assert.Contains(t, joined, "label is required")
	assert.Contains(t, joined, "must be unique within the query")
	assert.Contains(t, joined, "select field 'pick' requires options")
}

func TestValidate_RejectsBadServerBlock(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.LogLevel = "verbose"

	err := Validate(cfg)
	require.Error(t, err)

	var ve *ValidationErrors
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Errors, 1)
	assert.Contains(t, ve.Errors[0], "server.loglevel 'verbose' is invalid")
}

func TestValidate_RejectsUnknownDriver(t *testing.T) {
	cfg := validConfig(t)
	cfg.Database.Driver = "oracle"

	err := Validate(cfg)
	require.Error(t, err)
	var ve *ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Errors[0], "database.driver 'oracle' is invalid")
}

func TestValidate_RejectsCacheOnWriteTemplate(t *testing.T) {
	cfg, err := ParseJSON([]byte(`{
  "database": {"host": "localhost", "port": 3306, "username": "root", "database": "test_db"},
  "queries": [
    {"name": "bump_counter", "sql": "UPDATE counters SET n = n + 1", "cache_ttl": 60}
  ]
}`))
	require.NoError(t, err)

	err = Validate(cfg)
	require.Error(t, err)

	var ve *ValidationErrors
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Errors, 1)
	assert.Contains(t, ve.Errors[0], "cache_ttl requires every statement to be a SELECT")
}

func TestPlaceholderWarnings(t *testing.T) {
	tpl := &template.Template{
		Name: "report",
		Statements: []string{
			"SELECT * FROM t WHERE a = {{a}} AND b = {{mystery}}",
		},
		Fields: []template.Field{
			{Label: "a", Type: template.FieldNumber},
			{Label: "unused", Type: template.FieldText},
		},
	}

	warnings := PlaceholderWarnings(tpl)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "placeholder '{{mystery}}' has no matching input field")
	assert.Contains(t, warnings[1], "input field 'unused' is never referenced")
}

func TestPlaceholderWarnings_CleanTemplate(t *testing.T) {
	tpl := &template.Template{
		Name:       "clean",
		Statements: []string{"SELECT * FROM t WHERE id = {{id}}"},
		Fields:     []template.Field{{Label: "id", Type: template.FieldNumber}},
	}

	assert.Empty(t, PlaceholderWarnings(tpl))
}

func TestResolveEnv(t *testing.T) {
	t.Setenv("ORDERS_DB_PASSWORD", "s3cret")
	t.Setenv("ORDERS_DB_HOST", "db.prod.internal")

	cfg := Default()
	cfg.Database.Host = "{{ env.ORDERS_DB_HOST }}"
	cfg.Database.Password = "{{ env.ORDERS_DB_PASSWORD }}"
	cfg.Database.Params = map[string]string{"tls": "{{ env.ORDERS_DB_HOST }}-ca"}

	require.NoError(t, ResolveEnv(cfg))
	assert.Equal(t, "db.prod.internal", cfg.Database.Host)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "db.prod.internal-ca", cfg.Database.Params["tls"])
}

func TestResolveEnv_MissingVariable(t *testing.T) {
	cfg := Default()
	cfg.Database.Password = "{{ env.NO_SUCH_PASSWORD_VAR }}"

	err := ResolveEnv(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve database.password")
	assert.Contains(t, err.Error(), "NO_SUCH_PASSWORD_VAR")
}

func TestResolveEnv_LeavesPlainValuesAlone(t *testing.T) {
	cfg := Default()
	original := cfg.Database

	require.NoError(t, ResolveEnv(cfg))
	assert.Equal(t, original, cfg.Database)
}
