package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chenhy0213/test-tool-with-db/core/template"
	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration document. The format is chosen by
// file extension: .yaml/.yml parse as YAML, everything else as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON parses a JSON configuration document.
func ParseJSON(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return buildConfig(raw)
}

// ParseYAML parses a YAML configuration document.
func ParseYAML(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	return buildConfig(raw)
}

func buildConfig(raw map[string]interface{}) (*Config, error) {
	cfg := &Config{}

	if dbRaw, ok := raw["database"].(map[string]interface{}); ok {
		db, err := parseDatabase(dbRaw)
		if err != nil {
			return nil, err
		}
		cfg.Database = db
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}

	if serverRaw, ok := raw["server"].(map[string]interface{}); ok {
		cfg.Server = parseServer(serverRaw)
	}

	var templates []*template.Template
	if queriesRaw, ok := raw["queries"].([]interface{}); ok {
		for i, queryRaw := range queriesRaw {
			queryMap, ok := queryRaw.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("invalid query structure at index %d", i)
			}
			tpl, err := parseQuery(i, queryMap)
			if err != nil {
				return nil, err
			}
			templates = append(templates, tpl)
		}
	}

	cfg.Templates = template.NewLibrary(templates)

	return cfg, nil
}

func parseDatabase(dbRaw map[string]interface{}) (DatabaseConfig, error) {
	db := DatabaseConfig{}

	if driver, ok := dbRaw["driver"].(string); ok {
		db.Driver = strings.ToLower(driver)
	}
	if host, ok := dbRaw["host"].(string); ok {
		db.Host = host
	}
	if port, ok := toInt(dbRaw["port"]); ok {
		db.Port = port
	}
	if username, ok := dbRaw["username"].(string); ok {
		db.Username = username
	}
	if password, ok := dbRaw["password"].(string); ok {
		db.Password = password
	}
	if database, ok := dbRaw["database"].(string); ok {
		db.Database = database
	}
	if paramsRaw, ok := dbRaw["params"].(map[string]interface{}); ok {
		db.Params = make(map[string]string, len(paramsRaw))
		for key, value := range paramsRaw {
			if strValue, ok := value.(string); ok {
				db.Params[key] = strValue
			} else {
				db.Params[key] = fmt.Sprintf("%v", value)
			}
		}
	}

	return db, nil
}

func parseServer(serverRaw map[string]interface{}) ServerConfig {
	server := ServerConfig{}
	if port, ok := toInt(serverRaw["port"]); ok {
		server.Port = port
	}
	if level, ok := serverRaw["log_level"].(string); ok {
		server.LogLevel = strings.ToLower(level)
	}
	if timeout, ok := toInt(serverRaw["query_timeout_seconds"]); ok {
		server.QueryTimeoutSeconds = timeout
	}
	return server
}

func parseQuery(index int, queryMap map[string]interface{}) (*template.Template, error) {
	tpl := &template.Template{}

	if name, ok := queryMap["name"].(string); ok {
		tpl.Name = name
	}
	if description, ok := queryMap["description"].(string); ok {
		tpl.Description = description
	}
	if tooltip, ok := queryMap["bubble_description"].(string); ok {
		tpl.Tooltip = tooltip
	}

	// The sql field is either a single string (split on semicolons) or an
	// explicit statement list (passed through verbatim). Resolution happens
	// once here; the statements are never re-split at execution time.
	switch v := queryMap["sql"].(type) {
	case string:
		tpl.Statements = template.SplitStatements(v)
	case []interface{}:
		var list []string
		for j, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("query '%s': sql[%d] must be a string", nameOrIndex(tpl.Name, index), j)
			}
			list = append(list, str)
		}
		tpl.Statements = template.NormalizeStatements(list)
	case nil:
		// Missing sql is caught by validation, not parsing.
	default:
		return nil, fmt.Errorf("query '%s': sql must be a string or a list of strings", nameOrIndex(tpl.Name, index))
	}

	if fieldsRaw, ok := queryMap["input_fields"].([]interface{}); ok {
		for j, fieldRaw := range fieldsRaw {
			fieldMap, ok := fieldRaw.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("query '%s': invalid input field structure at index %d", nameOrIndex(tpl.Name, index), j)
			}
			field, err := parseField(tpl.Name, index, fieldMap)
			if err != nil {
				return nil, err
			}
			tpl.Fields = append(tpl.Fields, field)
		}
	}

	if ttl, ok := toInt(queryMap["cache_ttl"]); ok && ttl > 0 {
		tpl.CacheTTL = time.Duration(ttl) * time.Second
	}

	return tpl, nil
}

func parseField(queryName string, queryIndex int, fieldMap map[string]interface{}) (template.Field, error) {
	field := template.Field{Type: template.FieldText}

	if label, ok := fieldMap["label"].(string); ok {
		field.Label = label
	}
	if typeStr, ok := fieldMap["type"].(string); ok && typeStr != "" {
		parsed, err := template.ParseFieldType(typeStr)
		if err != nil {
			return template.Field{}, fmt.Errorf("query '%s': field '%s': %w", nameOrIndex(queryName, queryIndex), field.Label, err)
		}
		field.Type = parsed
	}
	if placeholder, ok := fieldMap["placeholder"].(string); ok {
		field.Placeholder = placeholder
	}
	if optionsRaw, ok := fieldMap["options"].([]interface{}); ok {
		for _, item := range optionsRaw {
			if str, ok := item.(string); ok {
				field.Options = append(field.Options, str)
			} else {
				field.Options = append(field.Options, fmt.Sprintf("%v", item))
			}
		}
	}

	return field, nil
}

func nameOrIndex(name string, index int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("[%d]", index)
}

func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(parsed), true
	default:
		return 0, false
	}
}
