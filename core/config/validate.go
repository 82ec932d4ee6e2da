package config

import (
	"fmt"
	"strings"

	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/logging"
	"github.com/chenhy0213/test-tool-with-db/core/template"
	"github.com/go-playground/validator/v10"
)

var log = logging.New("Config")

var structValidator = validator.New()

// ValidationErrors represents a collection of validation errors
type ValidationErrors struct {
	Errors []string
}

// Error implements the error interface
// Returns a simple message since detailed errors are already logged
func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed with %d error(s)", len(ve.Errors))
}

// Validate performs comprehensive validation on the loaded configuration.
func Validate(cfg *Config) error {
	log.Debug("Starting validation")
	var errors []string

	errors = append(errors, validateDatabase(cfg.Database)...)
	errors = append(errors, validateServer(cfg.Server)...)

	if cfg.Templates != nil {
		for i, tpl := range cfg.Templates.All() {
			errors = append(errors, validateTemplate(i, tpl)...)
		}
	}

	if len(errors) > 0 {
		log.PrintValidationErrors(errors)
		return &ValidationErrors{Errors: errors}
	}

	log.Debug("Validation completed successfully")
	return nil
}

func validateDatabase(db DatabaseConfig) []string {
	var errors []string
	if err := structValidator.Struct(db); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				errors = append(errors, describeFieldError("database", fe))
			}
		} else {
			errors = append(errors, fmt.Sprintf("database: %v", err))
		}
	}
	return errors
}

func validateServer(server ServerConfig) []string {
	var errors []string
	if err := structValidator.Struct(server); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				errors = append(errors, describeFieldError("server", fe))
			}
		} else {
			errors = append(errors, fmt.Sprintf("server: %v", err))
		}
	}
	return errors
}

func describeFieldError(block string, fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s.%s is required", block, field)
	case "oneof":
		return fmt.Sprintf("%s.%s '%v' is invalid. Must be one of: %s", block, field, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "max":
		return fmt.Sprintf("%s.%s '%v' is out of range", block, field, fe.Value())
	default:
		return fmt.Sprintf("%s.%s failed '%s' validation", block, field, fe.Tag())
	}
}

func validateTemplate(index int, tpl *template.Template) []string {
	var errors []string

	prefix := fmt.Sprintf("queries[%d]", index)
	if tpl.Name == "" {
		errors = append(errors, fmt.Sprintf("%s - name is required", prefix))
	} else {
		prefix = fmt.Sprintf("Query '%s'", tpl.Name)
	}

	if len(tpl.Statements) == 0 {
		errors = append(errors, fmt.Sprintf("%s - sql is required and must contain at least one statement", prefix))
	}

	if tpl.CacheTTL > 0 && !tpl.ReadOnly() {
		errors = append(errors, fmt.Sprintf("%s - cache_ttl requires every statement to be a SELECT", prefix))
	}

	labels := make(map[string]bool)
	for j, field := range tpl.Fields {
		fieldPrefix := fmt.Sprintf("%s.input_fields[%d]", prefix, j)

		if field.Label == "" {
			errors = append(errors, fmt.Sprintf("%s.label is required", fieldPrefix))
			continue
		}
		if labels[field.Label] {
			errors = append(errors, fmt.Sprintf("%s.label '%s' must be unique within the query", fieldPrefix, field.Label))
		}
		labels[field.Label] = true

		if field.Type == template.FieldSelect && len(field.Options) == 0 {
			errors = append(errors, fmt.Sprintf("%s - select field '%s' requires options", fieldPrefix, field.Label))
		}
	}

	return errors
}

// PlaceholderWarnings reports {{...}} markers with no matching input field
// and fields never referenced by any statement. These are warnings rather
// than errors: unmatched markers pass through to the database verbatim,
// which some templates rely on (e.g. text columns holding literal braces).
func PlaceholderWarnings(tpl *template.Template) []string {
	var warnings []string

	labels := make(map[string]bool, len(tpl.Fields))
	for _, field := range tpl.Fields {
		labels[field.Label] = true
	}

	referenced := make(map[string]bool)
	for _, key := range tpl.Placeholders() {
		referenced[key] = true
		if !labels[key] {
			warnings = append(warnings, fmt.Sprintf("Query '%s' - placeholder '{{%s}}' has no matching input field and will be sent to the database as-is", tpl.Name, key))
		}
	}

	for _, field := range tpl.Fields {
		if !referenced[field.Label] {
			warnings = append(warnings, fmt.Sprintf("Query '%s' - input field '%s' is never referenced by any statement", tpl.Name, field.Label))
		}
	}

	return warnings
}
