package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InputError reports a single invalid or missing input value.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ResolvedInputs holds validated input values keyed by field label,
// preserving the order in which they were set. Substitution walks labels
// in exactly this order.
type ResolvedInputs struct {
	labels []string
	values map[string]any
}

// NewResolvedInputs returns an empty value set.
func NewResolvedInputs() *ResolvedInputs {
	return &ResolvedInputs{values: make(map[string]any)}
}

// Set stores a value for a label. Setting an existing label replaces the
// value without changing its position.
func (r *ResolvedInputs) Set(label string, value any) {
	if _, exists := r.values[label]; !exists {
		r.labels = append(r.labels, label)
	}
	r.values[label] = value
}

// Get returns the value stored for a label.
func (r *ResolvedInputs) Get(label string) (any, bool) {
	v, ok := r.values[label]
	return v, ok
}

// Labels returns the labels in insertion order.
func (r *ResolvedInputs) Labels() []string {
	out := make([]string, len(r.labels))
	copy(out, r.labels)
	return out
}

// Values returns a copy of the stored values keyed by label.
func (r *ResolvedInputs) Values() map[string]any {
	out := make(map[string]any, len(r.labels))
	for label, value := range r.values {
		out[label] = value
	}
	return out
}

// Len returns the number of stored values.
func (r *ResolvedInputs) Len() int {
	return len(r.labels)
}

// ResolveInputs validates raw values against a template's field definitions
// and produces a ResolvedInputs ordered by field declaration. Every declared
// field must be present in raw; keys not matching any field are rejected.
func ResolveInputs(fields []Field, raw map[string]any) (*ResolvedInputs, error) {
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Label] = true
	}
	for key := range raw {
		if !known[key] {
			return nil, &InputError{
				Field:   key,
				Message: fmt.Sprintf("unknown input field '%s'", key),
			}
		}
	}

	resolved := NewResolvedInputs()
	for _, field := range fields {
		value, exists := raw[field.Label]
		if !exists {
			return nil, &InputError{
				Field:   field.Label,
				Message: fmt.Sprintf("required input '%s' is missing", field.Label),
			}
		}

		converted, err := convertFieldValue(field, value)
		if err != nil {
			return nil, &InputError{
				Field:   field.Label,
				Message: err.Error(),
			}
		}
		resolved.Set(field.Label, converted)
	}

	return resolved, nil
}

func convertFieldValue(field Field, value any) (any, error) {
	switch field.Type {
	case FieldText:
		return convertToText(value)
	case FieldNumber:
		return convertToNumber(value)
	case FieldFloat:
		return convertToFloat(value)
	case FieldDate:
		return convertToDate(value)
	case FieldSelect:
		return convertToSelect(field, value)
	default:
		return nil, fmt.Errorf("unsupported field type '%s'", field.Type)
	}
}

func convertToText(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func convertToNumber(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert '%s' to number: %w", v, err)
		}
		return parsed, nil
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("cannot convert '%s' to number: %w", v, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", value)
	}
}

func convertToFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert '%s' to float: %w", v, err)
		}
		return parsed, nil
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("cannot convert '%s' to float: %w", v, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float", value)
	}
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func convertToDate(value any) (string, error) {
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		for _, format := range dateFormats {
			if _, err := time.Parse(format, trimmed); err == nil {
				return trimmed, nil
			}
		}
		return "", fmt.Errorf("cannot parse '%s' as date", v)
	case time.Time:
		return v.Format("2006-01-02"), nil
	default:
		return "", fmt.Errorf("cannot convert %T to date", value)
	}
}

func convertToSelect(field Field, value any) (string, error) {
	text, err := convertToText(value)
	if err != nil {
		return "", err
	}
	if len(field.Options) > 0 && !field.HasOption(text) {
		return "", fmt.Errorf("value '%s' is not one of the allowed options %v", text, field.Options)
	}
	return text, nil
}
