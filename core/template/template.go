// Package template defines query templates: named SQL statement sequences
// with typed input fields whose values are substituted into the text before
// execution. Templates are immutable after load; a Library indexes them by
// name for lookup and search.
package template

import (
	"fmt"
	"strings"
	"time"
)

// FieldType enumerates the supported input field types.
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
	FieldFloat  FieldType = "float"
	FieldDate   FieldType = "date"
	FieldSelect FieldType = "select"
)

// ParseFieldType validates a field type string from configuration.
func ParseFieldType(s string) (FieldType, error) {
	switch FieldType(strings.ToLower(strings.TrimSpace(s))) {
	case FieldText:
		return FieldText, nil
	case FieldNumber:
		return FieldNumber, nil
	case FieldFloat:
		return FieldFloat, nil
	case FieldDate:
		return FieldDate, nil
	case FieldSelect:
		return FieldSelect, nil
	default:
		return "", fmt.Errorf("unsupported field type '%s'", s)
	}
}

// Field describes one input of a template. The label doubles as the
// placeholder key: a field labeled "status" binds the marker {{status}}.
type Field struct {
	Label       string
	Type        FieldType
	Placeholder string
	Options     []string
}

// HasOption reports whether value is one of the field's select options.
func (f Field) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt == value {
			return true
		}
	}
	return false
}

// Template is a named, ordered sequence of SQL statements with input fields.
// Statements are resolved once at load time and never re-split.
type Template struct {
	Name        string
	Description string
	Tooltip     string
	Statements  []string
	Fields      []Field

	// CacheTTL enables result caching for this template when positive.
	// Only templates whose statements are all SELECTs are eligible.
	CacheTTL time.Duration
}

// Field returns the input field with the given label.
func (t *Template) Field(label string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Label == label {
			return f, true
		}
	}
	return Field{}, false
}

// FieldLabels returns the labels of all input fields in declaration order.
func (t *Template) FieldLabels() []string {
	labels := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		labels[i] = f.Label
	}
	return labels
}

// Placeholders returns every {{...}} key referenced across the template's
// statements, deduplicated in first-seen order.
func (t *Template) Placeholders() []string {
	seen := make(map[string]bool)
	var result []string
	for _, stmt := range t.Statements {
		for _, key := range ExtractPlaceholders(stmt) {
			if !seen[key] {
				seen[key] = true
				result = append(result, key)
			}
		}
	}
	return result
}

// ReadOnly reports whether every statement begins with the SELECT verb.
// Only read-only templates are eligible for result caching.
func (t *Template) ReadOnly() bool {
	for _, stmt := range t.Statements {
		if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(stmt)), "SELECT") {
			return false
		}
	}
	return true
}

// matches reports whether the template matches a search query. The query
// must already be lowercased; the test is a substring match over the name,
// description, tooltip, field labels and statement text.
func (t *Template) matches(query string) bool {
	if strings.Contains(strings.ToLower(t.Name), query) {
		return true
	}
	if strings.Contains(strings.ToLower(t.Description), query) {
		return true
	}
	if strings.Contains(strings.ToLower(t.Tooltip), query) {
		return true
	}
	for _, f := range t.Fields {
		if strings.Contains(strings.ToLower(f.Label), query) {
			return true
		}
	}
	for _, stmt := range t.Statements {
		if strings.Contains(strings.ToLower(stmt), query) {
			return true
		}
	}
	return false
}

// Library is an immutable, name-indexed collection of templates.
type Library struct {
	templates []*Template
	byName    map[string]*Template
}

// NewLibrary builds a library. Names are display identity and are not
// required to be unique; when two templates share a name, lookups resolve
// to the one that appears first in configuration order.
func NewLibrary(templates []*Template) *Library {
	byName := make(map[string]*Template, len(templates))
	for _, t := range templates {
		if _, exists := byName[t.Name]; !exists {
			byName[t.Name] = t
		}
	}
	return &Library{templates: templates, byName: byName}
}

// Find returns the first template with the given name.
func (l *Library) Find(name string) (*Template, bool) {
	t, ok := l.byName[name]
	return t, ok
}

// All returns the templates in configuration order.
func (l *Library) All() []*Template {
	out := make([]*Template, len(l.templates))
	copy(out, l.templates)
	return out
}

// Len returns the number of templates.
func (l *Library) Len() int {
	return len(l.templates)
}

// Search returns the templates matching the query, case-insensitively, in
// configuration order. A template matches when the query appears in its
// name, description, tooltip, a field label or the statement text. An
// empty query returns everything.
func (l *Library) Search(query string) []*Template {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return l.All()
	}

	var out []*Template
	for _, t := range l.templates {
		if t.matches(query) {
			out = append(out, t)
		}
	}
	return out
}
