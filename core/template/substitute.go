package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Substitute replaces {{label}} markers in a statement with rendered input
// values. The marker is built verbatim from the label, so "{{ status }}"
// (with spaces) is a different string than "{{status}}" and is left alone.
// Labels are processed one at a time in insertion order; a replacement never
// re-expands its own output. Markers with no matching input pass through
// unchanged.
//
// Values are spliced into the SQL text as-is, without quoting or escaping.
// String inputs that need quotes must carry them in the template text
// (e.g. WHERE name = '{{name}}'). This keeps rendered SQL inspectable at
// the cost of trusting input values, which is acceptable for the internal
// test databases this tool targets.
func Substitute(statement string, inputs *ResolvedInputs) string {
	result := statement
	for _, label := range inputs.Labels() {
		value, _ := inputs.Get(label)
		marker := "{{" + label + "}}"
		result = strings.ReplaceAll(result, marker, RenderValue(value))
	}
	return result
}

// RenderValue renders a resolved scalar as the exact text spliced into SQL.
func RenderValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// ExtractPlaceholders lists the keys of all {{...}} markers in a statement,
// deduplicated in first-seen order. This is diagnostic only (configuration
// validation warns about markers without a matching field); the substitution
// itself never pattern-matches.
func ExtractPlaceholders(statement string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(statement, -1)
	seen := make(map[string]bool)
	var result []string
	for _, match := range matches {
		if len(match) < 2 {
			continue
		}
		key := match[1]
		if !seen[key] {
			seen[key] = true
			result = append(result, key)
		}
	}
	return result
}
