package observability

import (
	"strconv"
	"strings"
)

// Attribute keys shared by the metric and trace instrumentation. HTTP keys
// follow OpenTelemetry semantic conventions; the rest are tool-specific.
const (
	AttrTemplateName   = "template.name"
	AttrDriverName     = "db.driver"
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.response.status_code"
)

var secretKeySubstrings = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"api_key",
	"apikey",
	"authorization",
	"connection_string",
	"dsn",
}

// RedactAttributeValue masks values for known-sensitive attribute keys.
func RedactAttributeValue(key string, value string) string {
	lower := strings.ToLower(key)
	for _, needle := range secretKeySubstrings {
		if strings.Contains(lower, needle) {
			return "[REDACTED]"
		}
	}
	return value
}

// StringifyAttrs converts free-form attributes to strings and redacts
// values for sensitive keys.
func StringifyAttrs(attrs map[string]any) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		switch typed := v.(type) {
		case string:
			out[k] = RedactAttributeValue(k, typed)
		case bool:
			out[k] = strconv.FormatBool(typed)
		case int:
			out[k] = strconv.Itoa(typed)
		case int64:
			out[k] = strconv.FormatInt(typed, 10)
		case float64:
			out[k] = strconv.FormatFloat(typed, 'f', -1, 64)
		default:
			out[k] = RedactAttributeValue(k, "")
		}
	}
	return out
}
