package dto

// TemplateField describes one input field of a template, using the same
// key names as the configuration document.
type TemplateField struct {
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty"`
}

// TemplateSummary is the listing shape for a template.
type TemplateSummary struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Tooltip        string `json:"bubble_description,omitempty"`
	StatementCount int    `json:"statement_count"`
}

// TemplateDetail is the full shape for a single template, including its
// input fields and the placeholder markers its statements reference.
type TemplateDetail struct {
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Tooltip        string          `json:"bubble_description,omitempty"`
	StatementCount int             `json:"statement_count"`
	Fields         []TemplateField `json:"input_fields"`
	Placeholders   []string        `json:"placeholders,omitempty"`
}

// TemplateListResponse wraps a template listing.
type TemplateListResponse struct {
	Success   bool              `json:"success"`
	Templates []TemplateSummary `json:"templates"`
}

// ExecuteResponse is the envelope for a successful template execution.
// Results carries one entry per executed statement.
type ExecuteResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Results any    `json:"results"`
}
