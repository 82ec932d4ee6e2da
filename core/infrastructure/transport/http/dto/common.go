package dto

// HealthResponse represents a health check response. Database reports the
// session state; the probe succeeds either way since the service is up.
type HealthResponse struct {
	Success  bool   `json:"success"`
	Database string `json:"database"`
}

// ErrorResponse is the envelope for any failed request. Results is always
// present, mirroring the success envelope, so clients can index it blindly.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Results []any  `json:"results"`
}

// ReloadResponse reports the outcome of a configuration reload.
type ReloadResponse struct {
	Success   bool `json:"success"`
	Templates int  `json:"templates"`
}
