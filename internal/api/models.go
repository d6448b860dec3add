// Package api implements the HTTP server for the CopilotBridge service.
// It authenticates inbound callers against the configured access token,
// brokers the Copilot service token, and relays completion requests to the
// upstream API in both buffered and streaming modes.
package api

// ErrorResponse represents a standardized error response body.
type ErrorResponse struct {
	// Error contains the details of the error.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail provides specific information about an error.
type ErrorDetail struct {
	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// Type categorizes the error, for example "authentication_error".
	Type string `json:"type"`

	// Code is an optional short error code.
	Code string `json:"code,omitempty"`
}
