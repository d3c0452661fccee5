// Package gateway provides request/response value types for the admission
// pipeline. These are extracted from HTTP and passed through the pipeline;
// nothing here performs I/O.
package gateway

import (
	"errors"

	"github.com/pulseproto/pulsegate/domain/quota"
)

// Request represents one incoming gateway request (value type).
type Request struct {
	APIKey         string
	Action         string
	Provider       string
	Parameters     map[string]any
	ProviderConfig map[string]any // adapter credentials: never logged, never echoed
}

// Message is the sanitized payload handed to an adapter.
type Message struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
}

// Validate checks the minimal message shape before dispatch.
func (m Message) Validate() error {
	if m.Action == "" {
		return errors.New("action is required")
	}
	return nil
}

// Response is the terminal result of one pipeline run (value type).
// Security blocks and adapter failures still produce a Response - only
// auth and quota rejections use ErrorResponse instead.
type Response struct {
	Success   bool            `json:"success"`
	RequestID string          `json:"request_id"`
	Provider  string          `json:"provider"`
	Result    any             `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Usage     *quota.Decision `json:"usage,omitempty"`
}

// ErrorResponse is a transport-level rejection (value type).
type ErrorResponse struct {
	Status  int             `json:"-"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Usage   *quota.Decision `json:"usage,omitempty"` // quota diagnostic, when one exists
}

// ErrMissingKey rejects requests without an API key. Never audited.
var ErrMissingKey = ErrorResponse{
	Status:  401,
	Code:    "missing_api_key",
	Message: "Missing X-API-Key header",
}

// QuotaRejection builds the 429 rejection for a denied quota decision.
// Unregistered keys and exhausted quotas share the status code so the two
// cases cannot be told apart by probing.
func QuotaRejection(dec quota.Decision) *ErrorResponse {
	return &ErrorResponse{
		Status:  429,
		Code:    dec.Reason,
		Message: dec.Message,
		Usage:   &dec,
	}
}
