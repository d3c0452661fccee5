// Package audit provides the audit entry value type for the gateway trail.
package audit

import "time"

// Entry records the outcome of one pipeline run. Entries are write-once:
// nothing mutates them after the trail accepts them.
type Entry struct {
	RequestID string    `json:"request_id"`
	Action    string    `json:"action"`
	Provider  string    `json:"provider"`
	Blocked   bool      `json:"blocked"`
	Reason    string    `json:"reason,omitempty"`     // block category when Blocked
	Error     string    `json:"error,omitempty"`      // adapter fault text, if any
	ElapsedMS float64   `json:"elapsed_ms,omitempty"` // dispatch wall-clock time
	KeyPrefix string    `json:"api_key"`              // truncated, never the full key
	LoggedAt  time.Time `json:"logged_at"`
}

// TruncateKey returns the loggable prefix of an API key. At most the first
// eight characters ever reach the trail.
func TruncateKey(key string) string {
	if len(key) > 8 {
		key = key[:8]
	}
	return key + "..."
}
