// Package sanitize strips credential-like fields from request parameters
// before they are logged or forwarded to an adapter.
package sanitize

import "strings"

// Marker replaces the value of any sensitive parameter.
const Marker = "***REDACTED***"

// sensitiveKeys covers credential/secret/token/password variants.
// Matching is case-insensitive on the exact key name.
var sensitiveKeys = map[string]struct{}{
	"api_key":       {},
	"api_secret":    {},
	"secret":        {},
	"password":      {},
	"token":         {},
	"access_token":  {},
	"secret_key":    {},
	"private_key":   {},
	"passphrase":    {},
	"credentials":   {},
	"auth":          {},
	"authorization": {},
}

// IsSensitive reports whether a parameter key must be redacted.
func IsSensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}

// Params returns a copy of params with sensitive values replaced by Marker.
// Nested maps are recursed into; all other value shapes pass through
// unchanged. Params is idempotent: Params(Params(p)) == Params(p), and a
// mapping with no sensitive keys at any depth comes back equal.
func Params(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	cleaned := make(map[string]any, len(params))
	for key, value := range params {
		switch {
		case IsSensitive(key):
			cleaned[key] = Marker
		default:
			if nested, ok := value.(map[string]any); ok {
				cleaned[key] = Params(nested)
			} else {
				cleaned[key] = value
			}
		}
	}
	return cleaned
}
