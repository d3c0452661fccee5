// Package quota provides pure daily quota accounting for API keys.
// All functions are deterministic - same input always produces same output.
// State lives elsewhere (adapters/memory); callers persist the returned record.
package quota

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrUnknownTier is returned when a key references a tier absent from the table.
var ErrUnknownTier = errors.New("unknown tier")

// Tiers maps a tier name to its daily request ceiling.
type Tiers map[string]int

// DefaultTiers returns the built-in tier table (requests per day).
func DefaultTiers() Tiers {
	return Tiers{
		"free":     100,
		"pro":      10_000,
		"business": 1_000_000, // effectively unlimited
	}
}

// Names returns the tier names in sorted order, for error messages.
func (t Tiers) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Record tracks one key's usage for the current day bucket (value type).
type Record struct {
	Tier     string
	Used     int   // requests counted in the current day bucket
	ResetDay int64 // day bucket when Used was last reset
}

// Denial reasons.
const (
	ReasonInvalidKey  = "invalid_key"
	ReasonRateLimited = "rate_limited"
)

// Decision is the outcome of one quota check (value type).
type Decision struct {
	Allowed   bool   `json:"-"`
	Reason    string `json:"error,omitempty"` // empty when allowed
	Tier      string `json:"tier,omitempty"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Message   string `json:"message,omitempty"`
}

// Usage is a read-only snapshot of a key's current quota position.
type Usage struct {
	Tier      string `json:"tier"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
}

// DayBucket returns the UTC day number for t (days since the Unix epoch).
// Counters reset when the bucket changes - a hard midnight-UTC rollover,
// not a sliding window.
func DayBucket(t time.Time) int64 {
	return t.Unix() / 86400
}

// InvalidKey returns the decision for a key that is not registered.
func InvalidKey() Decision {
	return Decision{
		Allowed: false,
		Reason:  ReasonInvalidKey,
		Message: "Unknown API key",
	}
}

// Apply performs a quota check against a record.
// This is a PURE function - the caller persists the returned record under
// its own lock so that check-and-increment stays atomic per key.
//
// A stale day bucket resets the counter before the check. A denied check
// leaves the counter unchanged.
func Apply(rec Record, limit int, day int64) (Decision, Record) {
	if rec.ResetDay != day {
		rec.Used = 0
		rec.ResetDay = day
	}

	if rec.Used >= limit {
		return Decision{
			Allowed:   false,
			Reason:    ReasonRateLimited,
			Tier:      rec.Tier,
			Limit:     limit,
			Used:      rec.Used,
			Remaining: 0,
			Message:   fmt.Sprintf("Rate limit exceeded (%d/day on %s tier)", limit, rec.Tier),
		}, rec
	}

	rec.Used++
	return Decision{
		Allowed:   true,
		Tier:      rec.Tier,
		Limit:     limit,
		Used:      rec.Used,
		Remaining: limit - rec.Used,
	}, rec
}

// Snapshot returns the current usage for a record without mutating it.
// A stale counter from a previous day is reported as-is; it resets on the
// next Apply.
func Snapshot(rec Record, limit int) Usage {
	remaining := limit - rec.Used
	if remaining < 0 {
		remaining = 0
	}
	return Usage{
		Tier:      rec.Tier,
		Limit:     limit,
		Used:      rec.Used,
		Remaining: remaining,
	}
}

// ValidateTier checks that a tier exists in the table.
func ValidateTier(tiers Tiers, tier string) error {
	if _, ok := tiers[tier]; !ok {
		return fmt.Errorf("%w %q (available: %s)", ErrUnknownTier, tier, strings.Join(tiers.Names(), ", "))
	}
	return nil
}
