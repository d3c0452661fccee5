package memory

import (
	"sync"

	"github.com/pulseproto/pulsegate/domain/audit"
	"github.com/pulseproto/pulsegate/ports"
)

// DefaultTrailCapacity bounds the audit trail when no capacity is configured.
const DefaultTrailCapacity = 10_000

// Trail is a bounded, insertion-ordered, FIFO-evicting audit log.
// In-memory implementation of ports.AuditTrail.
type Trail struct {
	mu      sync.Mutex
	entries []audit.Entry
	max     int
	clock   ports.Clock
}

// NewTrail creates a trail holding at most max entries.
// A non-positive max falls back to DefaultTrailCapacity.
func NewTrail(max int, clock ports.Clock) *Trail {
	if max <= 0 {
		max = DefaultTrailCapacity
	}
	return &Trail{
		entries: make([]audit.Entry, 0, max),
		max:     max,
		clock:   clock,
	}
}

// Record stamps the entry and appends it, evicting the oldest entry first
// when the trail is at capacity. Entries are never mutated afterwards.
func (t *Trail) Record(e audit.Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) >= t.max {
		t.entries = t.entries[1:]
	}
	e.LoggedAt = t.clock.Now().UTC()
	t.entries = append(t.entries, e)
}

// Entries returns a snapshot copy in insertion order.
func (t *Trail) Entries() []audit.Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]audit.Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Count returns the current number of retained entries.
func (t *Trail) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Ensure interface compliance.
var _ ports.AuditTrail = (*Trail)(nil)
