// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/pulseproto/pulsegate/domain/audit"
	"github.com/pulseproto/pulsegate/domain/gateway"
	"github.com/pulseproto/pulsegate/domain/quota"
)

// Resolution failure variants. Unknown names are a client input mistake;
// unavailable adapters are a construction failure (missing credentials,
// bad arguments).
var (
	ErrUnknownProvider    = errors.New("unknown provider")
	ErrAdapterUnavailable = errors.New("adapter unavailable")
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates opaque request identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Stateful Engine Ports
// -----------------------------------------------------------------------------

// QuotaLedger tracks per-key tier assignment and daily usage.
// Check must be atomic per key: two concurrent checks on the same key must
// never both pass when only one slot remains.
type QuotaLedger interface {
	// Register creates or overwrites a key record with a zeroed counter.
	// Fails if the tier is absent from the tier table.
	Register(ctx context.Context, key, tier string, now time.Time) error

	// Check admits or denies one request and consumes a slot on admission.
	// Unknown keys yield an invalid_key decision.
	Check(ctx context.Context, key string, now time.Time) quota.Decision

	// Usage returns a read-only snapshot without mutating state.
	// The second return is false for unknown keys.
	Usage(ctx context.Context, key string) (quota.Usage, bool)

	// SetTiers replaces the tier table (operator override via hot reload).
	SetTiers(tiers quota.Tiers)
}

// AuditTrail records pipeline outcomes in a bounded, insertion-ordered
// buffer. At capacity the oldest entry is evicted first.
type AuditTrail interface {
	// Record appends a timestamp-stamped copy of the entry.
	Record(e audit.Entry)

	// Entries returns a snapshot copy in insertion order.
	Entries() []audit.Entry

	// Count returns the current number of retained entries.
	Count() int
}

// -----------------------------------------------------------------------------
// Adapter Boundary Ports
// -----------------------------------------------------------------------------

// Adapter is the capability a provider backend must offer.
// Send makes a single attempt; retry policy is the adapter's own concern.
type Adapter interface {
	Send(ctx context.Context, msg gateway.Message) (any, error)
}

// ProviderInfo describes one registered provider for introspection.
type ProviderInfo struct {
	Kind      string `json:"kind"`
	Available bool   `json:"available"`
}

// AdapterRegistry resolves provider names to adapter instances.
type AdapterRegistry interface {
	// Resolve constructs an adapter for the named provider using the
	// caller-supplied config. Unknown names and failed construction are
	// distinct error variants.
	Resolve(name string, cfg map[string]any) (Adapter, error)

	// Names returns registered provider names in sorted order.
	Names() []string

	// Describe returns per-provider introspection data.
	Describe() map[string]ProviderInfo
}
