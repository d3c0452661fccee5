// Package memory provides in-memory implementations of the stateful engine
// ports. Nothing survives a process restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pulseproto/pulsegate/domain/quota"
	"github.com/pulseproto/pulsegate/ports"
)

// Ledger is an in-memory implementation of ports.QuotaLedger.
// A single coarse lock keeps check-and-increment atomic per key; the ledger
// is never held together with any other lock.
type Ledger struct {
	mu    sync.Mutex
	tiers quota.Tiers
	recs  map[string]quota.Record
}

// NewLedger creates a ledger with the given tier table.
// A nil table falls back to the default tiers.
func NewLedger(tiers quota.Tiers) *Ledger {
	if tiers == nil {
		tiers = quota.DefaultTiers()
	}
	t := make(quota.Tiers, len(tiers))
	for name, limit := range tiers {
		t[name] = limit
	}
	return &Ledger{
		tiers: t,
		recs:  make(map[string]quota.Record),
	}
}

// Register creates or overwrites a key record with a zeroed counter.
func (l *Ledger) Register(ctx context.Context, key, tier string, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := quota.ValidateTier(l.tiers, tier); err != nil {
		return err
	}
	l.recs[key] = quota.Record{
		Tier:     tier,
		Used:     0,
		ResetDay: quota.DayBucket(now),
	}
	return nil
}

// Check admits or denies one request. The read-modify-write of the record
// happens in one critical section.
func (l *Ledger) Check(ctx context.Context, key string, now time.Time) quota.Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.recs[key]
	if !ok {
		return quota.InvalidKey()
	}

	dec, newRec := quota.Apply(rec, l.tiers[rec.Tier], quota.DayBucket(now))
	l.recs[key] = newRec
	return dec
}

// Usage returns a read-only snapshot for a key without consuming a slot.
func (l *Ledger) Usage(ctx context.Context, key string) (quota.Usage, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.recs[key]
	if !ok {
		return quota.Usage{}, false
	}
	return quota.Snapshot(rec, l.tiers[rec.Tier]), true
}

// SetTiers replaces the tier table. Existing records keep their assignment;
// the new ceiling applies from the next check.
func (l *Ledger) SetTiers(tiers quota.Tiers) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := make(quota.Tiers, len(tiers))
	for name, limit := range tiers {
		t[name] = limit
	}
	l.tiers = t
}

// SetResetDay rewinds a record's day bucket (for tests).
func (l *Ledger) SetResetDay(key string, day int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.recs[key]; ok {
		rec.ResetDay = day
		l.recs[key] = rec
	}
}

// Ensure interface compliance.
var _ ports.QuotaLedger = (*Ledger)(nil)
