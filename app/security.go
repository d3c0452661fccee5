// Package app provides application services that orchestrate domain logic.
package app

import (
	"sync/atomic"

	"github.com/pulseproto/pulsegate/adapters/metrics"
	"github.com/pulseproto/pulsegate/domain/security"
)

// Filter composes the signature catalog and heuristic scorer into a single
// check operation and tracks pass/block counters for introspection.
// Counters live for the process lifetime and never reset.
type Filter struct {
	catalog *security.Catalog
	blocked atomic.Int64
	passed  atomic.Int64
	metrics *metrics.Collector // optional
}

// FilterStats is the cumulative counter snapshot served by /v1/security/stats.
type FilterStats struct {
	Blocked int64 `json:"blocked"`
	Passed  int64 `json:"passed"`
	Total   int64 `json:"total"`
}

// NewFilter creates a filter. Custom signatures are appended after the
// built-in catalog; metrics may be nil.
func NewFilter(custom []security.Signature, m *metrics.Collector) *Filter {
	return &Filter{
		catalog: security.NewCatalog(custom...),
		metrics: m,
	}
}

// Check evaluates one piece of text. Every call increments exactly one of
// the blocked or passed counters, empty text included.
func (f *Filter) Check(text string) security.Verdict {
	v := security.Evaluate(f.catalog, text)

	if v.Blocked {
		f.blocked.Add(1)
		if f.metrics != nil {
			f.metrics.SecurityChecks.WithLabelValues("blocked").Inc()
			f.metrics.SecurityBlocked.WithLabelValues(v.Category).Inc()
		}
	} else {
		f.passed.Add(1)
		if f.metrics != nil {
			f.metrics.SecurityChecks.WithLabelValues("passed").Inc()
		}
	}
	return v
}

// Stats returns the cumulative counters.
func (f *Filter) Stats() FilterStats {
	blocked := f.blocked.Load()
	passed := f.passed.Load()
	return FilterStats{
		Blocked: blocked,
		Passed:  passed,
		Total:   blocked + passed,
	}
}
