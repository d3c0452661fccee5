// Package providers implements the adapter registry: a name-to-factory
// mapping resolved at dispatch time. Concrete provider backends live behind
// the ports.Adapter interface; the registry never retries a dispatch.
package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pulseproto/pulsegate/ports"
)

// Resolution failure variants, re-exported from ports for convenience.
var (
	ErrUnknownProvider    = ports.ErrUnknownProvider
	ErrAdapterUnavailable = ports.ErrAdapterUnavailable
)

// Factory constructs an adapter from caller-supplied provider config.
type Factory func(cfg map[string]any) (ports.Adapter, error)

// Descriptor registers one provider.
type Descriptor struct {
	Name      string
	Kind      string // "builtin" or "http"
	Available bool   // whether the gateway can construct this adapter when given credentials
	New       Factory
}

// Registry maps provider names to adapter factories.
// Registration happens at startup; resolution is read-only and safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Descriptor)}
}

// Register adds or replaces a provider.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[d.Name] = d
}

// Resolve constructs an adapter for the named provider.
func (r *Registry) Resolve(name string, cfg map[string]any) (ports.Adapter, error) {
	r.mu.RLock()
	d, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownProvider, name, strings.Join(r.Names(), ", "))
	}

	adapter, err := d.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: provider %q: %v", ErrAdapterUnavailable, name, err)
	}
	return adapter, nil
}

// Names returns registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns per-provider introspection data.
func (r *Registry) Describe() map[string]ports.ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]ports.ProviderInfo, len(r.entries))
	for name, d := range r.entries {
		out[name] = ports.ProviderInfo{Kind: d.Kind, Available: d.Available}
	}
	return out
}

// Ensure interface compliance.
var _ ports.AdapterRegistry = (*Registry)(nil)
