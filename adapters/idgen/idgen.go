// Package idgen provides request ID generation implementations.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pulseproto/pulsegate/ports"
)

// RequestIDLength is the size of the opaque identifiers handed to callers.
const RequestIDLength = 8

// Short generates 8-character opaque request identifiers from UUIDs.
type Short struct{}

// New generates a new short request ID.
func (Short) New() string {
	return uuid.NewString()[:RequestIDLength]
}

// Ensure interface compliance.
var _ ports.IDGenerator = Short{}

// Sequential generates predictable IDs (for testing).
type Sequential struct {
	prefix  string
	counter uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	n := atomic.AddUint64(&s.counter, 1)
	return s.prefix + strconv.FormatUint(n, 10)
}

// Ensure interface compliance.
var _ ports.IDGenerator = (*Sequential)(nil)
