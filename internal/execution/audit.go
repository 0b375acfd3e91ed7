package execution

import (
	"sync"
	"time"

	"github.com/arb-engine/predictionarb/pkg/types"
)

// DefaultAuditCapacity is the default bounded ring size.
const DefaultAuditCapacity = 500

// AuditRing is a bounded, FIFO ring buffer of AuditEntry records, owned by
// the Executor.
type AuditRing struct {
	mu       sync.Mutex
	entries  []types.AuditEntry
	capacity int
	next     int
	full     bool
}

// NewAuditRing creates a ring buffer with the given capacity (<=0 uses the default).
func NewAuditRing(capacity int) *AuditRing {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	return &AuditRing{
		entries:  make([]types.AuditEntry, capacity),
		capacity: capacity,
	}
}

// Append records one entry, overwriting the oldest once the ring is full.
func (r *AuditRing) Append(entry types.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = entry
	r.next = (r.next + 1) % r.capacity
	if r.next == 0 {
		r.full = true
	}
}

// Snapshot returns all entries in insertion order (oldest first).
func (r *AuditRing) Snapshot() []types.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]types.AuditEntry, r.next)
		copy(out, r.entries[:r.next])
		return out
	}

	out := make([]types.AuditEntry, r.capacity)
	copy(out, r.entries[r.next:])
	copy(out[r.capacity-r.next:], r.entries[:r.next])
	return out
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
