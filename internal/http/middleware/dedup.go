// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements webhook deduplication. WhatsApp gateways redeliver a
// webhook when the previous attempt timed out or returned a non-2xx status,
// so every inbound message carries a gateway message ID that must be
// processed at most once. Deduper remembers recently seen IDs in memory with
// a TTL; persistence is unnecessary because redeliveries arrive within
// seconds of the original.
package middleware

import (
	"sync"
	"time"
)

// DefaultDedupTTL is how long a seen message ID is remembered.
const DefaultDedupTTL = 10 * time.Minute

// Deduper is an in-memory, TTL-bounded set of message IDs. Safe for
// concurrent use.
type Deduper struct {
	ttl time.Duration

	mu      sync.Mutex
	seen    map[string]time.Time
	lookups uint64
	now     func() time.Time // test seam
}

// NewDeduper constructs a Deduper. A ttl <= 0 falls back to DefaultDedupTTL.
func NewDeduper(ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &Deduper{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Seen records id and reports whether it was already present within the TTL.
// An empty id is never deduplicated. Expired entries are swept
// opportunistically every ~1000 lookups.
func (d *Deduper) Seen(id string) bool {
	if id == "" {
		return false
	}
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.lookups++
	if d.lookups >= 1000 {
		for k, at := range d.seen {
			if now.Sub(at) >= d.ttl {
				delete(d.seen, k)
			}
		}
		d.lookups = 0
	}

	if at, ok := d.seen[id]; ok && now.Sub(at) < d.ttl {
		return true
	}
	d.seen[id] = now
	return false
}

// Len returns the number of remembered IDs, including not-yet-swept expired
// entries.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
