package utils

import (
	"sync"
	"time"
)

// Deduplicator remembers recently seen ids. WATI redelivers a webhook when
// the first delivery is slow to answer, with the same message id.
type Deduplicator struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewDeduplicator creates a deduplicator remembering ids for window
func NewDeduplicator(window time.Duration) *Deduplicator {
	return &Deduplicator{window: window, now: time.Now, seen: make(map[string]time.Time)}
}

// IsDuplicate reports whether id was seen within the window and records it otherwise.
// Empty ids are never duplicates.
func (d *Deduplicator) IsDuplicate(id string) bool {
	if id == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if ts, ok := d.seen[id]; ok && now.Sub(ts) < d.window {
		return true
	}
	d.seen[id] = now

	// Cleanup old entries if map gets too big
	if len(d.seen) > 10000 {
		for k, v := range d.seen {
			if now.Sub(v) > 2*d.window {
				delete(d.seen, k)
			}
		}
	}
	return false
}

// Forget drops id so a later delivery is processed again
func (d *Deduplicator) Forget(id string) {
	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
}
