// Package admission holds the in-process state that decides whether a
// webhook event may be handled at all: the deduplication ledger, the
// per-cast processing locks and the response rate governor.
//
// All state is process-local. A restart resets it, and duplicates that
// slip through after a restart are absorbed by the platform's own
// idempotency conflict on publish. Running multiple instances behind
// one webhook URL is not supported by this design.
package admission

import (
	"sync"
	"time"
)

// Controller bundles the dedup ledger, lock table and rate counter
// behind one mutex. It is constructed once in main and injected into
// the webhook handler; there are no package-level singletons.
type Controller struct {
	mu sync.Mutex

	// cast hash -> last processed time, pruned lazily against window
	processed map[string]time.Time
	// raw event IDs seen, pruned in the same sweep as processed
	seenEvents map[string]time.Time
	// cast hash -> a handler is currently between dedup check and completion
	locks map[string]struct{}
	// unix minute -> responses sent in that bucket
	buckets map[int64]int

	window        time.Duration
	ceiling       int
	emergencyStop bool

	now func() time.Time
}

func NewController(window time.Duration, ceiling int, emergencyStop bool) *Controller {
	return &Controller{
		processed:     make(map[string]time.Time),
		seenEvents:    make(map[string]time.Time),
		locks:         make(map[string]struct{}),
		buckets:       make(map[int64]int),
		window:        window,
		ceiling:       ceiling,
		emergencyStop: emergencyStop,
		now:           time.Now,
	}
}

// sweep purges expired entries. Called under c.mu on every ledger
// access instead of from a background timer.
func (c *Controller) sweep() {
	now := c.now()
	for hash, at := range c.processed {
		if now.Sub(at) > c.window {
			delete(c.processed, hash)
		}
	}
	for id, at := range c.seenEvents {
		if now.Sub(at) > c.window {
			delete(c.seenEvents, id)
		}
	}
	minute := now.Unix() / 60
	for bucket := range c.buckets {
		if minute-bucket > 2 {
			delete(c.buckets, bucket)
		}
	}
}

// WasRecentlyProcessed reports whether the event ID was seen before or
// the cast hash was marked processed within the dedup window
func (c *Controller) WasRecentlyProcessed(castHash, eventID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep()

	if eventID != "" {
		if _, seen := c.seenEvents[eventID]; seen {
			return true
		}
	}
	_, seen := c.processed[castHash]
	return seen
}

// MarkProcessed records the cast hash and event ID as handled and
// releases the processing lock for the hash
func (c *Controller) MarkProcessed(castHash, eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep()

	now := c.now()
	c.processed[castHash] = now
	if eventID != "" {
		c.seenEvents[eventID] = now
	}
	delete(c.locks, castHash)
}

// TryLock acquires the processing lock for a cast hash. It returns
// false if another handler holds the lock; callers treat that as a
// benign skip, not a queue.
func (c *Controller) TryLock(castHash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, held := c.locks[castHash]; held {
		return false
	}
	c.locks[castHash] = struct{}{}
	return true
}

// Unlock releases the processing lock for a cast hash
func (c *Controller) Unlock(castHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.locks, castHash)
}

// UnlockAll clears every held lock. Used when a handler panics:
// bypassing dedup for an in-flight cast is cheaper than permanently
// deadlocking its hash.
func (c *Controller) UnlockAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.locks = make(map[string]struct{})
}

// ShouldStop reports whether responses must be suppressed: either the
// emergency kill switch is set or the trailing-minute response count
// has reached the ceiling
func (c *Controller) ShouldStop() bool {
	if c.emergencyStop {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep()

	now := c.now()
	var sum int
	for bucket, count := range c.buckets {
		bucketTime := time.Unix(bucket*60, 0)
		if now.Sub(bucketTime) < time.Minute {
			sum += count
		}
	}
	return sum >= c.ceiling
}

// RecordResponse increments the counter bucket for the current minute
func (c *Controller) RecordResponse() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buckets[c.now().Unix()/60]++
}
