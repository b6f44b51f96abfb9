// Package dedupe tracks seen event IDs so the append-only event log never
// records the same event twice.
package dedupe

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Default deduper configuration.
const (
	defaultMaxSize = 50_000
)

// Deduper records seen event IDs to ensure at-most-once ingestion.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID so the event can be retried, e.g. after the
	// ingestion queue rejected it.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper is backed by a capacity-bounded ttlcache. When full, the
// least recently recorded ID is evicted.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    *ttlcache.Cache[string, struct{}]
	maxSize int
	ttl     time.Duration
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		ttl:     ttlcache.NoTTL,
	}
	for _, opt := range opts {
		opt(d)
	}

	cacheOpts := []ttlcache.Option[string, struct{}]{
		ttlcache.WithTTL[string, struct{}](d.ttl),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	}
	// maxSize <= 0 means unbounded.
	if d.maxSize > 0 {
		cacheOpts = append(cacheOpts, ttlcache.WithCapacity[string, struct{}](uint64(d.maxSize)))
	}
	d.seen = ttlcache.New(cacheOpts...)
	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seen.Has(id) {
		return true
	}
	d.seen.Set(id, struct{}{}, ttlcache.DefaultTTL)
	return false
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen.Delete(id)
}

// Size implements Deduper.
func (d *inMemoryDeduper) Size() int64 {
	return int64(d.seen.Len())
}
