// Package cache holds one expensively-built value (the aggregated
// provider set) and keeps request latency flat by serving the last good
// build while a replacement loads.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// State describes the cache lifecycle for the status board.
type State string

const (
	// StateEmpty means no build has succeeded yet; readers must wait
	// for the first load.
	StateEmpty State = "empty"
	// StateReady means the held value is within its TTL.
	StateReady State = "ready"
	// StateStale means the TTL elapsed; readers get the held value
	// while a rebuild runs in the background.
	StateStale State = "stale"
)

// LoadFunc builds a fresh value. The returned fingerprint identifies
// the inputs that produced it (source markers, content hashes) so the
// status board can tell a rebuild from a no-op refresh.
type LoadFunc[T any] func(ctx context.Context) (T, string, error)

// Info is a point-in-time snapshot for the status board.
type Info struct {
	State       State      `json:"state"`
	LoadedAt    *time.Time `json:"loaded_at,omitempty"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// Cache is a single-entry TTL cache with request coalescing. Concurrent
// readers of a cold cache trigger exactly one load; readers of a stale
// cache are served the old value immediately while one background
// rebuild runs.
type Cache[T any] struct {
	load LoadFunc[T]
	ttl  time.Duration
	now  func() time.Time

	sf singleflight.Group

	mu          sync.RWMutex
	value       T
	fingerprint string
	loadedAt    time.Time
	hasValue    bool
	lastErr     error
}

// New returns an empty cache. A zero ttl means entries never expire on
// their own and refresh only via Refresh.
func New[T any](load LoadFunc[T], ttl time.Duration) *Cache[T] {
	return &Cache[T]{load: load, ttl: ttl, now: time.Now}
}

// Get returns the cached value, loading it on first use. A stale value
// is returned immediately and revalidated in the background; only an
// empty cache blocks the caller.
func (c *Cache[T]) Get(ctx context.Context) (T, error) {
	c.mu.RLock()
	hasValue, fresh := c.hasValue, c.fresh()
	value := c.value
	c.mu.RUnlock()

	if hasValue {
		if !fresh {
			go c.revalidate(context.WithoutCancel(ctx))
		}
		return value, nil
	}

	v, err, _ := c.sf.Do("load", func() (any, error) {
		return c.doLoad(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Refresh forces a rebuild and blocks until it completes. Concurrent
// refreshes coalesce into one load.
func (c *Cache[T]) Refresh(ctx context.Context) (T, error) {
	v, err, _ := c.sf.Do("load", func() (any, error) {
		return c.doLoad(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Snapshot reports the cache state without triggering a load.
func (c *Cache[T]) Snapshot() Info {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := Info{State: StateEmpty}
	if c.lastErr != nil {
		info.LastError = c.lastErr.Error()
	}
	if !c.hasValue {
		return info
	}

	t := c.loadedAt
	info.LoadedAt = &t
	info.Fingerprint = c.fingerprint
	if c.fresh() {
		info.State = StateReady
	} else {
		info.State = StateStale
	}
	return info
}

// fresh must be called with the lock held.
func (c *Cache[T]) fresh() bool {
	if !c.hasValue {
		return false
	}
	return c.ttl <= 0 || c.now().Sub(c.loadedAt) < c.ttl
}

func (c *Cache[T]) doLoad(ctx context.Context) (T, error) {
	value, fingerprint, err := c.load(ctx)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		var zero T
		return zero, eris.Wrap(err, "cache: load")
	}

	c.mu.Lock()
	unchanged := c.hasValue && fingerprint != "" && fingerprint == c.fingerprint
	c.value = value
	c.fingerprint = fingerprint
	c.loadedAt = c.now()
	c.hasValue = true
	c.lastErr = nil
	c.mu.Unlock()

	if unchanged {
		zap.L().Debug("cache: reload produced identical fingerprint",
			zap.String("fingerprint", fingerprint))
	} else {
		zap.L().Info("cache: value rebuilt", zap.String("fingerprint", fingerprint))
	}
	return value, nil
}

// revalidate rebuilds in the background after a stale read. Errors are
// recorded for the status board but never surfaced to the reader that
// triggered the rebuild; the stale value remains served.
func (c *Cache[T]) revalidate(ctx context.Context) {
	if _, err, _ := c.sf.Do("load", func() (any, error) { return c.doLoad(ctx) }); err != nil {
		zap.L().Warn("cache: background revalidation failed", zap.Error(err))
	}
}

// Fingerprint hashes raw source bytes into a stable hex digest used to
// build load fingerprints.
func Fingerprint(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
