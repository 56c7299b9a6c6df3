// Package query is the portal's response cache: GETs are cached under typed
// keys and writes invalidate the keys of every view they affect, so the next
// render refetches from the backend. Nothing is ever patched in place.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/rec-portal/internal/backend"
)

// Transport executes backend calls.
type Transport interface {
	Do(ctx context.Context, d backend.Descriptor) ([]byte, error)
}

// Cache stores raw response bodies.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, prefix string) error
}

// Recorder counts settled mutations.
type Recorder interface {
	RecordMutation(success bool)
}

// Config tunes a Client.
type Config struct {
	// CacheTTL bounds how long a response may be served without invalidation.
	CacheTTL time.Duration
	// RenderTimeout is how long a page waits for a fetch before rendering the loading state.
	RenderTimeout time.Duration
	// FetchTimeout caps a background fetch that outlives its page.
	FetchTimeout time.Duration
}

// Client coordinates fetches, mutations and invalidations.
type Client struct {
	transport Transport
	cache     Cache
	recorder  Recorder
	logger    *zap.Logger
	cfg       Config

	group singleflight.Group
	gens  generations

	locksMu sync.Mutex
	locks   map[string]*namedLock
}

type namedLock struct {
	mu   sync.Mutex
	refs int
}

// NewClient constructs a query client. cache and recorder may be nil.
func NewClient(transport Transport, cache Cache, recorder Recorder, logger *zap.Logger, cfg Config) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	return &Client{transport: transport, cache: cache, recorder: recorder, logger: logger, cfg: cfg}
}

// Invalidate drops every cached entry matched by keys. Views reading those
// keys refetch on their next render, and reads still in flight are neither
// joined nor cached.
func (c *Client) Invalidate(ctx context.Context, keys ...CacheKey) error {
	for _, key := range keys {
		for _, inflight := range c.gens.invalidate(key.InvalidationPrefix()) {
			c.group.Forget(inflight)
		}
	}
	if c.cache == nil {
		return nil
	}
	var errs []error
	for _, key := range keys {
		if err := c.cache.Invalidate(ctx, key.InvalidationPrefix()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) cached(ctx context.Context, key CacheKey) (json.RawMessage, bool) {
	if c.cache == nil {
		return nil, false
	}
	var raw json.RawMessage
	hit, err := c.cache.Get(ctx, key.String(), &raw)
	if err != nil || !hit {
		return nil, false
	}
	return raw, true
}

// store caches raw under key unless key was invalidated after generation
// since. An invalidation racing the write evicts it again.
func (c *Client) store(ctx context.Context, key CacheKey, raw json.RawMessage, since uint64) {
	if c.cache == nil {
		return
	}
	name := key.String()
	if c.gens.invalidatedSince(name, since) {
		c.logger.Debug("discarding response read before invalidation", zap.String("key", name))
		return
	}
	if err := c.cache.Set(ctx, name, raw, c.cfg.CacheTTL); err != nil {
		c.logger.Warn("query cache write failed", zap.String("key", name), zap.Error(err))
		return
	}
	if c.gens.invalidatedSince(name, since) {
		if err := c.cache.Invalidate(ctx, name); err != nil {
			c.logger.Warn("query cache eviction failed", zap.String("key", name), zap.Error(err))
		}
	}
}

// lock serialises work sharing name. The returned func releases it; idle
// names are forgotten.
func (c *Client) lock(name string) func() {
	c.locksMu.Lock()
	if c.locks == nil {
		c.locks = map[string]*namedLock{}
	}
	l := c.locks[name]
	if l == nil {
		l = &namedLock{}
		c.locks[name] = l
	}
	l.refs++
	c.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.locksMu.Lock()
		defer c.locksMu.Unlock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, name)
		}
	}
}
