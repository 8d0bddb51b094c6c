package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
)

// DefaultKeyLen is the number of digest hex characters kept in a key.
const DefaultKeyLen = 32

// Key derives the cache key for an image payload: its length plus a prefix of
// its SHA-256 digest. Payloads sharing a long common header still differ.
func Key(payload string, keyLen int) string {
	if keyLen <= 0 || keyLen > sha256.Size*2 {
		keyLen = DefaultKeyLen
	}
	sum := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("%d:%s", len(payload), hex.EncodeToString(sum[:])[:keyLen])
}

// Cache stores embedding vectors by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]float64, bool)
	Put(ctx context.Context, key string, vec []float64)
}

// RemoteStore is a shared second tier. Errors are reported, never fatal.
type RemoteStore interface {
	Get(ctx context.Context, key string) ([]float64, bool, error)
	Set(ctx context.Context, key string, vec []float64) error
}

// Metrics receives cache hit/miss observations per tier.
type Metrics interface {
	RecordCacheLookup(ctx context.Context, tier string, hit bool)
}

// MemoryCache is a process-wide append-only map. The first value written for
// a key is kept.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]float64
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]float64)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *MemoryCache) Put(_ context.Context, key string, vec []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		return
	}
	stored := make([]float64, len(vec))
	copy(stored, vec)
	c.entries[key] = stored
}

// Len returns the number of cached vectors.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Tiered checks the in-process map first and falls through to the remote
// store when one is configured.
type Tiered struct {
	local   *MemoryCache
	remote  RemoteStore
	logger  *slog.Logger
	metrics Metrics
}

// NewTiered builds a cache. remote may be nil.
func NewTiered(local *MemoryCache, remote RemoteStore, logger *slog.Logger, metrics Metrics) *Tiered {
	if local == nil {
		local = NewMemoryCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tiered{local: local, remote: remote, logger: logger, metrics: metrics}
}

var _ Cache = (*Tiered)(nil)

func (t *Tiered) Get(ctx context.Context, key string) ([]float64, bool) {
	if v, ok := t.local.Get(ctx, key); ok {
		t.record(ctx, "memory", true)
		return v, true
	}
	t.record(ctx, "memory", false)

	if t.remote == nil {
		return nil, false
	}

	v, ok, err := t.remote.Get(ctx, key)
	if err != nil {
		t.logger.WarnContext(ctx, "Remote embedding cache read failed",
			attr.String("cache_key", key),
			attr.Error(err),
		)
		t.record(ctx, "redis", false)
		return nil, false
	}
	t.record(ctx, "redis", ok)
	if !ok {
		return nil, false
	}

	t.local.Put(ctx, key, v)
	return v, true
}

func (t *Tiered) Put(ctx context.Context, key string, vec []float64) {
	t.local.Put(ctx, key, vec)
	if t.remote == nil {
		return
	}
	if err := t.remote.Set(ctx, key, vec); err != nil {
		t.logger.WarnContext(ctx, "Remote embedding cache write failed",
			attr.String("cache_key", key),
			attr.Error(err),
		)
	}
}

func (t *Tiered) record(ctx context.Context, tier string, hit bool) {
	if t.metrics != nil {
		t.metrics.RecordCacheLookup(ctx, tier, hit)
	}
}
