package cluster

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/logging"
)

// AlignmentCache stores alignments by key.  Implementations must be safe for
// concurrent use.  Get reports a miss with ok=false and a nil error.
type AlignmentCache interface {
	Get(ctx context.Context, key string) (aln *Alignment, ok bool, err error)
	Set(ctx context.Context, key string, aln *Alignment) error
}

// MemoryCache is a process-local AlignmentCache.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]*Alignment
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]*Alignment)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Alignment, bool, error) {
	c.mu.RLock()
	aln, ok := c.items[key]
	c.mu.RUnlock()
	return aln, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, aln *Alignment) error {
	c.mu.Lock()
	c.items[key] = aln
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached alignments.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Aligner computes pairwise alignments through an AlignmentCache.  The same
// Aligner is shared by the clusterer and the assembler, so correspondences
// computed while clustering are reused when superposing chains.
type Aligner struct {
	cache  AlignmentCache
	logger logging.Logger
	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// NewAligner returns an Aligner backed by cache; a nil cache selects a fresh
// MemoryCache.
func NewAligner(cache AlignmentCache, logger logging.Logger) *Aligner {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Aligner{cache: cache, logger: logger}
}

// CacheKey returns the cache key of an ordered sequence pair.
func CacheKey(a, b string) string {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return "aln:" + hex.EncodeToString(ha[:12]) + ":" + hex.EncodeToString(hb[:12])
}

// Align returns the alignment of a against b.  Cache failures are logged and
// fall back to computing the alignment.
func (al *Aligner) Align(ctx context.Context, a, b string) (*Alignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	flip := a > b
	if flip {
		a, b = b, a
	}
	key := CacheKey(a, b)

	aln, ok, err := al.cache.Get(ctx, key)
	if err != nil {
		al.logger.Warn("alignment cache read failed", logging.String("key", key), logging.Err(err))
	}
	if ok && aln != nil {
		al.hits.Add(1)
	} else {
		v, _, _ := al.group.Do(key, func() (interface{}, error) {
			al.misses.Add(1)
			computed := GlobalIdentity(a, b)
			if err := al.cache.Set(ctx, key, computed); err != nil {
				al.logger.Warn("alignment cache write failed", logging.String("key", key), logging.Err(err))
			}
			return computed, nil
		})
		aln = v.(*Alignment)
	}

	if flip {
		return aln.Flipped(), nil
	}
	return aln, nil
}

// Stats returns the cache hit and miss counts.
func (al *Aligner) Stats() (hits, misses int64) {
	return al.hits.Load(), al.misses.Load()
}
