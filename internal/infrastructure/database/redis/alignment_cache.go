package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/mcbuilder/internal/domain/cluster"
	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

// DefaultPrefix namespaces alignment keys.
const DefaultPrefix = "mcbuilder:"

// AlignmentCache stores pairwise alignments in Redis as JSON so repeated
// runs over the same inputs skip the dynamic programming.  It implements
// cluster.AlignmentCache.
type AlignmentCache struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
}

var _ cluster.AlignmentCache = (*AlignmentCache)(nil)

// CacheOption customises an AlignmentCache.
type CacheOption func(*AlignmentCache)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) CacheOption {
	return func(c *AlignmentCache) { c.prefix = prefix }
}

// WithTTL sets the expiry of stored alignments; zero keeps them forever.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *AlignmentCache) { c.ttl = ttl }
}

// NewAlignmentCache returns an AlignmentCache on client.
func NewAlignmentCache(client *Client, log logging.Logger, opts ...CacheOption) *AlignmentCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &AlignmentCache{
		client: client,
		logger: log,
		prefix: DefaultPrefix,
		ttl:    7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *AlignmentCache) fullKey(key string) string {
	return c.prefix + key
}

// Get returns the stored alignment; ok is false on a miss.
func (c *AlignmentCache) Get(ctx context.Context, key string) (*cluster.Alignment, bool, error) {
	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to get alignment")
	}
	var aln cluster.Alignment
	if err := json.Unmarshal(data, &aln); err != nil {
		c.logger.Warn("Discarding corrupt cache entry", logging.String("key", key), logging.Err(err))
		return nil, false, nil
	}
	return &aln, true, nil
}

// Set stores aln under key.
func (c *AlignmentCache) Set(ctx context.Context, key string, aln *cluster.Alignment) error {
	data, err := json.Marshal(aln)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode alignment")
	}
	if err := c.client.Set(ctx, c.fullKey(key), data, c.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to store alignment")
	}
	return nil
}

// Purge deletes every key under the prefix and returns how many were
// removed.
func (c *AlignmentCache) Purge(ctx context.Context) (int64, error) {
	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 500).Result()
		if err != nil {
			return removed, errors.Wrap(err, errors.ErrCodeCacheError, "failed to scan cache keys")
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete cache keys")
			}
			removed += n
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
