package identifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"vigil/internal/screening/models"
	"vigil/internal/screening/ports"
)

const cacheKeyPrefix = "vigil:ident:"

// CachedIndex wraps an identifier index with a Redis read-through cache.
// Cache failures degrade to the underlying index; lookups never fail
// because Redis is down.
type CachedIndex struct {
	inner  ports.IdentifierIndex
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedIndex wraps inner with a Redis cache. Entries expire after ttl,
// which also bounds how long a DeleteDataset can leave stale hits behind.
func NewCachedIndex(inner ports.IdentifierIndex, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedIndex{inner: inner, client: client, ttl: ttl, logger: logger}
}

// InsertMany writes through to the underlying index and invalidates the
// cache entries for the affected normalized values.
func (c *CachedIndex) InsertMany(ctx context.Context, entries []models.IdentifierEntry) error {
	if err := c.inner.InsertMany(ctx, entries); err != nil {
		return err
	}

	keys := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if _, ok := seen[entry.Norm]; ok {
			continue
		}
		seen[entry.Norm] = struct{}{}
		keys = append(keys, cacheKeyPrefix+entry.Norm)
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.logger.Warn("identifier cache invalidation failed", "error", err)
		}
	}
	return nil
}

// DeleteDataset clears the underlying index. Cached lookups touching the
// dataset stay stale until their TTL elapses.
func (c *CachedIndex) DeleteDataset(ctx context.Context, dataset string) error {
	return c.inner.DeleteDataset(ctx, dataset)
}

// LookupMany resolves normalized values, serving from cache where possible.
func (c *CachedIndex) LookupMany(ctx context.Context, norms []string) ([]models.IdentifierEntry, error) {
	var (
		hits   []models.IdentifierEntry
		misses []string
	)
	for _, norm := range norms {
		entries, ok := c.cachedLookup(ctx, norm)
		if !ok {
			misses = append(misses, norm)
			continue
		}
		hits = append(hits, entries...)
	}
	if len(misses) == 0 {
		return hits, nil
	}

	fetched, err := c.inner.LookupMany(ctx, misses)
	if err != nil {
		return nil, err
	}

	byNorm := make(map[string][]models.IdentifierEntry, len(misses))
	for _, norm := range misses {
		byNorm[norm] = []models.IdentifierEntry{}
	}
	for _, entry := range fetched {
		byNorm[entry.Norm] = append(byNorm[entry.Norm], entry)
	}
	for norm, entries := range byNorm {
		c.cacheStore(ctx, norm, entries)
	}

	return append(hits, fetched...), nil
}

func (c *CachedIndex) cachedLookup(ctx context.Context, norm string) ([]models.IdentifierEntry, bool) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+norm).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("identifier cache read failed", "error", err)
		}
		return nil, false
	}
	var entries []models.IdentifierEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		c.logger.Warn("identifier cache entry corrupt", "norm", norm, "error", err)
		return nil, false
	}
	return entries, true
}

func (c *CachedIndex) cacheStore(ctx context.Context, norm string, entries []models.IdentifierEntry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+norm, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("identifier cache write failed", "error", err)
	}
}
