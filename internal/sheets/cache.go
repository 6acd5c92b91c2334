package sheets

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/desicrew/annotation-monitor/internal/pkg/logger"
)

// Cache is a short-lived Redis cache of fetched sheet rows, so flipping
// sheet selections back and forth does not hammer the script endpoints.
// A nil Cache (or one built on a nil client) is a no-op.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache creates a row cache. ttl defaults to 2 minutes.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(endpointURL, sheetName string) string {
	// Endpoint URLs are long script URLs; hash them down
	sum := sha256.Sum256([]byte(endpointURL))
	return fmt.Sprintf("sheetrows:%x:%s", sum[:8], sheetName)
}

// Get returns cached rows for a sheet, if present.
func (c *Cache) Get(ctx context.Context, endpointURL, sheetName string) ([]Row, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, cacheKey(endpointURL, sheetName)).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		logger.Warn("sheets: dropping corrupt cache entry", "sheet", sheetName, "error", err)
		return nil, false
	}
	return rows, true
}

// Set stores rows for a sheet with the cache TTL. Failures are logged and
// otherwise ignored — the cache is an optimization, never a dependency.
func (c *Cache) Set(ctx context.Context, endpointURL, sheetName string, rows []Row) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		logger.Warn("sheets: cache marshal failed", "sheet", sheetName, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(endpointURL, sheetName), data, c.ttl).Err(); err != nil {
		logger.Warn("sheets: cache write failed", "sheet", sheetName, "error", err)
	}
}

// CachedFetcher wraps a Fetcher with the row cache.
type CachedFetcher struct {
	inner Fetcher
	cache *Cache
}

// NewCachedFetcher wraps inner with cache. A nil cache passes through.
func NewCachedFetcher(inner Fetcher, cache *Cache) *CachedFetcher {
	return &CachedFetcher{inner: inner, cache: cache}
}

// ListSheets passes through to the wrapped fetcher; sheet lists are cheap
// and selection-sensitive, so they are never cached.
func (f *CachedFetcher) ListSheets(ctx context.Context, endpointURL string) ([]string, error) {
	return f.inner.ListSheets(ctx, endpointURL)
}

// FetchRows returns cached rows when fresh, otherwise fetches and fills the
// cache.
func (f *CachedFetcher) FetchRows(ctx context.Context, endpointURL, sheetName string) ([]Row, error) {
	if rows, ok := f.cache.Get(ctx, endpointURL, sheetName); ok {
		return rows, nil
	}
	rows, err := f.inner.FetchRows(ctx, endpointURL, sheetName)
	if err != nil {
		return nil, err
	}
	f.cache.Set(ctx, endpointURL, sheetName, rows)
	return rows, nil
}
