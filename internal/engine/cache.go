package engine

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/anatolykoptev/go_recap/internal/engine/summary"
)

// resultCache provides 2-tier caching of summarize results: L1 in-memory +
// L2 Redis. L1 is fast but lost on restart; L2 survives restarts so repeated
// requests for popular videos skip inference entirely.
var resultCache *tieredCache

// Cache metrics.
var (
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
)

type tieredCache struct {
	l1              sync.Map      // fingerprint → *cacheEntry
	rdb             *redis.Client // nil if Redis unavailable
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// InitCache sets up the result cache. Call after Init(). redisURL can be
// empty to run L1-only.
func InitCache(redisURL string, ttl time.Duration, maxEntries int, cleanupInterval time.Duration) {
	c := &tieredCache{ttl: ttl, maxEntries: maxEntries, cleanupInterval: cleanupInterval}

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		} else {
			rdb := redis.NewClient(opts)
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
			} else {
				c.rdb = rdb
				slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
			}
		}
	}

	resultCache = c
	slog.Info("cache: initialized",
		slog.Duration("ttl", ttl),
		slog.Bool("redis", c.rdb != nil),
		slog.Int("max_entries", maxEntries))

	go c.cleanupLoop()
}

// Fingerprint builds the cache key for a video + the pipeline bounds that
// shape its summary. Same video with different bounds must not collide, so
// every output-affecting option is part of the hash.
func Fingerprint(videoID string, opts summary.Options, includeKeywords bool) string {
	canonical := strings.Join([]string{
		videoID,
		fmt.Sprintf("max=%d", opts.MaxSummaryLength),
		fmt.Sprintf("min=%d", opts.MinSummaryLength),
		fmt.Sprintf("chunk=%d", opts.ChunkMaxChars),
		fmt.Sprintf("ratio=%.3f", opts.CompressionRatio),
		fmt.Sprintf("kw=%d:%t", opts.MaxKeywords, includeKeywords),
		fmt.Sprintf("kp=%d", opts.MaxKeyPoints),
	}, "|")
	hash := sha256.Sum256([]byte(canonical))
	return fmt.Sprintf("rc:%x", hash[:12]) // 24-char hex prefix
}

// CacheGet tries L1, then L2. On L2 hit, populates L1.
func CacheGet(ctx context.Context, key string) (SummarizeResult, bool) {
	if resultCache == nil {
		cacheMisses.Add(1)
		return SummarizeResult{}, false
	}

	if val, ok := resultCache.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			var out SummarizeResult
			if json.Unmarshal(entry.data, &out) == nil {
				slog.Debug("cache: L1 hit", slog.String("key", key))
				cacheHits.Add(1)
				return out, true
			}
		}
		resultCache.l1.Delete(key) // expired or corrupt
	}

	if resultCache.rdb != nil {
		data, err := resultCache.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var out SummarizeResult
			if json.Unmarshal(data, &out) == nil {
				slog.Debug("cache: L2 hit", slog.String("key", key))
				cacheHits.Add(1)
				resultCache.l1.Store(key, &cacheEntry{
					data:      data,
					expiresAt: time.Now().Add(resultCache.ttl),
				})
				return out, true
			}
		}
	}

	cacheMisses.Add(1)
	return SummarizeResult{}, false
}

// CacheSet stores the result in both tiers. Concurrent writers for the same
// fingerprint are fine: both computed the same payload, last write wins.
func CacheSet(ctx context.Context, key string, value SummarizeResult) {
	if resultCache == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	resultCache.evictIfNeeded()

	resultCache.l1.Store(key, &cacheEntry{
		data:      data,
		expiresAt: time.Now().Add(resultCache.ttl),
	})

	if resultCache.rdb != nil {
		if err := resultCache.rdb.Set(ctx, key, data, resultCache.ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

// CacheStats returns the hit/miss counters.
func CacheStats() (hits, misses int64) {
	return cacheHits.Load(), cacheMisses.Load()
}

// CacheEntryCount counts live L1 entries.
func CacheEntryCount() int {
	if resultCache == nil {
		return 0
	}
	count := 0
	now := time.Now()
	resultCache.l1.Range(func(_, val any) bool {
		if entry, ok := val.(*cacheEntry); ok && now.Before(entry.expiresAt) {
			count++
		}
		return true
	})
	return count
}

// CacheClear drops cached results. With all=false only expired entries go;
// with all=true everything goes, including the Redis tier. Returns the
// number of L1 entries removed.
func CacheClear(ctx context.Context, all bool) int {
	if resultCache == nil {
		return 0
	}
	removed := 0
	now := time.Now()
	resultCache.l1.Range(func(key, val any) bool {
		entry, ok := val.(*cacheEntry)
		if !ok || all || now.After(entry.expiresAt) {
			resultCache.l1.Delete(key)
			removed++
		}
		return true
	})

	if all && resultCache.rdb != nil {
		iter := resultCache.rdb.Scan(ctx, 0, "rc:*", 100).Iterator()
		for iter.Next(ctx) {
			resultCache.rdb.Del(ctx, iter.Val())
		}
		if err := iter.Err(); err != nil {
			slog.Debug("cache: L2 clear failed", slog.Any("error", err))
		}
	}
	return removed
}

// evictIfNeeded removes entries when L1 exceeds maxEntries: expired entries
// first, then the oldest (earliest expiry = earliest write) until under the
// limit.
func (c *tieredCache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}

	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})

	if count < c.maxEntries {
		return
	}

	now := time.Now()
	c.l1.Range(func(key, val any) bool {
		if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})

	if count < c.maxEntries {
		return
	}

	var oldest struct {
		key any
		at  time.Time
	}
	for count >= c.maxEntries {
		oldest.key = nil
		oldest.at = now.Add(c.ttl + time.Hour) // past any live expiry
		c.l1.Range(func(key, val any) bool {
			if entry, ok := val.(*cacheEntry); ok && entry.expiresAt.Before(oldest.at) {
				oldest.key = key
				oldest.at = entry.expiresAt
			}
			return true
		})
		if oldest.key == nil {
			break
		}
		c.l1.Delete(oldest.key)
		count--
	}
}

// cleanupLoop periodically removes expired L1 entries.
func (c *tieredCache) cleanupLoop() {
	interval := c.cleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		c.l1.Range(func(key, val any) bool {
			if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
				c.l1.Delete(key)
			}
			return true
		})
	}
}
