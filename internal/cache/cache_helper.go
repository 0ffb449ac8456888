package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheHelper is a JSON read-through cache over one key prefix. Every key
// carries a generation counter that invalidation bumps, so a value fetched
// before an invalidation is never written back after it.
type CacheHelper struct {
	client *redis.Client
	prefix string
}

func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{
		client: client,
		prefix: prefix,
	}
}

type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

var (
	// Accounts and courses change rarely; names are shown on every bank response
	ContextCacheConfig = CacheConfig{
		TTL:    10 * time.Minute,
		Prefix: "context:",
	}

	BankCacheConfig = CacheConfig{
		TTL:    5 * time.Minute,
		Prefix: "bank:",
	}

	// Counters read on list pages
	StatsCacheConfig = CacheConfig{
		TTL:    2 * time.Minute,
		Prefix: "stats:",
	}

	UserCacheConfig = CacheConfig{
		TTL:    5 * time.Minute,
		Prefix: "user:",
	}
)

const (
	generationPrefix = "gen:"

	// Outlives any fetch, so a counter cannot expire while a read is in flight
	generationTTL = 15 * time.Minute
)

var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")

	errStaleWrite = errors.New("cache entry invalidated during fetch")
)

func (c *CacheHelper) GetCacheKey(key string) string {
	return c.prefix + key
}

func generationKey(fullKey string) string {
	return generationPrefix + fullKey
}

func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	data, err := c.client.Get(ctx, c.GetCacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheNotFound
	}
	if err != nil {
		// Key is left out to keep user input out of logs
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

// Set stores value unconditionally. Without a client it is a no-op.
func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	return c.client.Set(ctx, c.GetCacheKey(key), data, ttl).Err()
}

// Delete drops the keys and bumps their generations
func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}

	fullKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		fullKeys = append(fullKeys, c.GetCacheKey(key))
	}
	return c.drop(ctx, fullKeys)
}

// InvalidatePattern drops every key under the prefix matching pattern.
// Keys are found with SCAN so large keyspaces do not block redis.
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}

	var keys []string
	iter := c.client.Scan(ctx, 0, c.GetCacheKey(pattern), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan pattern error: %w", err)
	}

	const batchSize = 100
	for start := 0; start < len(keys); start += batchSize {
		if err := c.drop(ctx, keys[start:min(start+batchSize, len(keys))]); err != nil {
			return err
		}
	}
	return nil
}

func (c *CacheHelper) drop(ctx context.Context, fullKeys []string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range fullKeys {
			pipe.Incr(ctx, generationKey(key))
			pipe.Expire(ctx, generationKey(key), generationTTL)
		}
		pipe.Del(ctx, fullKeys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

// CacheOrExecute fills dest from the cache, or from fetchFunc on a miss. The
// fetched value is written back before returning, unless the key was
// invalidated while fetchFunc ran. Cache failures never fail the read.
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetchFunc func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheNotAvailable) {
		slog.WarnContext(ctx, "Cache read failed, falling back to fetch", "error", err, "prefix", c.prefix)
	}

	generation, genErr := c.generation(ctx, key)

	value, err := fetchFunc()
	if err != nil {
		return fmt.Errorf("fetch function error: %w", err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal result error: %w", err)
	}

	if genErr == nil {
		err := c.setIfGeneration(ctx, key, generation, data, ttl)
		switch {
		case errors.Is(err, errStaleWrite):
			slog.DebugContext(ctx, "Skipped cache write for invalidated entry", "prefix", c.prefix)
		case err != nil:
			slog.WarnContext(ctx, "Cache write failed", "error", err, "prefix", c.prefix)
		}
	}

	return json.Unmarshal(data, dest)
}

func (c *CacheHelper) generation(ctx context.Context, key string) (string, error) {
	if c.client == nil {
		return "", ErrCacheNotAvailable
	}

	generation, err := c.client.Get(ctx, generationKey(c.GetCacheKey(key))).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return generation, err
}

// setIfGeneration writes data only while the key's generation still equals
// the one seen before the fetch
func (c *CacheHelper) setIfGeneration(ctx context.Context, key, generation string, data []byte, ttl time.Duration) error {
	fullKey := c.GetCacheKey(key)
	genKey := generationKey(fullKey)

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleWrite
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, fullKey, data, ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return errStaleWrite
	}
	return err
}

// CacheManager groups the helpers of each cached domain
type CacheManager struct {
	Context *CacheHelper
	Bank    *CacheHelper
	Stats   *CacheHelper
	User    *CacheHelper
}

// NewCacheManager degrades to no-op helpers when client is nil
func NewCacheManager(client *redis.Client) *CacheManager {
	prefix := func(config CacheConfig) string {
		if client == nil {
			return ""
		}
		return config.Prefix
	}

	return &CacheManager{
		Context: NewCacheHelper(client, prefix(ContextCacheConfig)),
		Bank:    NewCacheHelper(client, prefix(BankCacheConfig)),
		Stats:   NewCacheHelper(client, prefix(StatsCacheConfig)),
		User:    NewCacheHelper(client, prefix(UserCacheConfig)),
	}
}

func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if !cm.Enabled() {
		return ErrCacheNotAvailable
	}

	if err := cm.Bank.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}

// Enabled reports whether a redis client backs this manager
func (cm *CacheManager) Enabled() bool {
	return cm.Bank.client != nil
}
