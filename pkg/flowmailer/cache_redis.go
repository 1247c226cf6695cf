package flowmailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisNamespace prefixes every key the Redis cache writes.
const DefaultRedisNamespace = "flowmailer:tokens:"

const redisScanCount = 100

// Static errors for err113 compliance.
var ErrRedisConfigRequired = errors.New("redis configuration required for redis cache")

// RedisConfig configures the Redis cache.
type RedisConfig struct {
	// URL in redis://[user:password@]host:port[/db] form. Ignored when Client is set.
	URL string
	// Namespace prefixes all keys, DefaultRedisNamespace when empty.
	Namespace string
	// Client is an existing client to reuse. The cache does not close it.
	Client *redis.Client
}

// RedisCache stores entries in Redis with the entry expiry as key TTL, so
// that several processes can share bearer tokens.
type RedisCache struct {
	client    *redis.Client
	ownClient bool
	namespace string
	now       func() time.Time
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, config *RedisConfig) (*RedisCache, error) {
	if config == nil {
		return nil, ErrRedisConfigRequired
	}

	client := config.Client
	ownClient := false

	if client == nil {
		options, err := redis.ParseURL(config.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}

		client = redis.NewClient(options)
		ownClient = true
	}

	err := client.Ping(ctx).Err()
	if err != nil {
		if ownClient {
			_ = client.Close()
		}

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	namespace := config.Namespace
	if namespace == "" {
		namespace = DefaultRedisNamespace
	}

	return &RedisCache{
		client:    client,
		ownClient: ownClient,
		namespace: namespace,
		now:       time.Now,
	}, nil
}

func (c *RedisCache) key(key string) string {
	return c.namespace + key
}

// Get retrieves an entry.
func (c *RedisCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrCacheKeyNotFound, key)
		}

		return nil, fmt.Errorf("reading %s from Redis: %w", key, err)
	}

	var entry CacheEntry

	err = json.Unmarshal(data, &entry)
	if err != nil {
		return nil, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}

	if entry.Expired(c.now()) {
		return nil, fmt.Errorf("%w: %s", ErrCacheEntryExpired, key)
	}

	return &entry, nil
}

// Set stores an entry. Already expired entries are not written.
func (c *RedisCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	var ttl time.Duration

	if !entry.ExpiresAt.IsZero() {
		ttl = entry.ExpiresAt.Sub(c.now())
		if ttl <= 0 {
			return nil
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}

	err = c.client.Set(ctx, c.key(key), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("writing %s to Redis: %w", key, err)
	}

	return nil
}

// Delete removes an entry.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	err := c.client.Del(ctx, c.key(key)).Err()
	if err != nil {
		return fmt.Errorf("deleting %s from Redis: %w", key, err)
	}

	return nil
}

// Clear removes every key of the namespace.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.namespace+"*", redisScanCount).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	err := iter.Err()
	if err != nil {
		return fmt.Errorf("scanning Redis keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	err = c.client.Del(ctx, keys...).Err()
	if err != nil {
		return fmt.Errorf("clearing Redis keys: %w", err)
	}

	return nil
}

// Has checks if a live entry exists.
func (c *RedisCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close closes the client when the cache created it.
func (c *RedisCache) Close() error {
	if !c.ownClient {
		return nil
	}

	err := c.client.Close()
	if err != nil {
		return fmt.Errorf("closing Redis client: %w", err)
	}

	return nil
}
