package flowmailer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CacheType names a token cache backend.
type CacheType string

const (
	// CacheTypeMemory keeps tokens in process.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS shares tokens through a NATS JetStream KV bucket.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeRedis shares tokens through Redis.
	CacheTypeRedis CacheType = "redis"

	// CacheTypeNone disables token caching.
	CacheTypeNone CacheType = "none"
)

// DefaultCacheSize bounds the default memory cache.
const DefaultCacheSize = 1000

// Static errors for err113 compliance.
var (
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrCacheDisabled        = errors.New("cache disabled")
)

// CacheConfig configures the token cache backend.
type CacheConfig struct {
	Type CacheType

	// Memory sizes the memory backend. With a shared backend (NATS or
	// Redis) a non-nil Memory adds an in-process tier in front of it.
	Memory *MemoryCacheConfig

	NATS  *NATSKVConfig
	Redis *RedisConfig

	// Options apply to whatever backend is built, DefaultCacheOptions() when nil.
	Options *CacheOptions
}

// MemoryCacheConfig configures the memory cache.
type MemoryCacheConfig struct {
	MaxSize int
}

// DefaultCacheConfig returns a memory cache of DefaultCacheSize entries.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type:    CacheTypeMemory,
		Memory:  &MemoryCacheConfig{MaxSize: DefaultCacheSize},
		Options: DefaultCacheOptions(),
	}
}

// NewCacheFromConfig builds the cache described by config. A nil config
// yields DefaultCacheConfig().
func NewCacheFromConfig(ctx context.Context, config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	options := config.Options
	if options == nil {
		options = DefaultCacheOptions()
	}

	if config.Type == CacheTypeNone {
		return disabledCache{}, nil
	}

	if config.Type == CacheTypeMemory || config.Type == "" {
		return WithCacheOptions(NewMemoryCacheFromConfig(config.Memory), options), nil
	}

	shared, err := openSharedCache(ctx, config)
	if err != nil {
		return nil, err
	}

	var backend Cache = shared
	if config.Memory != nil {
		backend = NewTieredCache(NewMemoryCacheFromConfig(config.Memory), shared)
	}

	return WithCacheOptions(backend, options), nil
}

func openSharedCache(ctx context.Context, config *CacheConfig) (Cache, error) {
	switch config.Type {
	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(ctx, config.NATS)

	case CacheTypeRedis:
		if config.Redis == nil {
			return nil, ErrRedisConfigRequired
		}

		return NewRedisCache(ctx, config.Redis)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NewMemoryCacheFromConfig creates a memory cache, DefaultCacheSize entries when config is nil.
func NewMemoryCacheFromConfig(config *MemoryCacheConfig) *MemoryCache {
	if config == nil {
		return NewMemoryCache(DefaultCacheSize)
	}

	return NewMemoryCache(config.MaxSize)
}

// disabledCache backs CacheTypeNone: writes are dropped, reads always miss.
type disabledCache struct{}

func (disabledCache) Get(_ context.Context, key string) (*CacheEntry, error) {
	return nil, fmt.Errorf("%w: %s", ErrCacheDisabled, key)
}

func (disabledCache) Set(context.Context, string, *CacheEntry) error { return nil }

func (disabledCache) Delete(context.Context, string) error { return nil }

func (disabledCache) Clear(context.Context) error { return nil }

func (disabledCache) Has(context.Context, string) bool { return false }

// CacheBuilder assembles a CacheConfig fluently:
//
//	cfg := flowmailer.NewCacheBuilder().
//		NATS(&flowmailer.NATSKVConfig{URL: url}).
//		Memory(100).
//		Config()
type CacheBuilder struct {
	config CacheConfig
}

// NewCacheBuilder starts from a memory cache with default options.
func NewCacheBuilder() *CacheBuilder {
	return &CacheBuilder{config: CacheConfig{Type: CacheTypeMemory, Options: DefaultCacheOptions()}}
}

// Memory sizes the memory cache, or the in-process tier when a shared
// backend was selected.
func (b *CacheBuilder) Memory(maxSize int) *CacheBuilder {
	b.config.Memory = &MemoryCacheConfig{MaxSize: maxSize}

	return b
}

// NATS selects the NATS KV backend.
func (b *CacheBuilder) NATS(config *NATSKVConfig) *CacheBuilder {
	b.config.Type = CacheTypeNATS
	b.config.NATS = config

	return b
}

// Redis selects the Redis backend.
func (b *CacheBuilder) Redis(config *RedisConfig) *CacheBuilder {
	b.config.Type = CacheTypeRedis
	b.config.Redis = config

	return b
}

// Disabled turns token caching off.
func (b *CacheBuilder) Disabled() *CacheBuilder {
	b.config.Type = CacheTypeNone

	return b
}

// KeyPrefix replaces the key prefix.
func (b *CacheBuilder) KeyPrefix(prefix string) *CacheBuilder {
	b.options().KeyPrefix = prefix

	return b
}

// DefaultTTL bounds entries stored without an expiry.
func (b *CacheBuilder) DefaultTTL(ttl time.Duration) *CacheBuilder {
	b.options().DefaultTTL = ttl

	return b
}

func (b *CacheBuilder) options() *CacheOptions {
	if b.config.Options == nil {
		b.config.Options = DefaultCacheOptions()
	}

	return b.config.Options
}

// Config returns a copy of the assembled configuration.
func (b *CacheBuilder) Config() *CacheConfig {
	config := b.config

	return &config
}

// Build creates the cache.
func (b *CacheBuilder) Build(ctx context.Context) (Cache, error) {
	return NewCacheFromConfig(ctx, b.Config())
}

// TieredCache fronts a shared cache with a local one. Hits in the shared
// tier are copied to the local tier with their original expiry, so a
// token never outlives its shared copy locally. Writes go to both tiers.
type TieredCache struct {
	local  Cache
	shared Cache
}

// NewTieredCache creates a tiered cache.
func NewTieredCache(local, shared Cache) *TieredCache {
	return &TieredCache{local: local, shared: shared}
}

// Get reads the local tier first and falls back to the shared one.
func (c *TieredCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	entry, err := c.local.Get(ctx, key)
	if err == nil {
		return entry, nil
	}

	entry, err = c.shared.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	_ = c.local.Set(ctx, key, entry)

	return entry, nil
}

// Set writes the shared tier, then the local one. The local copy is kept
// even when the shared write fails.
func (c *TieredCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	sharedErr := c.shared.Set(ctx, key, entry)

	return errors.Join(sharedErr, c.local.Set(ctx, key, entry))
}

// Delete removes key from both tiers.
func (c *TieredCache) Delete(ctx context.Context, key string) error {
	return errors.Join(c.local.Delete(ctx, key), c.shared.Delete(ctx, key))
}

// Clear empties both tiers.
func (c *TieredCache) Clear(ctx context.Context) error {
	return errors.Join(c.local.Clear(ctx), c.shared.Clear(ctx))
}

// Has reports whether either tier holds a live entry.
func (c *TieredCache) Has(ctx context.Context, key string) bool {
	return c.local.Has(ctx, key) || c.shared.Has(ctx, key)
}

