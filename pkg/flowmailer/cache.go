package flowmailer

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrCacheKeyNotFound  = errors.New("key not found")
	ErrCacheEntryExpired = errors.New("entry expired")
)

// CacheEntry is a value stored in a Cache.
type CacheEntry struct {
	Data []byte `json:"data"`
	// ExpiresAt is the instant after which the entry is gone. Zero never expires.
	ExpiresAt time.Time `json:"expires_at"`
	ETag      string    `json:"etag,omitempty"`
}

// Expired reports whether the entry is expired at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// NewCacheEntry creates an entry living for ttl from now. A ttl <= 0 never expires.
func NewCacheEntry(data []byte, ttl time.Duration, now time.Time) *CacheEntry {
	entry := &CacheEntry{Data: data}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}

	return entry
}

// Cache is a pluggable key/value store used for bearer tokens.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheOptions are applied to any backend.
type CacheOptions struct {
	// KeyPrefix namespaces every key of the backend.
	KeyPrefix string
	// DefaultTTL bounds entries stored without an expiry. Zero keeps them forever.
	DefaultTTL time.Duration
}

// DefaultCacheOptions returns the default cache options.
func DefaultCacheOptions() *CacheOptions {
	return &CacheOptions{
		KeyPrefix: "flowmailer.",
	}
}

// MemoryCache is an in-memory Cache bounded to maxSize entries. When full,
// the oldest inserted entry is evicted.
type MemoryCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*list.Element
	order   *list.List
	now     func() time.Time
}

type memoryItem struct {
	key   string
	entry *CacheEntry
}

// NewMemoryCache creates a memory cache. A maxSize <= 0 means unbounded.
func NewMemoryCache(maxSize int) *MemoryCache {
	return &MemoryCache{
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// SetClock replaces the time source used to expire entries.
func (c *MemoryCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}

// Get returns the entry stored under key.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheKeyNotFound, key)
	}

	item, _ := element.Value.(*memoryItem)
	if item.entry.Expired(c.now()) {
		c.removeElement(element)

		return nil, fmt.Errorf("%w: %s", ErrCacheEntryExpired, key)
	}

	return item.entry, nil
}

// Set stores entry under key, replacing any previous value.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.entries[key]; ok {
		c.removeElement(element)
	}

	c.entries[key] = c.order.PushBack(&memoryItem{key: key, entry: entry})

	for c.maxSize > 0 && c.order.Len() > c.maxSize {
		c.removeElement(c.order.Front())
	}

	return nil
}

// Delete removes key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.entries[key]; ok {
		c.removeElement(element)
	}

	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()

	return nil
}

// Has reports whether a live entry exists for key.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Cleanup drops expired entries.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	for element := c.order.Front(); element != nil; {
		next := element.Next()

		item, _ := element.Value.(*memoryItem)
		if item.entry.Expired(now) {
			c.removeElement(element)
		}

		element = next
	}
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

func (c *MemoryCache) removeElement(element *list.Element) {
	item, _ := element.Value.(*memoryItem)
	delete(c.entries, item.key)
	c.order.Remove(element)
}

// prefixedCache applies CacheOptions to a backend.
type prefixedCache struct {
	backend Cache
	options *CacheOptions
}

// WithCacheOptions wraps backend so that options apply to every call.
func WithCacheOptions(backend Cache, options *CacheOptions) Cache {
	if options == nil || (options.KeyPrefix == "" && options.DefaultTTL <= 0) {
		return backend
	}

	return &prefixedCache{backend: backend, options: options}
}

func (c *prefixedCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return c.backend.Get(ctx, c.options.KeyPrefix+key)
}

func (c *prefixedCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	if entry.ExpiresAt.IsZero() && c.options.DefaultTTL > 0 {
		bounded := *entry
		bounded.ExpiresAt = time.Now().Add(c.options.DefaultTTL)
		entry = &bounded
	}

	return c.backend.Set(ctx, c.options.KeyPrefix+key, entry)
}

func (c *prefixedCache) Delete(ctx context.Context, key string) error {
	return c.backend.Delete(ctx, c.options.KeyPrefix+key)
}

func (c *prefixedCache) Clear(ctx context.Context) error {
	return c.backend.Clear(ctx)
}

func (c *prefixedCache) Has(ctx context.Context, key string) bool {
	return c.backend.Has(ctx, c.options.KeyPrefix+key)
}
