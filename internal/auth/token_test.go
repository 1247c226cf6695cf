package auth_test

import (
	"sync"
	"testing"
	"time"

	"github.com/flowmailer/flowmailer-go/internal/auth"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock starting at the wall clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func TestToken_ValidAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token *auth.Token
		valid bool
	}{
		{name: "nil token", token: nil, valid: false},
		{name: "empty access token", token: &auth.Token{ExpiresAt: now.Add(time.Hour)}, valid: false},
		{name: "no expiry", token: &auth.Token{AccessToken: "a"}, valid: true},
		{name: "future expiry", token: &auth.Token{AccessToken: "a", ExpiresAt: now.Add(time.Second)}, valid: true},
		{name: "expiring now", token: &auth.Token{AccessToken: "a", ExpiresAt: now}, valid: false},
		{name: "past expiry", token: &auth.Token{AccessToken: "a", ExpiresAt: now.Add(-time.Minute)}, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.valid, tt.token.ValidAt(now))
		})
	}
}

func TestTokenStore(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		store := auth.NewTokenStore(flowmailer.NewMemoryCache(0), "token.1.client", clock.Now)

		_, err := store.Get(t.Context())
		require.ErrorIs(t, err, auth.ErrNoCachedToken)

		require.NoError(t, store.Set(t.Context(), &auth.Token{
			AccessToken: "abc",
			TokenType:   "bearer",
			ExpiresIn:   60,
			ExpiresAt:   clock.Now().Add(time.Minute),
		}))

		token, err := store.Get(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "abc", token.AccessToken)
		assert.Equal(t, 60, token.ExpiresIn)
		assert.Equal(t, "token.1.client", store.Key())
	})

	t.Run("expires on the store clock", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		store := auth.NewTokenStore(flowmailer.NewMemoryCache(0), "k", clock.Now)

		require.NoError(t, store.Set(t.Context(), &auth.Token{
			AccessToken: "abc",
			ExpiresAt:   clock.Now().Add(time.Minute),
		}))

		clock.Advance(2 * time.Minute)

		_, err := store.Get(t.Context())
		require.ErrorIs(t, err, auth.ErrNoCachedToken)
	})

	t.Run("clear", func(t *testing.T) {
		t.Parallel()

		cache := flowmailer.NewMemoryCache(0)
		store := auth.NewTokenStore(cache, "k", nil)

		require.NoError(t, store.Set(t.Context(), &auth.Token{AccessToken: "abc"}))
		assert.True(t, cache.Has(t.Context(), "k"))

		require.NoError(t, store.Clear(t.Context()))
		assert.False(t, cache.Has(t.Context(), "k"))
	})

	t.Run("shared cache holds one entry per key", func(t *testing.T) {
		t.Parallel()

		cache := flowmailer.NewMemoryCache(0)
		first := auth.NewTokenStore(cache, auth.CacheKey("1", "client"), nil)
		second := auth.NewTokenStore(cache, auth.CacheKey("2", "client"), nil)

		require.NoError(t, first.Set(t.Context(), &auth.Token{AccessToken: "one"}))
		require.NoError(t, second.Set(t.Context(), &auth.Token{AccessToken: "two"}))

		token, err := first.Get(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "one", token.AccessToken)
		assert.Equal(t, 2, cache.Len())
	})
}
