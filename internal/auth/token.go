package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// Static errors for err113 compliance.
var (
	ErrNoCachedToken = errors.New("no cached token")
)

// Token represents an OAuth2 access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	Scope       string    `json:"scope,omitempty"`
	ExpiresIn   int       `json:"expires_in,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ValidAt checks if the token is usable at now. A zero expiry never expires.
func (t *Token) ValidAt(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	return t.ExpiresAt.IsZero() || now.Before(t.ExpiresAt)
}

// TokenStore keeps one token in a flowmailer.Cache under a fixed key.
type TokenStore struct {
	cache flowmailer.Cache
	key   string
	now   func() time.Time
}

// NewTokenStore creates a token store.
func NewTokenStore(cache flowmailer.Cache, key string, now func() time.Time) *TokenStore {
	if now == nil {
		now = time.Now
	}

	return &TokenStore{cache: cache, key: key, now: now}
}

// Key returns the cache key of the store.
func (s *TokenStore) Key() string {
	return s.key
}

// Get returns the stored token if it is still valid.
func (s *TokenStore) Get(ctx context.Context) (*Token, error) {
	entry, err := s.cache.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoCachedToken, err)
	}

	var token Token

	err = json.Unmarshal(entry.Data, &token)
	if err != nil {
		return nil, fmt.Errorf("decoding cached token: %w", err)
	}

	if !token.ValidAt(s.now()) {
		return nil, fmt.Errorf("%w: %s expired", ErrNoCachedToken, s.key)
	}

	return &token, nil
}

// Set stores token until its expiry.
func (s *TokenStore) Set(ctx context.Context, token *Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	err = s.cache.Set(ctx, s.key, &flowmailer.CacheEntry{Data: data, ExpiresAt: token.ExpiresAt})
	if err != nil {
		return fmt.Errorf("caching token: %w", err)
	}

	return nil
}

// Clear removes the stored token.
func (s *TokenStore) Clear(ctx context.Context) error {
	err := s.cache.Delete(ctx, s.key)
	if err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}

	return nil
}
