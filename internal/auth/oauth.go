package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// TokenPath is the path of the token endpoint below the auth endpoint.
const TokenPath = "/oauth/token"

// TokenManager handles OAuth2 tokens.
type TokenManager interface {
	// GetToken returns a cached token, fetching one when none is cached.
	GetToken(ctx context.Context) (string, error)
	// RefreshToken always fetches a new token and caches it.
	RefreshToken(ctx context.Context) (string, error)
	// SetToken caches a token obtained elsewhere.
	SetToken(token string, expiresAt time.Time)
}

// ClientCredentialsConfig configures a ClientCredentialsTokenManager.
type ClientCredentialsConfig struct {
	// TokenURL is the full URL of the token endpoint.
	TokenURL    string
	Credentials flowmailer.Credentials
	// HTTPClient sends token requests. It must not carry the authenticator.
	HTTPClient *http.Client
	// Cache stores issued tokens. Defaults to a private memory cache.
	Cache flowmailer.Cache
	// Clock measures token lifetimes. Defaults to time.Now.
	Clock func() time.Time
	// Logger reports cache write failures. Optional.
	Logger flowmailer.Logger
}

// ClientCredentialsTokenManager issues tokens with the client_credentials
// grant and caches them per (account, client). Cache writes are best
// effort: the last issued token is also held in memory.
type ClientCredentialsTokenManager struct {
	config     clientcredentials.Config
	httpClient *http.Client
	store      *TokenStore
	logger     flowmailer.Logger
	now        func() time.Time

	mu      sync.Mutex
	current *Token
}

// CacheKey returns the cache key of the token of accountID and clientID.
func CacheKey(accountID, clientID string) string {
	return "token." + accountID + "." + clientID
}

// NewClientCredentialsTokenManager creates a token manager.
func NewClientCredentialsTokenManager(config *ClientCredentialsConfig) *ClientCredentialsTokenManager {
	now := config.Clock
	if now == nil {
		now = time.Now
	}

	cache := config.Cache
	if cache == nil {
		cache = flowmailer.NewMemoryCache(0)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	var scopes []string
	if config.Credentials.Scope != "" {
		scopes = strings.Fields(config.Credentials.Scope)
	}

	key := CacheKey(config.Credentials.AccountID, config.Credentials.ClientID)

	return &ClientCredentialsTokenManager{
		config: clientcredentials.Config{
			ClientID:     config.Credentials.ClientID,
			ClientSecret: config.Credentials.ClientSecret,
			TokenURL:     config.TokenURL,
			Scopes:       scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
		store:      NewTokenStore(cache, key, now),
		logger:     config.Logger,
		now:        now,
	}
}

// CacheKey returns the key tokens are cached under.
func (m *ClientCredentialsTokenManager) CacheKey() string {
	return m.store.Key()
}

// GetToken returns a valid access token, fetching one if necessary.
func (m *ClientCredentialsTokenManager) GetToken(ctx context.Context) (string, error) {
	token, err := m.store.Get(ctx)
	if err == nil {
		return token.AccessToken, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// another caller may have fetched while we waited
	token, err = m.store.Get(ctx)
	if err == nil {
		return token.AccessToken, nil
	}

	if m.current.ValidAt(m.now()) {
		return m.current.AccessToken, nil
	}

	return m.fetch(ctx)
}

// RefreshToken forces a token refresh.
func (m *ClientCredentialsTokenManager) RefreshToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.fetch(ctx)
}

// SetToken caches a token obtained elsewhere.
func (m *ClientCredentialsTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.keep(context.Background(), &Token{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	})
}

// keep holds token in memory and writes it to the cache. A failed write is
// logged, the token stays usable. Callers hold m.mu.
func (m *ClientCredentialsTokenManager) keep(ctx context.Context, token *Token) {
	m.current = token

	err := m.store.Set(ctx, token)
	if err != nil && m.logger != nil {
		m.logger.Warn("Failed to cache access token", map[string]interface{}{
			"key":   m.store.Key(),
			"error": err.Error(),
		})
	}
}

func (m *ClientCredentialsTokenManager) fetch(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	issued, err := m.config.Token(ctx)
	if err != nil {
		return "", translateTokenError(err)
	}

	if issued.AccessToken == "" {
		return "", flowmailer.ErrEmptyToken
	}

	token := &Token{
		AccessToken: issued.AccessToken,
		TokenType:   issued.TokenType,
		ExpiresIn:   int(issued.ExpiresIn),
	}

	if scope, ok := issued.Extra("scope").(string); ok {
		token.Scope = scope
	}

	// lifetimes are measured on our clock, not the one oauth2 used for Expiry
	switch {
	case issued.ExpiresIn > 0:
		token.ExpiresAt = m.now().Add(time.Duration(issued.ExpiresIn) * time.Second)
	case !issued.Expiry.IsZero():
		token.ExpiresAt = m.now().Add(time.Until(issued.Expiry))
	default:
		if expiry, ok := jwtExpiry(issued.AccessToken); ok {
			token.ExpiresAt = m.now().Add(time.Until(expiry))
		}
	}

	m.keep(ctx, token)

	return token.AccessToken, nil
}

// jwtExpiry reads the exp claim of a JWT access token without verifying the
// signature. Opaque tokens report false.
func jwtExpiry(accessToken string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(accessToken, claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}

	return claims.ExpiresAt.Time, true
}

func translateTokenError(err error) error {
	retrieveErr := &oauth2.RetrieveError{}
	if !errors.As(err, &retrieveErr) {
		return fmt.Errorf("requesting token: %w", err)
	}

	oauthErr := &flowmailer.OAuthError{
		Code:        retrieveErr.ErrorCode,
		Description: retrieveErr.ErrorDescription,
		URI:         retrieveErr.ErrorURI,
	}

	if retrieveErr.Response != nil {
		oauthErr.StatusCode = retrieveErr.Response.StatusCode
	}

	if oauthErr.Code == "" && oauthErr.Description == "" {
		oauthErr.Description = strings.TrimSpace(string(retrieveErr.Body))
	}

	return oauthErr
}
