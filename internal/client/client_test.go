package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmailer/flowmailer-go/internal/auth"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Debug(msg string, _ map[string]interface{}) { l.record(msg) }
func (l *mockLogger) Info(msg string, _ map[string]interface{})  { l.record(msg) }
func (l *mockLogger) Warn(msg string, _ map[string]interface{})  { l.record(msg) }
func (l *mockLogger) Error(msg string, _ map[string]interface{}) { l.record(msg) }

// unwritableCache reads like a memory cache but rejects every write.
type unwritableCache struct {
	*flowmailer.MemoryCache
}

func (unwritableCache) Set(context.Context, string, *flowmailer.CacheEntry) error {
	return errors.New("redis: connection refused") //nolint:err113 // test double
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires config", func(t *testing.T) {
		t.Parallel()

		_, err := New(t.Context(), nil)
		require.ErrorIs(t, err, flowmailer.ErrConfigRequired)
	})

	t.Run("requires account id", func(t *testing.T) {
		t.Parallel()

		_, err := New(t.Context(), &flowmailer.Config{ClientID: "c", ClientSecret: "s"})
		require.ErrorIs(t, err, flowmailer.ErrAccountIDRequired)
	})

	t.Run("requires credentials", func(t *testing.T) {
		t.Parallel()

		_, err := New(t.Context(), &flowmailer.Config{AccountID: "1", ClientID: "c"})
		require.ErrorIs(t, err, flowmailer.ErrCredentialsRequired)
	})

	t.Run("applies defaults", func(t *testing.T) {
		t.Parallel()

		config := &flowmailer.Config{AccountID: "1", ClientID: "c", ClientSecret: "s"}

		client, err := New(t.Context(), config)
		require.NoError(t, err)
		assert.Equal(t, "1", client.AccountID())
		assert.Equal(t, flowmailer.DefaultMaxAuthRetries, client.AuthRetriesLeft())
		assert.Equal(t, flowmailer.DefaultAPIEndpoint, client.config.APIEndpoint)
		assert.Equal(t, flowmailer.DefaultAuthEndpoint, client.config.AuthEndpoint)
		assert.Equal(t, flowmailer.DefaultScope, client.config.Scope)
		assert.Empty(t, config.Scope, "caller config must not be modified")
	})

	t.Run("rejects unknown cache type", func(t *testing.T) {
		t.Parallel()

		_, err := New(t.Context(), &flowmailer.Config{
			AccountID:    "1",
			ClientID:     "c",
			ClientSecret: "s",
			CacheConfig:  &flowmailer.CacheConfig{Type: "redis"},
		})
		require.ErrorIs(t, err, flowmailer.ErrUnsupportedCacheType)
	})
}

func TestClient_GetToken(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	cache := flowmailer.NewMemoryCache(0)
	client := newTestClient(t, api, func(config *flowmailer.Config) {
		config.Cache = cache
	})

	token, err := client.GetToken(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	token, err = client.GetToken(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, int32(1), api.tokensIssued.Load())
	assert.True(t, cache.Has(t.Context(), auth.CacheKey(testAccountID, "client")))
}

func TestClient_WithAccountID(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	var paths []string

	var mu sync.Mutex

	api.handle("GET /{account}/flows", func(writer http.ResponseWriter, request *http.Request) {
		mu.Lock()
		paths = append(paths, request.URL.Path)
		mu.Unlock()

		writeJSON(writer, http.StatusOK, []flowmailer.Flow{})
	})

	client := newTestClient(t, api)

	other, err := client.WithAccountID("456")
	require.NoError(t, err)
	assert.Equal(t, "456", other.AccountID())
	assert.Equal(t, testAccountID, client.AccountID())

	_, err = client.Flows().List(t.Context())
	require.NoError(t, err)

	_, err = other.Flows().List(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []string{"/123/flows", "/456/flows"}, paths)
	assert.Equal(t, int32(2), api.tokensIssued.Load(), "each account has its own token")

	otherClient, ok := other.(*Client)
	require.True(t, ok)
	assert.Same(t, client.transport, otherClient.transport)
	assert.Same(t, client.cache, otherClient.cache)

	_, err = client.WithAccountID("")
	require.ErrorIs(t, err, flowmailer.ErrAccountIDRequired)
}

func TestClient_AuthRetryOnUnauthorized(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.handle("GET /123/flows/{id}", func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get("Authorization") != "Bearer token-2" {
			writeJSON(writer, http.StatusUnauthorized, map[string]string{
				"error":             "invalid_token",
				"error_description": "Access token expired",
			})

			return
		}

		writeJSON(writer, http.StatusOK, flowmailer.Flow{ID: request.PathValue("id"), Description: "welcome"})
	})

	client := newTestClient(t, api)

	flow, err := client.Flows().Get(t.Context(), "7")
	require.NoError(t, err)
	assert.Equal(t, "7", flow.ID)
	assert.Equal(t, int32(2), api.tokensIssued.Load())
	assert.Equal(t, flowmailer.DefaultMaxAuthRetries, client.AuthRetriesLeft())
}

func TestClient_AuthBudgetExhausted(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	var calls int

	var mu sync.Mutex

	api.handle("GET /123/flows", func(writer http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()

		writeJSON(writer, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
	})

	client := newTestClient(t, api)

	_, err := client.Flows().List(t.Context())
	require.Error(t, err)
	assert.True(t, flowmailer.IsUnauthorized(err))
	assert.Equal(t, 4, calls, "one call plus one per refresh")
	assert.Equal(t, 0, client.AuthRetriesLeft())
}

func TestClient_DebugLogging(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.handle("GET /123/templates", func(writer http.ResponseWriter, _ *http.Request) {
		writeJSON(writer, http.StatusOK, []flowmailer.Template{})
	})

	logger := &mockLogger{}
	client := newTestClient(t, api, func(config *flowmailer.Config) {
		config.Logger = logger
		config.Debug = true
	})

	_, err := client.Templates().List(t.Context())
	require.NoError(t, err)

	logger.mu.Lock()
	defer logger.mu.Unlock()

	assert.Equal(t, []string{"HTTP Request", "HTTP Response"}, logger.messages)
}

func TestClient_TokenCacheWriteFailure(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.handle("GET /123/flows", func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "Bearer token-1", request.Header.Get("Authorization"))
		writeJSON(writer, http.StatusOK, []flowmailer.Flow{})
	})

	logger := &mockLogger{}
	client := newTestClient(t, api, func(config *flowmailer.Config) {
		config.Cache = unwritableCache{MemoryCache: flowmailer.NewMemoryCache(10)}
		config.Logger = logger
	})

	for range 2 {
		_, err := client.Flows().List(t.Context())
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), api.tokensIssued.Load())
	assert.Equal(t, flowmailer.DefaultMaxAuthRetries, client.AuthRetriesLeft())

	logger.mu.Lock()
	defer logger.mu.Unlock()

	assert.Contains(t, logger.messages, "Failed to cache access token")
}

func TestClient_ZeroAuthRetries(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	var calls atomic.Int32

	api.handle("GET /123/flows", func(writer http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(writer, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
	})

	noRetries := 0
	client := newTestClient(t, api, func(config *flowmailer.Config) {
		config.MaxAuthRetries = &noRetries
	})

	assert.Equal(t, 0, client.AuthRetriesLeft())

	_, err := client.Flows().List(t.Context())
	require.Error(t, err)
	assert.True(t, flowmailer.IsUnauthorized(err))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), api.tokensIssued.Load())
}
