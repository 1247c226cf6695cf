package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowmailer/flowmailer-go/internal/auth"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

const testAccountID = "123"

// testAPI serves the token endpoint and whatever API routes a test registers.
// Tokens are numbered in issue order: token-1, token-2, ...
type testAPI struct {
	*httptest.Server

	mux          *http.ServeMux
	tokensIssued atomic.Int32
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	api := &testAPI{mux: http.NewServeMux()}
	api.mux.HandleFunc("POST "+auth.TokenPath, func(writer http.ResponseWriter, request *http.Request) {
		if request.ParseForm() != nil || request.PostForm.Get("grant_type") != "client_credentials" {
			writer.WriteHeader(http.StatusBadRequest)

			return
		}

		n := api.tokensIssued.Add(1)

		writeJSON(writer, http.StatusOK, map[string]any{
			"access_token": fmt.Sprintf("token-%d", n),
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})

	api.Server = httptest.NewServer(api.mux)
	t.Cleanup(api.Close)

	return api
}

// handle registers handler for a ServeMux pattern such as "GET /123/flows".
func (a *testAPI) handle(pattern string, handler http.HandlerFunc) {
	a.mux.HandleFunc(pattern, handler)
}

// newTestClient creates a client pointed at api. Mutators adjust the config first.
func newTestClient(t *testing.T, api *testAPI, mutators ...func(*flowmailer.Config)) *Client {
	t.Helper()

	config := &flowmailer.Config{
		APIEndpoint:  api.URL,
		AuthEndpoint: api.URL,
		AccountID:    testAccountID,
		ClientID:     "client",
		ClientSecret: "secret",
	}

	for _, mutate := range mutators {
		mutate(config)
	}

	client, err := New(t.Context(), config)
	require.NoError(t, err)

	return client
}

func writeJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(body)
}

// created answers like the API does for created resources: no body, a Location.
func created(location string) http.HandlerFunc {
	return func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Location", location)
		writer.WriteHeader(http.StatusCreated)
	}
}
