package flowmailer

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ValidationError
		expected string
	}{
		{
			name: "field error",
			err: &ValidationError{
				ObjectName: "submitMessage",
				Model:      "SubmitMessage",
				Field:      "recipientAddress",
				Message:    "may not be empty",
				Code:       "NotEmpty",
			},
			expected: "SubmitMessage.recipientAddress may not be empty NotEmpty",
		},
		{
			name: "object error",
			err: &ValidationError{
				ObjectName: "flow",
				Message:    "forbidden",
				Code:       "Forbidden",
			},
			expected: "flow. forbidden Forbidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestValidationError_All(t *testing.T) {
	first := &ValidationError{ObjectName: "a", Message: "first"}
	second := &ValidationError{ObjectName: "b", Message: "second", Cause: first}
	third := &ValidationError{ObjectName: "c", Message: "third", Cause: second}

	chain := third.All()
	require.Len(t, chain, 3)
	assert.Same(t, first, chain[0])
	assert.Same(t, second, chain[1])
	assert.Same(t, third, chain[2])

	assert.Same(t, second, errors.Unwrap(third))
}

func TestOAuthError_Error(t *testing.T) {
	assert.Equal(t, "Bad credentials", (&OAuthError{Code: "invalid_client", Description: "Bad credentials"}).Error())
	assert.Equal(t, "invalid_client", (&OAuthError{Code: "invalid_client"}).Error())
	assert.Equal(t, "Unauthorized", (&OAuthError{}).Error())
}

func TestServerError(t *testing.T) {
	assert.Equal(t, "Internal Server Error (status: 500)", (&ServerError{StatusCode: 500}).Error())
	assert.Equal(t, "boom (status: 502)", (&ServerError{StatusCode: 502, Message: "boom"}).Error())

	tests := []struct {
		status    int
		temporary bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusNotImplemented, false},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusNotFound, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.temporary, (&ServerError{StatusCode: tt.status}).Temporary(), tt.status)
	}
}

func TestAuthFailure_Unwrap(t *testing.T) {
	cause := &OAuthError{Code: "invalid_client"}
	err := &AuthFailure{Err: cause}

	var oauthErr *OAuthError
	require.ErrorAs(t, err, &oauthErr)
	assert.Contains(t, err.Error(), "retry budget exhausted")
	assert.Equal(t, "authentication failed: retry budget exhausted", (&AuthFailure{}).Error())
}

func TestStatusCodeHelpers(t *testing.T) {
	notFound := fmt.Errorf("getting flow: %w", &ServerError{StatusCode: http.StatusNotFound})
	assert.True(t, IsNotFound(notFound))
	assert.Equal(t, http.StatusNotFound, StatusCode(notFound))

	assert.True(t, IsUnauthorized(&AuthFailure{}))
	assert.True(t, IsUnauthorized(&OAuthError{StatusCode: http.StatusUnauthorized}))
	assert.False(t, IsUnauthorized(&ServerError{StatusCode: http.StatusInternalServerError}))

	validation := &ValidationError{StatusCode: http.StatusBadRequest}
	assert.True(t, IsValidation(fmt.Errorf("submitting: %w", validation)))
	assert.Equal(t, http.StatusBadRequest, StatusCode(validation))
	assert.Equal(t, http.StatusForbidden, StatusCode(&APIError{StatusCode: http.StatusForbidden}))
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
}

func TestTransportAndConfigurationErrors(t *testing.T) {
	cause := errors.New("connection refused")

	transportErr := &TransportError{Method: "GET", URL: "https://api.flowmailer.net/1/flows", Err: cause}
	assert.Equal(t, "GET https://api.flowmailer.net/1/flows: connection refused", transportErr.Error())
	assert.ErrorIs(t, transportErr, cause)

	configErr := &ConfigurationError{Reason: "async submission", Err: ErrAsyncNotSupported}
	assert.ErrorIs(t, configErr, ErrAsyncNotSupported)
	assert.Equal(t, "configuration error: missing account", (&ConfigurationError{Reason: "missing account"}).Error())
}
