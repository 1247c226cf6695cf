package flowmailer

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired       = errors.New("config is required")
	ErrAccountIDRequired    = errors.New("account id is required")
	ErrCredentialsRequired  = errors.New("client id and client secret are required")
	ErrMissingPathParam     = errors.New("missing path parameter")
	ErrUnsupportedValueType = errors.New("unsupported parameter value type")
	ErrNoMoreItems          = errors.New("no more items")
	ErrEmptyToken           = errors.New("token endpoint returned an empty access token")
	ErrAsyncNotSupported    = errors.New("transport does not support asynchronous dispatch")
)

const internalServerErrorMessage = "Internal Server Error"

// FormatError reports a malformed range header.
type FormatError struct {
	Kind   string
	Value  string
	Reason string
}

func newFormatError(kind, value, reason string) *FormatError {
	return &FormatError{Kind: kind, Value: value, Reason: reason}
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Kind, e.Value, e.Reason)
}

// AuthFailure is returned once the authentication retry budget is exhausted.
type AuthFailure struct {
	Err error
}

// Error implements the error interface.
func (e *AuthFailure) Error() string {
	if e.Err == nil {
		return "authentication failed: retry budget exhausted"
	}

	return "authentication failed: retry budget exhausted: " + e.Err.Error()
}

// Unwrap returns the last error seen while obtaining a token.
func (e *AuthFailure) Unwrap() error {
	return e.Err
}

// ValidationError is one entry of a 400/403 error envelope.
//
// Several entries form a chain: the last entry of the envelope is the
// outermost error and Unwrap yields the one before it.
type ValidationError struct {
	StatusCode    int
	ObjectName    string
	Model         string
	Field         string
	Message       string
	Code          string
	RejectedValue any
	Arguments     []any
	Cause         error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	object := e.ObjectName
	if e.Model != "" {
		object = e.Model
	}

	var builder strings.Builder

	builder.WriteString(object)
	builder.WriteString(".")
	builder.WriteString(e.Field)
	builder.WriteString(" ")
	builder.WriteString(e.Message)
	builder.WriteString(" ")
	builder.WriteString(e.Code)

	return builder.String()
}

// Unwrap returns the previous error of the envelope.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// All returns the chain in envelope order.
func (e *ValidationError) All() []*ValidationError {
	var chain []*ValidationError

	var current error = e
	for current != nil {
		validationErr := &ValidationError{}
		if !errors.As(current, &validationErr) {
			break
		}

		chain = append([]*ValidationError{validationErr}, chain...)
		current = validationErr.Cause
	}

	return chain
}

// OAuthError is an RFC 6749 error response.
type OAuthError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
	URI         string `json:"error_uri,omitempty"`
}

// Error implements the error interface.
func (e *OAuthError) Error() string {
	if e.Description != "" {
		return e.Description
	}

	if e.Code != "" {
		return e.Code
	}

	return http.StatusText(http.StatusUnauthorized)
}

// UnmarshalJSON accepts both the RFC 6749 snake_case and the camelCase
// spelling of the description and URI fields.
func (e *OAuthError) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code             string `json:"error"`
		Description      string `json:"error_description"`
		DescriptionCamel string `json:"errorDescription"`
		URI              string `json:"error_uri"`
		URICamel         string `json:"errorUri"`
	}

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return fmt.Errorf("decoding OAuth error: %w", err)
	}

	e.Code = raw.Code
	e.Description = cmp.Or(raw.Description, raw.DescriptionCamel)
	e.URI = cmp.Or(raw.URI, raw.URICamel)

	return nil
}

// ServerError is a 5xx or otherwise unclassified response.
type ServerError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	message := e.Message
	if message == "" {
		message = internalServerErrorMessage
	}

	return fmt.Sprintf("%s (status: %d)", message, e.StatusCode)
}

// Temporary reports whether retrying the request may succeed.
func (e *ServerError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		(e.StatusCode >= http.StatusInternalServerError && e.StatusCode != http.StatusNotImplemented)
}

// APIError carries a raw error body that could not be parsed as an envelope.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// TransportError is a network level failure that survived the retry stage.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports a client setup that cannot serve the call.
type ConfigurationError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}

	return "configuration error: " + e.Reason
}

// Unwrap returns the wrapped error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	validationErr := &ValidationError{}
	if errors.As(err, &validationErr) {
		return validationErr.StatusCode
	}

	oauthErr := &OAuthError{}
	if errors.As(err, &oauthErr) {
		return oauthErr.StatusCode
	}

	serverErr := &ServerError{}
	if errors.As(err, &serverErr) {
		return serverErr.StatusCode
	}

	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}

	return 0
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsUnauthorized checks if the error is an authentication error.
func IsUnauthorized(err error) bool {
	authFailure := &AuthFailure{}
	if errors.As(err, &authFailure) {
		return true
	}

	return StatusCode(err) == http.StatusUnauthorized
}

// IsValidation checks if the error carries validation details.
func IsValidation(err error) bool {
	validationErr := &ValidationError{}

	return errors.As(err, &validationErr)
}
