package flowmailer

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"time"
)

// Default endpoints and limits.
const (
	DefaultAPIEndpoint      = "https://api.flowmailer.net"
	DefaultAuthEndpoint     = "https://login.flowmailer.net"
	DefaultScope            = "api"
	DefaultMaxAuthRetries   = 3
	DefaultAsyncConcurrency = 8
	DefaultMediaType        = "application/vnd.flowmailer.v1.12+json"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Transport sends one HTTP request. *http.Client satisfies it.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// AsyncCapable is implemented by transports that can be driven from many
// goroutines without waiting for earlier responses.
type AsyncCapable interface {
	SupportsAsync() bool
}

// Serializer converts request and response payloads.
type Serializer interface {
	Serialize(v any) ([]byte, error)
	Deserialize(data []byte, v any) error
}

// JSONSerializer is the default Serializer.
type JSONSerializer struct{}

// Serialize implements Serializer.
func (JSONSerializer) Serialize(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serializing %T: %w", v, err)
	}

	return data, nil
}

// Deserialize implements Serializer.
func (JSONSerializer) Deserialize(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("deserializing into %T: %w", v, err)
	}

	return nil
}

// Credentials identify the API client and the account it acts for.
type Credentials struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	Scope        string
}

// Config represents client configuration for building a Client.
//
// # Authentication
//
// Every resource request carries a bearer token obtained with the OAuth2
// client_credentials grant from AuthEndpoint + "/oauth/token". Tokens are
// cached per (AccountID, ClientID) in Cache (an in-memory cache unless
// CacheConfig or Cache say otherwise) for the lifetime reported by the token
// endpoint. A 401 from the API forces a refresh; at most MaxAuthRetries
// refreshes are attempted before the call fails with *AuthFailure. The budget
// is shared by all calls of one client and restored by any non-401 response.
//
// # Retries
//
// Transport errors, 429 and 5xx responses are retried RetryMax times with a
// backoff between RetryWaitMin and RetryWaitMax. With RateLimit set, every
// attempt waits for the client side limiter first.
type Config struct {
	// APIEndpoint: base URL of the REST API. Defaults to DefaultAPIEndpoint.
	APIEndpoint string
	// AuthEndpoint: base URL of the OAuth2 server. Defaults to DefaultAuthEndpoint.
	AuthEndpoint string

	// AccountID: the Flowmailer account all resource paths are scoped to.
	AccountID string
	// ClientID: OAuth2 client ID.
	ClientID string
	// ClientSecret: OAuth2 client secret.
	ClientSecret string
	// Scope: OAuth2 scope. Defaults to DefaultScope.
	Scope string

	// MaxAuthRetries: shared budget of token refreshes. Nil means
	// DefaultMaxAuthRetries; a pointer to 0 disables refreshes after a 401.
	MaxAuthRetries *int
	// RetryMax: maximum number of retries for transient failures. 0 disables retries.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration
	// HTTPTimeout: timeout of the default transport.
	HTTPTimeout time.Duration
	// RateLimit: maximum requests per second, retries included. 0 disables limiting.
	RateLimit float64
	// RateBurst: requests allowed at once above RateLimit. Defaults to 1.
	RateBurst int

	// Debug: enables request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger.
	Logger Logger
	// UserAgent: overrides the default User-Agent header.
	UserAgent string
	// MediaType: versioned media type sent as Accept/Content-Type.
	MediaType string

	// Cache: token cache. Takes precedence over CacheConfig.
	Cache Cache
	// CacheConfig: builds the token cache when Cache is nil.
	CacheConfig *CacheConfig

	// AsyncConcurrency: in-flight limit of asynchronous submission.
	AsyncConcurrency int
	// Transport: replaces the default HTTP transport (tests, proxies).
	Transport Transport
	// Serializer: replaces the default JSON serializer.
	Serializer Serializer
	// Clock: time source for token expiry. Defaults to time.Now.
	Clock func() time.Time
}

// Credentials returns the credential part of the configuration.
func (c *Config) Credentials() Credentials {
	return Credentials{
		AccountID:    c.AccountID,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scope:        c.Scope,
	}
}

// Client is the Flowmailer API client.
type Client interface {
	Messages() MessagesClient
	MessageEvents() MessageEventsClient
	Flows() FlowsClient
	SenderDomains() SenderDomainsClient
	Templates() TemplatesClient

	// AccountID returns the account the client is scoped to.
	AccountID() string
	// WithAccountID returns a client for another account sharing the transport.
	WithAccountID(accountID string) (Client, error)
	// GetToken returns a bearer token for the configured credentials.
	GetToken(ctx context.Context) (string, error)
	// History returns the created-resource locations recorded so far.
	History() []HistoryEntry
}

// HistoryEntry records a resource created through the client.
type HistoryEntry struct {
	Method     string    `json:"method"      yaml:"method"`
	Path       string    `json:"path"        yaml:"path"`
	StatusCode int       `json:"status_code" yaml:"status_code"`
	Location   string    `json:"location"    yaml:"location"`
	RecordedAt time.Time `json:"recorded_at" yaml:"recorded_at"`
}

// MessagesClient submits and queries messages.
type MessagesClient interface {
	Submit(ctx context.Context, message *SubmitMessage) (string, error)
	SubmitAsync(ctx context.Context, messages iter.Seq[*SubmitMessage]) (iter.Seq[*PendingSubmission], error)
	Get(ctx context.Context, messageID string) (*Message, error)
	List(ctx context.Context, params *MessageListParams) (*Page[Message], error)
	Events(ctx context.Context, messageID string, params *MessageListParams) (*Page[MessageEvent], error)
}

// MessageEventsClient queries account wide message events.
type MessageEventsClient interface {
	List(ctx context.Context, params *MessageListParams) (*Page[MessageEvent], error)
}

// FlowsClient manages flows.
type FlowsClient interface {
	List(ctx context.Context) ([]Flow, error)
	Get(ctx context.Context, flowID string) (*Flow, error)
	Create(ctx context.Context, flow *Flow) (string, error)
	Update(ctx context.Context, flowID string, flow *Flow) (*Flow, error)
	Delete(ctx context.Context, flowID string) (bool, error)
}

// SenderDomainsClient manages sender domains.
type SenderDomainsClient interface {
	List(ctx context.Context) ([]SenderDomain, error)
	Get(ctx context.Context, domainID string) (*SenderDomain, error)
	Create(ctx context.Context, domain *SenderDomain) (string, error)
	Delete(ctx context.Context, domainID string) (bool, error)
	Validate(ctx context.Context, domain *SenderDomain) (*SenderDomain, error)
}

// TemplatesClient manages templates.
type TemplatesClient interface {
	List(ctx context.Context) ([]Template, error)
	Get(ctx context.Context, templateID string) (*Template, error)
	Create(ctx context.Context, template *Template) (string, error)
	Update(ctx context.Context, templateID string, template *Template) (*Template, error)
	Delete(ctx context.Context, templateID string) (bool, error)
}
