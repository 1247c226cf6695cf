package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/flowmailer/flowmailer-go/internal/auth"
	"github.com/flowmailer/flowmailer-go/internal/constants"
	fmhttp "github.com/flowmailer/flowmailer-go/internal/http"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// Client implements the flowmailer.Client interface.
type Client struct {
	httpClient    *fmhttp.Client
	tokenManager  auth.TokenManager
	authenticator *auth.Authenticator
	config        flowmailer.Config
	cache         flowmailer.Cache
	transport     flowmailer.Transport

	// Resource clients
	messages      *MessagesClient
	messageEvents *MessageEventsClient
	flows         *FlowsClient
	senderDomains *SenderDomainsClient
	templates     *TemplatesClient
}

// New creates a new Flowmailer API client.
func New(ctx context.Context, config *flowmailer.Config) (*Client, error) {
	if config == nil {
		return nil, flowmailer.ErrConfigRequired
	}

	cfg := *config

	err := validateConfig(&cfg)
	if err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	cache := cfg.Cache
	if cache == nil {
		cache, err = flowmailer.NewCacheFromConfig(ctx, cfg.CacheConfig)
		if err != nil {
			return nil, fmt.Errorf("creating token cache: %w", err)
		}
	}

	transport := cfg.Transport
	if transport == nil {
		transport = fmhttp.NewPooledTransport(cfg.HTTPTimeout)
	}

	return build(&cfg, cache, transport), nil
}

// validateConfig rejects configurations that can never authenticate.
func validateConfig(config *flowmailer.Config) error {
	if config.AccountID == "" {
		return flowmailer.ErrAccountIDRequired
	}

	if config.ClientID == "" || config.ClientSecret == "" {
		return flowmailer.ErrCredentialsRequired
	}

	return nil
}

func applyDefaults(config *flowmailer.Config) {
	if config.APIEndpoint == "" {
		config.APIEndpoint = flowmailer.DefaultAPIEndpoint
	}

	if config.AuthEndpoint == "" {
		config.AuthEndpoint = flowmailer.DefaultAuthEndpoint
	}

	if config.Scope == "" {
		config.Scope = flowmailer.DefaultScope
	}

	if config.MaxAuthRetries == nil {
		maxAuthRetries := flowmailer.DefaultMaxAuthRetries
		config.MaxAuthRetries = &maxAuthRetries
	}

	if config.AsyncConcurrency <= 0 {
		config.AsyncConcurrency = flowmailer.DefaultAsyncConcurrency
	}

	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = constants.DefaultHTTPTimeout
	}

	if config.Serializer == nil {
		config.Serializer = flowmailer.JSONSerializer{}
	}
}

// build wires the token manager, the authenticator and the pipeline for config.
func build(config *flowmailer.Config, cache flowmailer.Cache, transport flowmailer.Transport) *Client {
	tokenManager := auth.NewClientCredentialsTokenManager(&auth.ClientCredentialsConfig{
		TokenURL:    strings.TrimRight(config.AuthEndpoint, "/") + auth.TokenPath,
		Credentials: config.Credentials(),
		HTTPClient:  tokenHTTPClient(transport),
		Cache:       cache,
		Clock:       config.Clock,
		Logger:      config.Logger,
	})

	authenticator := auth.NewAuthenticator(tokenManager, *config.MaxAuthRetries)

	httpOpts := createHTTPClientOptions(config)
	httpOpts = append(httpOpts, fmhttp.WithTransport(transport))
	httpClient := fmhttp.NewClient(config.APIEndpoint, authenticator, httpOpts...)

	client := &Client{
		httpClient:    httpClient,
		tokenManager:  tokenManager,
		authenticator: authenticator,
		config:        *config,
		cache:         cache,
		transport:     transport,
	}

	client.initializeResourceClients()

	return client
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *flowmailer.Config) []fmhttp.Option {
	var httpOpts []fmhttp.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, fmhttp.WithLogger(&loggerAdapter{logger: config.Logger}))
	}

	if config.Debug {
		httpOpts = append(httpOpts, fmhttp.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, fmhttp.WithUserAgent(config.UserAgent))
	}

	if config.MediaType != "" {
		httpOpts = append(httpOpts, fmhttp.WithMediaType(config.MediaType))
	}

	if config.Serializer != nil {
		httpOpts = append(httpOpts, fmhttp.WithSerializer(config.Serializer))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.ExtendedRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, fmhttp.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	if config.RateLimit > 0 {
		httpOpts = append(httpOpts, fmhttp.WithRateLimit(config.RateLimit, config.RateBurst))
	}

	return httpOpts
}

// tokenHTTPClient returns the plain client used for the token endpoint. It
// shares the connection pool of transport but none of the pipeline stages.
func tokenHTTPClient(transport flowmailer.Transport) *http.Client {
	switch t := transport.(type) {
	case interface{ HTTPClient() *http.Client }:
		return t.HTTPClient()
	case *http.Client:
		return t
	default:
		return &http.Client{
			Transport: transportRoundTripper{transport: transport},
			Timeout:   constants.ShortHTTPTimeout,
		}
	}
}

// transportRoundTripper exposes a flowmailer.Transport as an http.RoundTripper.
type transportRoundTripper struct {
	transport flowmailer.Transport
}

func (t transportRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.transport.Do(req) //nolint:wrapcheck // surfaced through oauth2
}

func (c *Client) initializeResourceClients() {
	accountID := c.config.AccountID

	c.messages = NewMessagesClient(c.httpClient, accountID, c.config.AsyncConcurrency)
	c.messageEvents = NewMessageEventsClient(c.httpClient, accountID)
	c.flows = NewFlowsClient(c.httpClient, accountID)
	c.senderDomains = NewSenderDomainsClient(c.httpClient, accountID)
	c.templates = NewTemplatesClient(c.httpClient, accountID)
}

// Messages implements flowmailer.Client.Messages.
func (c *Client) Messages() flowmailer.MessagesClient {
	return c.messages
}

// MessageEvents implements flowmailer.Client.MessageEvents.
func (c *Client) MessageEvents() flowmailer.MessageEventsClient {
	return c.messageEvents
}

// Flows implements flowmailer.Client.Flows.
func (c *Client) Flows() flowmailer.FlowsClient {
	return c.flows
}

// SenderDomains implements flowmailer.Client.SenderDomains.
func (c *Client) SenderDomains() flowmailer.SenderDomainsClient {
	return c.senderDomains
}

// Templates implements flowmailer.Client.Templates.
func (c *Client) Templates() flowmailer.TemplatesClient {
	return c.templates
}

// AccountID implements flowmailer.Client.AccountID.
func (c *Client) AccountID() string {
	return c.config.AccountID
}

// WithAccountID returns a client for accountID. The transport and the cache
// backend are shared; the token, the authenticator and its retry budget are not.
func (c *Client) WithAccountID(accountID string) (flowmailer.Client, error) {
	if accountID == "" {
		return nil, flowmailer.ErrAccountIDRequired
	}

	config := c.config
	config.AccountID = accountID

	return build(&config, c.cache, c.transport), nil
}

// GetToken implements flowmailer.Client.GetToken.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("getting token: %w", err)
	}

	return token, nil
}

// SetToken caches a token obtained elsewhere.
func (c *Client) SetToken(token string, expiresAt time.Time) {
	c.tokenManager.SetToken(token, expiresAt)
}

// History implements flowmailer.Client.History.
func (c *Client) History() []flowmailer.HistoryEntry {
	return c.httpClient.History().Entries()
}

// HTTPClient returns the pipeline client, e.g. to add or replace stages.
func (c *Client) HTTPClient() *fmhttp.Client {
	return c.httpClient
}

// AuthRetriesLeft returns the remaining token refresh budget.
func (c *Client) AuthRetriesLeft() int {
	return c.authenticator.RetriesLeft()
}

// loggerAdapter adapts flowmailer.Logger to the internal http logger.
type loggerAdapter struct {
	logger flowmailer.Logger
}

func (l *loggerAdapter) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug(msg, fields)
}

func (l *loggerAdapter) Info(msg string, fields map[string]interface{}) {
	l.logger.Info(msg, fields)
}

func (l *loggerAdapter) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn(msg, fields)
}

func (l *loggerAdapter) Error(msg string, fields map[string]interface{}) {
	l.logger.Error(msg, fields)
}
