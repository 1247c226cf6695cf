package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/time/rate"

	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// DefaultHTTPTimeout is the timeout of the default transport.
const DefaultHTTPTimeout = 30 * time.Second

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Authenticator attaches credentials to requests. It is installed as the
// innermost stage so that it sees raw 401 responses.
type Authenticator interface {
	Wrap(next Handler) Handler
}

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Meta carries values derived from the response, see MetaNextRange and MetaDeleted.
	Meta    map[string]any
	Request *http.Request
}

// NextRange returns the range of the next page, or nil on the last page.
func (r *Response) NextRange() *flowmailer.ReferenceRange {
	rng, ok := r.Meta[MetaNextRange].(flowmailer.ReferenceRange)
	if !ok {
		return nil
	}

	return &rng
}

// Deleted reports whether the response is the DELETE success sentinel.
func (r *Response) Deleted() bool {
	deleted, _ := r.Meta[MetaDeleted].(bool)

	return deleted
}

// Client is the HTTP client of the API: it builds requests and sends them
// through the stage pipeline.
type Client struct {
	baseURL    string
	pipeline   *Pipeline
	serializer flowmailer.Serializer
	history    *History

	logger    Logger
	debug     bool
	userAgent string
	mediaType string
	retry     RetryConfig
	limiter   *rate.Limiter
	transport flowmailer.Transport
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithMediaType sets the versioned media type used for Accept and Content-Type.
func WithMediaType(mediaType string) Option {
	return func(c *Client) {
		c.mediaType = mediaType
	}
}

// WithRetryConfig sets retry configuration.
func WithRetryConfig(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retry = RetryConfig{RetryMax: maxRetries, RetryWaitMin: waitMin, RetryWaitMax: waitMax}
	}
}

// WithRateLimit limits requests to perSecond with bursts of burst requests.
// A perSecond <= 0 disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil

			return
		}

		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithTransport replaces the default transport.
func WithTransport(transport flowmailer.Transport) Option {
	return func(c *Client) {
		c.transport = transport
	}
}

// WithSerializer replaces the JSON serializer.
func WithSerializer(serializer flowmailer.Serializer) Option {
	return func(c *Client) {
		c.serializer = serializer
	}
}

// WithHistory sets the journal created resources are recorded in.
func WithHistory(history *History) Option {
	return func(c *Client) {
		c.history = history
	}
}

// NewClient creates a client for baseURL. A nil authenticator sends
// requests without credentials.
func NewClient(baseURL string, authenticator Authenticator, opts ...Option) *Client {
	client := &Client{
		baseURL:    baseURL,
		serializer: flowmailer.JSONSerializer{},
		userAgent:  "flowmailer-go",
		mediaType:  flowmailer.DefaultMediaType,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.transport == nil {
		client.transport = NewPooledTransport(DefaultHTTPTimeout)
	}

	if client.history == nil {
		client.history = NewHistory(DefaultHistorySize)
	}

	stages := []Stage{
		{Name: StageHistory, Middleware: historyStage(client.history, client.logger, client.debug)},
		{Name: StageHeaders, Middleware: headersStage(client.mediaType, client.userAgent)},
		{Name: StageRetry, Middleware: retryStage(client.retry, client.logger, client.debug)},
	}

	if client.limiter != nil {
		stages = append(stages, Stage{Name: StageRateLimit, Middleware: rateLimitStage(client.limiter)})
	}

	stages = append(stages, Stage{Name: StageErrors, Middleware: errorsStage(client.serializer)})

	if authenticator != nil {
		stages = append(stages, Stage{Name: StageAuth, Middleware: authenticator.Wrap})
	}

	client.pipeline = NewPipeline(client.transport, stages...)

	return client
}

// Pipeline returns the stage pipeline for inspection or mutation.
func (c *Client) Pipeline() *Pipeline {
	return c.pipeline
}

// History returns the journal of created resources.
func (c *Client) History() *History {
	return c.history
}

// Serializer returns the serializer used for bodies.
func (c *Client) Serializer() flowmailer.Serializer {
	return c.serializer
}

// Transport returns the transport of the pipeline.
func (c *Client) Transport() flowmailer.Transport {
	return c.pipeline.Transport()
}

// Do performs an HTTP request. On error the response is returned as well
// when one was received.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := BuildRequest(ctx, c.baseURL, req, c.serializer)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", req.Method, req.Path, err)
	}

	resp, err := c.pipeline.Handle(httpReq)
	if err != nil {
		return resp, err
	}

	err = Translate(resp, req.Method, req.Body != nil)
	if err != nil {
		return resp, err
	}

	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query Params) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
	})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPut,
		Path:   path,
		Body:   body,
	})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPatch,
		Path:   path,
		Body:   body,
	})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodDelete,
		Path:   path,
	})
}

// PooledTransport is the default transport: a pooled *http.Client that never
// follows redirects. It may be driven from many goroutines at once.
type PooledTransport struct {
	client *http.Client
}

// NewPooledTransport creates the default transport.
func NewPooledTransport(timeout time.Duration) *PooledTransport {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = timeout
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &PooledTransport{client: client}
}

// Do implements flowmailer.Transport.
func (t *PooledTransport) Do(req *http.Request) (*http.Response, error) {
	return t.client.Do(req) //nolint:wrapcheck // wrapped by the pipeline
}

// SupportsAsync implements flowmailer.AsyncCapable.
func (t *PooledTransport) SupportsAsync() bool {
	return true
}

// HTTPClient returns the underlying client, e.g. for the token endpoint.
func (t *PooledTransport) HTTPClient() *http.Client {
	return t.client
}
