package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// headersStage sets the content negotiation headers and the User-Agent
// unless the request already carries them.
func headersStage(mediaType, userAgent string) Middleware {
	return func(next Handler) Handler {
		return func(req *http.Request) (*Response, error) {
			setDefault(req.Header, "Accept", mediaType)

			if req.Body != nil && req.Body != http.NoBody {
				setDefault(req.Header, "Content-Type", mediaType)
			}

			setDefault(req.Header, "User-Agent", userAgent)

			return next(req)
		}
	}
}

func setDefault(header http.Header, name, value string) {
	if value != "" && header.Get(name) == "" {
		header.Set(name, value)
	}
}

// errorsStage turns every non-2xx response into a typed error. It sits
// outside the authenticator so that 401s reach the authenticator raw.
func errorsStage(serializer flowmailer.Serializer) Middleware {
	return func(next Handler) Handler {
		return func(req *http.Request) (*Response, error) {
			resp, err := next(req)
			if err != nil || isSuccess(resp.StatusCode) {
				return resp, err
			}

			return resp, Classify(resp, serializer)
		}
	}
}

// rateLimitStage waits for a limiter token before every attempt, retried
// attempts included.
func rateLimitStage(limiter *rate.Limiter) Middleware {
	return func(next Handler) Handler {
		return func(req *http.Request) (*Response, error) {
			err := limiter.Wait(req.Context())
			if err != nil {
				return nil, fmt.Errorf("waiting for rate limiter: %w", err)
			}

			return next(req)
		}
	}
}

// RetryConfig configures the retry stage.
type RetryConfig struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// retryStage retries transport errors, 429 and 5xx (except 501) with
// go-retryablehttp. The rest of the chain is exposed to retryablehttp as an
// http.RoundTripper so the request body is replayed on every attempt.
func retryStage(config RetryConfig, logger Logger, debug bool) Middleware {
	return func(next Handler) Handler {
		return func(req *http.Request) (*Response, error) {
			if config.RetryMax <= 0 {
				return next(req)
			}

			tripper := &chainRoundTripper{next: next}

			client := retryablehttp.NewClient()
			client.HTTPClient = &http.Client{
				Transport: tripper,
				CheckRedirect: func(*http.Request, []*http.Request) error {
					return http.ErrUseLastResponse
				},
			}
			client.RetryMax = config.RetryMax
			client.RetryWaitMin = config.RetryWaitMin
			client.RetryWaitMax = config.RetryWaitMax
			client.CheckRetry = retryPolicy
			client.ErrorHandler = retryablehttp.PassthroughErrorHandler
			client.Logger = nil

			if debug && logger != nil {
				client.Logger = &retryLogger{logger: logger}
			}

			retryReq, err := retryablehttp.FromRequest(req)
			if err != nil {
				return nil, fmt.Errorf("preparing request for retry: %w", err)
			}

			httpResp, err := client.Do(retryReq)
			if err != nil {
				return tripper.last, unwrapURLError(err)
			}

			// the chain already read the body into tripper.last
			_ = httpResp.Body.Close()

			return tripper.last, nil
		}
	}
}

// retryPolicy decides whether an attempt is retried.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		serverErr := &flowmailer.ServerError{}
		if errors.As(err, &serverErr) {
			return serverErr.Temporary(), nil
		}

		transportErr := &flowmailer.TransportError{}
		if errors.As(err, &transportErr) {
			return !errors.Is(transportErr.Err, context.Canceled), nil
		}

		return false, nil
	}

	temporary := (&flowmailer.ServerError{StatusCode: resp.StatusCode}).Temporary()

	return temporary, nil
}

func unwrapURLError(err error) error {
	urlErr := &url.Error{}
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}

	return err
}

// chainRoundTripper drives the inner chain from retryablehttp.
type chainRoundTripper struct {
	next Handler
	last *Response
}

// RoundTrip implements http.RoundTripper.
func (t *chainRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next(req)
	t.last = resp

	if err != nil {
		return nil, err
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		StatusCode:    resp.StatusCode,
		Header:        maps.Clone(resp.Header),
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}, nil
}

// retryLogger adapts Logger to retryablehttp.LeveledLogger.
type retryLogger struct {
	logger Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fieldsOf(keysAndValues))
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, fieldsOf(keysAndValues))
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fieldsOf(keysAndValues))
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fieldsOf(keysAndValues))
}

func fieldsOf(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}
