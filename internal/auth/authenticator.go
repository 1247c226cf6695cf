package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	fmhttp "github.com/flowmailer/flowmailer-go/internal/http"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// Authenticator is the pipeline stage attaching bearer tokens.
//
// Token refreshes are bounded by a retry budget shared by every request of
// the client. Obtaining a token or answering a 401 consumes the budget, any
// response other than 401 restores it.
type Authenticator struct {
	tokens     TokenManager
	maxRetries int

	mu          sync.Mutex
	retriesLeft int
}

// NewAuthenticator creates an authenticator with a budget of maxRetries refreshes.
func NewAuthenticator(tokens TokenManager, maxRetries int) *Authenticator {
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Authenticator{
		tokens:      tokens,
		maxRetries:  maxRetries,
		retriesLeft: maxRetries,
	}
}

// RetriesLeft returns the remaining budget.
func (a *Authenticator) RetriesLeft() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.retriesLeft
}

// Wrap implements fmhttp.Authenticator. Re-dispatches after a 401 go to next
// only, never through the outer stages.
func (a *Authenticator) Wrap(next fmhttp.Handler) fmhttp.Handler {
	return func(req *http.Request) (*fmhttp.Response, error) {
		if req.Header.Get("Authorization") != "" {
			return next(req)
		}

		err := makeReplayable(req)
		if err != nil {
			return nil, err
		}

		token, err := a.authenticate(req.Context())
		if err != nil {
			return nil, err
		}

		// the caller's request stays untouched so outer stages can resend it
		authed := req.Clone(req.Context())
		authed.Header.Set("Authorization", "Bearer "+token)

		resp, err := next(authed)
		if err != nil {
			return resp, err
		}

		for resp.StatusCode == http.StatusUnauthorized {
			left, ok := a.consume()
			if !ok {
				break
			}

			refreshed, refreshErr := a.tokens.RefreshToken(req.Context())
			if refreshErr == nil && refreshed != "" {
				token = refreshed
			} else if left == 0 {
				if refreshErr == nil {
					refreshErr = flowmailer.ErrEmptyToken
				}

				return resp, &flowmailer.AuthFailure{Err: refreshErr}
			}

			retry, err := cloneRequest(req)
			if err != nil {
				return resp, err
			}

			retry.Header.Set("Authorization", "Bearer "+token)

			resp, err = next(retry)
			if err != nil {
				return resp, err
			}
		}

		if resp.StatusCode != http.StatusUnauthorized {
			a.reset()
		}

		return resp, nil
	}
}

// authenticate obtains a token, forcing a refresh after the first failure.
// Per-attempt errors are swallowed until the budget is exhausted.
func (a *Authenticator) authenticate(ctx context.Context) (string, error) {
	a.mu.Lock()
	attempts := a.retriesLeft + 1
	a.mu.Unlock()

	var lastErr error

	for attempt := range attempts {
		var (
			token string
			err   error
		)

		if attempt == 0 {
			token, err = a.tokens.GetToken(ctx)
		} else {
			token, err = a.tokens.RefreshToken(ctx)
		}

		if err == nil && token != "" {
			a.setRetriesLeft(attempts - 1 - attempt)

			return token, nil
		}

		if err == nil {
			err = flowmailer.ErrEmptyToken
		}

		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	a.setRetriesLeft(0)

	return "", &flowmailer.AuthFailure{Err: lastErr}
}

// consume takes one unit of budget and returns what is left.
func (a *Authenticator) consume() (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.retriesLeft <= 0 {
		return 0, false
	}

	a.retriesLeft--

	return a.retriesLeft, true
}

func (a *Authenticator) setRetriesLeft(left int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.retriesLeft = min(max(left, 0), a.maxRetries)
}

func (a *Authenticator) reset() {
	a.setRetriesLeft(a.maxRetries)
}

// makeReplayable buffers the body so the request can be sent again.
func makeReplayable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}

	data, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("buffering request body: %w", err)
	}

	_ = req.Body.Close()

	req.Body = io.NopCloser(bytes.NewReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	return nil
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())

	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replaying request body: %w", err)
		}

		clone.Body = body
	}

	return clone, nil
}
