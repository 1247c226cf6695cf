package http_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	fmhttp "github.com/flowmailer/flowmailer-go/internal/http"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://api.flowmailer.net"

func buildRequest(t *testing.T, req *fmhttp.Request) *http.Request {
	t.Helper()

	httpReq, err := fmhttp.BuildRequest(context.Background(), testBaseURL, req, flowmailer.JSONSerializer{})
	require.NoError(t, err)

	return httpReq
}

func TestBuildRequest_PathParams(t *testing.T) {
	t.Parallel()

	httpReq := buildRequest(t, &fmhttp.Request{
		Method:     http.MethodGet,
		Path:       "/{accountId}/messages/{messageId}",
		PathParams: map[string]string{"accountId": "123", "messageId": "a b/c"},
	})

	assert.Equal(t, "https://api.flowmailer.net/123/messages/a%20b%2Fc", httpReq.URL.String())

	_, err := fmhttp.BuildRequest(context.Background(), testBaseURL, &fmhttp.Request{
		Method:     http.MethodGet,
		Path:       "/{accountId}/messages/{messageId}",
		PathParams: map[string]string{"accountId": "123"},
	}, flowmailer.JSONSerializer{})
	require.ErrorIs(t, err, flowmailer.ErrMissingPathParam)
}

func TestBuildRequest_Matrix(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	httpReq := buildRequest(t, &fmhttp.Request{
		Method: http.MethodGet,
		Path:   "/1/messages",
		Matrix: fmhttp.Params{
			"flowIds":    []string{"10", "20"},
			"addheaders": true,
			"daterange":  []any{from, from.Add(24 * time.Hour)},
			"sortorder":  nil,
			"tags":       []string{},
		},
	})

	assert.Equal(t,
		"/1/messages;addheaders=true;daterange=2026-03-01T00:00:00Z,2026-03-02T00:00:00Z;flowIds=10,20",
		httpReq.URL.EscapedPath())
}

func TestBuildRequest_QueryAndHeaders(t *testing.T) {
	t.Parallel()

	httpReq := buildRequest(t, &fmhttp.Request{
		Method: http.MethodGet,
		Path:   "/1/flows",
		Query: fmhttp.Params{
			"b":       2,
			"a":       []int{1, 2, 3},
			"dropped": nil,
			"empty":   []string{},
		},
		Headers: fmhttp.Params{
			"Range":        flowmailer.NewReferenceRange(20),
			"X-Empty":      nil,
			"X-Empty-List": []string{},
			"X-Tags":       []string{"a", "b"},
		},
	})

	assert.Equal(t, "a=1%2C2%2C3&b=2", httpReq.URL.RawQuery)
	assert.Equal(t, "items=:20", httpReq.Header.Get("Range"))
	assert.Equal(t, "a,b", httpReq.Header.Get("X-Tags"))

	for _, name := range []string{"X-Empty", "X-Empty-List"} {
		_, present := httpReq.Header[name]
		assert.False(t, present, name)
	}
}

func TestBuildRequest_NilPointerDropped(t *testing.T) {
	t.Parallel()

	var missing *flowmailer.ReferenceRange

	httpReq := buildRequest(t, &fmhttp.Request{
		Method:  http.MethodGet,
		Path:    "/1/messages",
		Query:   fmhttp.Params{"ref": missing},
		Headers: fmhttp.Params{"Range": missing},
	})

	assert.Empty(t, httpReq.URL.RawQuery)
	assert.Empty(t, httpReq.Header.Get("Range"))
}

func TestBuildRequest_UnsupportedValue(t *testing.T) {
	t.Parallel()

	_, err := fmhttp.BuildRequest(context.Background(), testBaseURL, &fmhttp.Request{
		Method: http.MethodGet,
		Path:   "/1/messages",
		Query:  fmhttp.Params{"nested": map[string]string{"a": "b"}},
	}, flowmailer.JSONSerializer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, flowmailer.ErrUnsupportedValueType))
}

func TestBuildRequest_Idempotent(t *testing.T) {
	t.Parallel()

	req := &fmhttp.Request{
		Method:     http.MethodPost,
		Path:       "/{accountId}/messages/submit",
		PathParams: map[string]string{"accountId": "123"},
		Matrix:     fmhttp.Params{"z": "1", "a": []string{"x", "y"}, "m": 3},
		Query:      fmhttp.Params{"q": "v", "b": []int{1, 2}},
		Headers:    fmhttp.Params{"X-B": "2", "X-A": "1"},
		Body:       map[string]any{"subject": "hi", "tags": []string{"a", "b"}},
	}

	first := buildRequest(t, req)
	second := buildRequest(t, req)

	assert.Equal(t, first.URL.String(), second.URL.String())
	assert.Equal(t, first.Header, second.Header)
	assert.Equal(t, first.ContentLength, second.ContentLength)

	firstBody, err := io.ReadAll(first.Body)
	require.NoError(t, err)

	secondBody, err := io.ReadAll(second.Body)
	require.NoError(t, err)

	assert.Equal(t, firstBody, secondBody)
	assert.JSONEq(t, `{"subject":"hi","tags":["a","b"]}`, string(firstBody))
}
