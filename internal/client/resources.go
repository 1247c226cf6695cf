package client

import (
	"context"
	"fmt"

	"github.com/flowmailer/flowmailer-go/internal/constants"
	fmhttp "github.com/flowmailer/flowmailer-go/internal/http"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// decode deserializes the body of resp with the serializer of httpClient.
func decode[T any](httpClient *fmhttp.Client, resp *fmhttp.Response) (*T, error) {
	var value T

	err := httpClient.Serializer().Deserialize(resp.Body, &value)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers add context
	}

	return &value, nil
}

// fetchPage performs a list request and wraps the items with the next range
// announced by the server.
func fetchPage[T any](ctx context.Context, httpClient *fmhttp.Client, req *fmhttp.Request) (*flowmailer.Page[T], error) {
	resp, err := httpClient.Do(ctx, req)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers add context
	}

	items, err := decode[[]T](httpClient, resp)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	return &flowmailer.Page[T]{Items: *items, NextRange: resp.NextRange()}, nil
}

// listParams returns params, or the first page of the default size when nil.
func listParams(params *flowmailer.MessageListParams) *flowmailer.MessageListParams {
	if params == nil {
		return flowmailer.NewMessageListParams(constants.DefaultPageSize)
	}

	if params.Range.Count <= 0 {
		withDefault := *params
		withDefault.Range.Count = constants.DefaultPageSize

		return &withDefault
	}

	return params
}

// flag returns "true" for set flags and nil otherwise, so unset flags are omitted.
func flag(set bool) any {
	if !set {
		return nil
	}

	return true
}

// optional returns nil for empty strings, so unset values are omitted.
func optional(value string) any {
	if value == "" {
		return nil
	}

	return value
}
