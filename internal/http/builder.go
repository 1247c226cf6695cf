package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// Params holds matrix, query or header parameters. Nil values and empty
// lists are dropped, lists are joined with ",".
type Params map[string]any

// Request represents an HTTP request to the API.
type Request struct {
	Method string
	// Path may contain {name} placeholders filled from PathParams.
	Path       string
	PathParams map[string]string
	Matrix     Params
	Query      Params
	Headers    Params
	Body       any
}

// BuildRequest renders req against baseURL. It has no side effects: the
// same input always produces the same request.
func BuildRequest(ctx context.Context, baseURL string, req *Request, serializer flowmailer.Serializer) (*http.Request, error) {
	path, err := expandPath(req.Path, req.PathParams)
	if err != nil {
		return nil, err
	}

	matrix, err := encodeMatrix(req.Matrix)
	if err != nil {
		return nil, err
	}

	target := strings.TrimRight(baseURL, "/") + path + matrix

	query, err := encodeQuery(req.Query)
	if err != nil {
		return nil, err
	}

	if query != "" {
		target += "?" + query
	}

	var body io.Reader

	if req.Body != nil {
		data, err := serializer.Serialize(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}

		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for _, name := range sortedKeys(req.Headers) {
		values, err := stringValues(req.Headers[name])
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", name, err)
		}

		if len(values) > 0 {
			httpReq.Header.Set(name, strings.Join(values, ","))
		}
	}

	return httpReq, nil
}

func expandPath(template string, params map[string]string) (string, error) {
	var builder strings.Builder

	rest := template
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			builder.WriteString(rest)

			break
		}

		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			builder.WriteString(rest)

			break
		}

		name := rest[start+1 : start+end]

		value, ok := params[name]
		if !ok || value == "" {
			return "", fmt.Errorf("%w: %s in %s", flowmailer.ErrMissingPathParam, name, template)
		}

		builder.WriteString(rest[:start])
		builder.WriteString(url.PathEscape(value))
		rest = rest[start+end+1:]
	}

	return builder.String(), nil
}

func encodeMatrix(params Params) (string, error) {
	var builder strings.Builder

	for _, name := range sortedKeys(params) {
		values, err := stringValues(params[name])
		if err != nil {
			return "", fmt.Errorf("matrix parameter %s: %w", name, err)
		}

		if len(values) == 0 {
			continue
		}

		for i, value := range values {
			values[i] = url.PathEscape(value)
		}

		builder.WriteString(";")
		builder.WriteString(url.PathEscape(name))
		builder.WriteString("=")
		builder.WriteString(strings.Join(values, ","))
	}

	return builder.String(), nil
}

func encodeQuery(params Params) (string, error) {
	query := url.Values{}

	for name, raw := range params {
		values, err := stringValues(raw)
		if err != nil {
			return "", fmt.Errorf("query parameter %s: %w", name, err)
		}

		if len(values) == 0 {
			continue
		}

		query.Set(name, strings.Join(values, ","))
	}

	// Encode sorts by key
	return query.Encode(), nil
}

// stringValues flattens a parameter value. Nil values, nil pointers and
// empty lists yield no values.
func stringValues(raw any) ([]string, error) {
	if raw == nil {
		return nil, nil
	}

	value := reflect.ValueOf(raw)

	switch value.Kind() { //nolint:exhaustive // scalars are handled by stringify
	case reflect.Slice, reflect.Array:
		if _, isBytes := raw.([]byte); isBytes {
			break
		}

		values := make([]string, 0, value.Len())

		for i := range value.Len() {
			item, present, err := stringify(value.Index(i).Interface())
			if err != nil {
				return nil, err
			}

			if present {
				values = append(values, item)
			}
		}

		return values, nil
	}

	item, present, err := stringify(raw)
	if err != nil || !present {
		return nil, err
	}

	return []string{item}, nil
}

func stringify(raw any) (string, bool, error) {
	if raw == nil {
		return "", false, nil
	}

	if value := reflect.ValueOf(raw); value.Kind() == reflect.Pointer && value.IsNil() {
		return "", false, nil
	}

	switch typed := raw.(type) {
	case time.Time:
		return typed.UTC().Format(time.RFC3339), true, nil
	case *time.Time:
		return typed.UTC().Format(time.RFC3339), true, nil
	case []byte:
		return string(typed), true, nil
	}

	text, err := cast.ToStringE(raw)
	if err != nil {
		return "", false, fmt.Errorf("%w: %T", flowmailer.ErrUnsupportedValueType, raw)
	}

	return text, true, nil
}

func sortedKeys(params Params) []string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}
