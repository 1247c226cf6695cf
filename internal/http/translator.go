package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// Meta keys set by Translate.
const (
	MetaNextRange = "next-range"
	MetaDeleted   = "deleted"
)

const nextRangeHeader = "next-range"

var deletedBody = []byte("true")

// Translate normalizes a successful response of a request sent with method.
//
// A DELETE answered with 200 becomes the boolean sentinel "true". A request
// with a body answered with an empty body and a Location header gets the
// last path segment of Location as body. A next-range header is parsed into
// Meta[MetaNextRange].
func Translate(resp *Response, method string, hadBody bool) error {
	if resp.Meta == nil {
		resp.Meta = map[string]any{}
	}

	if header := resp.Header.Get(nextRangeHeader); header != "" {
		rng, err := flowmailer.ParseReferenceRange(header)
		if err != nil {
			return err
		}

		resp.Meta[MetaNextRange] = rng
	}

	if method == http.MethodDelete && resp.StatusCode == http.StatusOK {
		resp.Meta[MetaDeleted] = true
		resp.Body = deletedBody

		return nil
	}

	location := resp.Header.Get("Location")
	if hadBody && len(resp.Body) == 0 && location != "" {
		resp.Body = []byte(lastPathSegment(location))
	}

	return nil
}

func lastPathSegment(location string) string {
	path := location
	if parsed, err := url.Parse(location); err == nil {
		path = parsed.Path
	}

	path = strings.TrimRight(path, "/")

	return path[strings.LastIndex(path, "/")+1:]
}

// Classify converts a non-2xx response into the matching error.
func Classify(resp *Response, serializer flowmailer.Serializer) error {
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusForbidden:
		return classifyValidation(resp, serializer)
	case http.StatusUnauthorized:
		return classifyOAuth(resp, serializer)
	default:
		return &flowmailer.ServerError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}
}

// classifyValidation builds the error chain of an errors envelope. The last
// envelope entry is the outermost error.
func classifyValidation(resp *Response, serializer flowmailer.Serializer) error {
	var envelope flowmailer.ErrorsEnvelope

	err := serializer.Deserialize(resp.Body, &envelope)
	if err != nil || len(envelope.AllErrors) == 0 {
		return &flowmailer.APIError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	var chain error

	for _, item := range envelope.AllErrors {
		model, _ := flowmailer.ResolveModel(item.ObjectName)

		chain = &flowmailer.ValidationError{
			StatusCode:    resp.StatusCode,
			ObjectName:    item.ObjectName,
			Model:         model,
			Field:         item.Field,
			Message:       item.DefaultMessage,
			Code:          item.Code,
			RejectedValue: item.RejectedValue,
			Arguments:     item.Arguments,
			Cause:         chain,
		}
	}

	return chain
}

func classifyOAuth(resp *Response, serializer flowmailer.Serializer) error {
	oauthErr := &flowmailer.OAuthError{}

	err := serializer.Deserialize(resp.Body, oauthErr)
	if err != nil {
		return &flowmailer.ServerError{StatusCode: resp.StatusCode}
	}

	oauthErr.StatusCode = resp.StatusCode

	return oauthErr
}
