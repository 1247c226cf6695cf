package client

import (
	"context"
	"fmt"
	"iter"
	"net/http"

	"github.com/flowmailer/flowmailer-go/internal/constants"
	fmhttp "github.com/flowmailer/flowmailer-go/internal/http"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// MessagesClient implements flowmailer.MessagesClient.
type MessagesClient struct {
	httpClient  *fmhttp.Client
	accountID   string
	concurrency int
}

// NewMessagesClient creates a new messages client.
func NewMessagesClient(httpClient *fmhttp.Client, accountID string, concurrency int) *MessagesClient {
	if concurrency <= 0 {
		concurrency = flowmailer.DefaultAsyncConcurrency
	}

	return &MessagesClient{
		httpClient:  httpClient,
		accountID:   accountID,
		concurrency: concurrency,
	}
}

// Submit implements flowmailer.MessagesClient.Submit. It returns the id of
// the created message, taken from the Location of the response.
func (c *MessagesClient) Submit(ctx context.Context, message *flowmailer.SubmitMessage) (string, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodPost,
		Path:       constants.APIPathMessageSubmit,
		PathParams: map[string]string{"accountId": c.accountID},
		Body:       message,
	})
	if err != nil {
		return "", fmt.Errorf("submitting message: %w", err)
	}

	return string(resp.Body), nil
}

// SubmitAsync implements flowmailer.MessagesClient.SubmitAsync.
//
// Messages are pulled from messages only while the returned sequence is
// ranged over; each pulled message is submitted on its own goroutine with at
// most the configured number in flight. Stopping the range stops pulling,
// submissions already started still complete.
func (c *MessagesClient) SubmitAsync(
	ctx context.Context,
	messages iter.Seq[*flowmailer.SubmitMessage],
) (iter.Seq[*flowmailer.PendingSubmission], error) {
	capable, ok := c.httpClient.Transport().(flowmailer.AsyncCapable)
	if !ok || !capable.SupportsAsync() {
		return nil, &flowmailer.ConfigurationError{
			Reason: fmt.Sprintf("transport %T cannot submit asynchronously", c.httpClient.Transport()),
			Err:    flowmailer.ErrAsyncNotSupported,
		}
	}

	return func(yield func(*flowmailer.PendingSubmission) bool) {
		slots := make(chan struct{}, c.concurrency)
		index := 0

		for message := range messages {
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				return
			}

			pending := flowmailer.NewPendingSubmission(index, message)
			index++

			go func() {
				defer func() { <-slots }()

				pending.Resolve(c.Submit(ctx, message))
			}()

			if !yield(pending) {
				return
			}
		}
	}, nil
}

// Get implements flowmailer.MessagesClient.Get.
func (c *MessagesClient) Get(ctx context.Context, messageID string) (*flowmailer.Message, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodGet,
		Path:       constants.APIPathMessage,
		PathParams: map[string]string{"accountId": c.accountID, "messageId": messageID},
	})
	if err != nil {
		return nil, fmt.Errorf("getting message: %w", err)
	}

	message, err := decode[flowmailer.Message](c.httpClient, resp)
	if err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}

	return message, nil
}

// List implements flowmailer.MessagesClient.List.
func (c *MessagesClient) List(ctx context.Context, params *flowmailer.MessageListParams) (*flowmailer.Page[flowmailer.Message], error) {
	params = listParams(params)

	page, err := fetchPage[flowmailer.Message](ctx, c.httpClient, &fmhttp.Request{
		Method:     http.MethodGet,
		Path:       constants.APIPathMessages,
		PathParams: map[string]string{"accountId": c.accountID},
		Matrix: fmhttp.Params{
			"daterange": params.DateRange(),
			"flowIds":   params.FlowIDs,
		},
		Query: fmhttp.Params{
			"addheaders":    flag(params.AddHeaders),
			"addonlinelink": flag(params.AddOnlineLink),
			"sortorder":     optional(params.SortOrder),
		},
		Headers: fmhttp.Params{"Range": params.Range.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	return page, nil
}

// Events implements flowmailer.MessagesClient.Events.
func (c *MessagesClient) Events(
	ctx context.Context,
	messageID string,
	params *flowmailer.MessageListParams,
) (*flowmailer.Page[flowmailer.MessageEvent], error) {
	params = listParams(params)

	page, err := fetchPage[flowmailer.MessageEvent](ctx, c.httpClient, &fmhttp.Request{
		Method:     http.MethodGet,
		Path:       constants.APIPathMessageEvents,
		PathParams: map[string]string{"accountId": c.accountID, "messageId": messageID},
		Query:      fmhttp.Params{"sortorder": optional(params.SortOrder)},
		Headers:    fmhttp.Params{"Range": params.Range.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("listing message events: %w", err)
	}

	return page, nil
}

// Iterate walks all messages matching params, following next-range cursors.
func (c *MessagesClient) Iterate(
	ctx context.Context,
	params *flowmailer.MessageListParams,
) *flowmailer.ReferenceRangeIterator[flowmailer.Message] {
	params = listParams(params)

	return flowmailer.NewReferenceRangeIterator(ctx, params.Range,
		func(ctx context.Context, rng flowmailer.ReferenceRange) (*flowmailer.Page[flowmailer.Message], error) {
			next := *params
			next.Range = rng

			return c.List(ctx, &next)
		})
}

// MessageEventsClient implements flowmailer.MessageEventsClient.
type MessageEventsClient struct {
	httpClient *fmhttp.Client
	accountID  string
}

// NewMessageEventsClient creates a new message events client.
func NewMessageEventsClient(httpClient *fmhttp.Client, accountID string) *MessageEventsClient {
	return &MessageEventsClient{
		httpClient: httpClient,
		accountID:  accountID,
	}
}

// List implements flowmailer.MessageEventsClient.List.
func (c *MessageEventsClient) List(
	ctx context.Context,
	params *flowmailer.MessageListParams,
) (*flowmailer.Page[flowmailer.MessageEvent], error) {
	params = listParams(params)

	page, err := fetchPage[flowmailer.MessageEvent](ctx, c.httpClient, &fmhttp.Request{
		Method:     http.MethodGet,
		Path:       constants.APIPathAccountEvents,
		PathParams: map[string]string{"accountId": c.accountID},
		Matrix: fmhttp.Params{
			"receivedrange": params.DateRange(),
			"flowIds":       params.FlowIDs,
		},
		Query:   fmhttp.Params{"sortorder": optional(params.SortOrder)},
		Headers: fmhttp.Params{"Range": params.Range.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("listing account events: %w", err)
	}

	return page, nil
}
