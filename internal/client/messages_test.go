package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

func testMessage(recipient string) *flowmailer.SubmitMessage {
	return &flowmailer.SubmitMessage{
		MessageType:      flowmailer.MessageTypeEmail,
		SenderAddress:    "noreply@example.com",
		RecipientAddress: recipient,
		Subject:          "Welcome",
		Text:             "Hello",
	}
}

func TestMessagesClient_Submit(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.handle("POST /123/messages/submit", func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "Bearer token-1", request.Header.Get("Authorization"))
		assert.Equal(t, flowmailer.DefaultMediaType, request.Header.Get("Content-Type"))
		assert.Equal(t, flowmailer.DefaultMediaType, request.Header.Get("Accept"))

		var body flowmailer.SubmitMessage

		assert.NoError(t, json.NewDecoder(request.Body).Decode(&body))
		assert.Equal(t, "user@example.com", body.RecipientAddress)
		assert.Equal(t, flowmailer.MessageTypeEmail, body.MessageType)

		created("/123/messages/456")(writer, request)
	})

	client := newTestClient(t, api)

	id, err := client.Messages().Submit(t.Context(), testMessage("user@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "456", id)

	history := client.History()
	require.Len(t, history, 1)
	assert.Equal(t, http.MethodPost, history[0].Method)
	assert.Equal(t, "/123/messages/456", history[0].Location)

	_, err = client.Messages().Submit(t.Context(), testMessage("other@example.com"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), api.tokensIssued.Load(), "token is reused")
}

func TestMessagesClient_SubmitValidationError(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.handle("POST /123/messages/submit", func(writer http.ResponseWriter, _ *http.Request) {
		writeJSON(writer, http.StatusBadRequest, map[string]any{
			"allErrors": []map[string]any{{
				"objectName":     "submitMessage",
				"field":          "recipientAddress",
				"defaultMessage": "Recipient address is invalid",
				"code":           "recipientAddress.invalid",
				"rejectedValue":  "nope",
			}},
		})
	})

	client := newTestClient(t, api)

	_, err := client.Messages().Submit(t.Context(), testMessage("nope"))
	require.Error(t, err)
	assert.True(t, flowmailer.IsValidation(err))
	assert.Equal(t, http.StatusBadRequest, flowmailer.StatusCode(err))
	assert.Contains(t, err.Error(), "SubmitMessage.recipientAddress Recipient address is invalid")
}

func TestMessagesClient_SubmitAsync(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	var (
		counter  atomic.Int32
		inFlight atomic.Int32
		peak     atomic.Int32
	)

	api.handle("POST /123/messages/submit", func(writer http.ResponseWriter, request *http.Request) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)

		for {
			seen := peak.Load()
			if current <= seen || peak.CompareAndSwap(seen, current) {
				break
			}
		}

		time.Sleep(10 * time.Millisecond)

		n := counter.Add(1)
		created(fmt.Sprintf("/123/messages/%d", 1000+n))(writer, request)
	})

	client := newTestClient(t, api, func(config *flowmailer.Config) {
		config.AsyncConcurrency = 2
	})

	recipients := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com", "e@example.com"}
	messages := func(yield func(*flowmailer.SubmitMessage) bool) {
		for _, recipient := range recipients {
			if !yield(testMessage(recipient)) {
				return
			}
		}
	}

	submissions, err := client.Messages().SubmitAsync(t.Context(), messages)
	require.NoError(t, err)

	var pending []*flowmailer.PendingSubmission
	for submission := range submissions {
		pending = append(pending, submission)
	}

	require.Len(t, pending, len(recipients))

	var ids []string

	for i, submission := range pending {
		assert.Equal(t, i, submission.Index)
		assert.Equal(t, recipients[i], submission.Message.RecipientAddress)

		id, err := submission.Wait(t.Context())
		require.NoError(t, err)

		ids = append(ids, id)
	}

	slices.Sort(ids)
	assert.Equal(t, []string{"1001", "1002", "1003", "1004", "1005"}, ids)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestMessagesClient_SubmitAsyncStopsPulling(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.handle("POST /123/messages/submit", created("/123/messages/1"))

	client := newTestClient(t, api)

	var pulled int

	messages := func(yield func(*flowmailer.SubmitMessage) bool) {
		for {
			pulled++
			if !yield(testMessage("user@example.com")) {
				return
			}
		}
	}

	submissions, err := client.Messages().SubmitAsync(t.Context(), messages)
	require.NoError(t, err)

	var first *flowmailer.PendingSubmission
	for submission := range submissions {
		first = submission

		break
	}

	require.NotNil(t, first)
	assert.Equal(t, 1, pulled)

	id, err := first.Wait(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "1", id)
}

func TestMessagesClient_SubmitAsyncRequiresAsyncTransport(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	client := newTestClient(t, api, func(config *flowmailer.Config) {
		config.Transport = api.Client()
	})

	_, err := client.Messages().SubmitAsync(t.Context(), slices.Values([]*flowmailer.SubmitMessage{testMessage("a@example.com")}))

	configErr := &flowmailer.ConfigurationError{}
	require.ErrorAs(t, err, &configErr)
	require.ErrorIs(t, err, flowmailer.ErrAsyncNotSupported)
	assert.Zero(t, api.tokensIssued.Load())
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestMessagesClient_List(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	var mu sync.Mutex

	var ranges []string

	api.handle("GET /123/", func(writer http.ResponseWriter, request *http.Request) {
		mu.Lock()
		ranges = append(ranges, request.Header.Get("Range"))
		mu.Unlock()

		path, matrix, _ := strings.Cut(request.URL.Path, ";")
		assert.Equal(t, "/123/messages", path)
		assert.Equal(t, "daterange=2024-01-01T00:00:00Z,2024-02-01T00:00:00Z;flowIds=f1,f2", matrix)
		assert.Equal(t, "true", request.URL.Query().Get("addheaders"))
		assert.False(t, request.URL.Query().Has("addonlinelink"))
		assert.Equal(t, "DESC", request.URL.Query().Get("sortorder"))

		switch request.Header.Get("Range") {
		case "items=:2":
			writer.Header().Set("Next-Range", "items=ref:abc:2")
			writeJSON(writer, http.StatusOK, []flowmailer.Message{{ID: "m1"}, {ID: "m2"}})
		default:
			writeJSON(writer, http.StatusOK, []flowmailer.Message{{ID: "m3"}})
		}
	})

	client := newTestClient(t, api)

	params := flowmailer.NewMessageListParams(2)
	params.From = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	params.Until = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	params.FlowIDs = []string{"f1", "f2"}
	params.AddHeaders = true
	params.SortOrder = "DESC"

	page, err := client.Messages().List(t.Context(), params)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.True(t, page.HasNext())
	assert.Equal(t, flowmailer.ReferenceRange{Count: 2, Reference: "ref:abc"}, *page.NextRange)

	iterator := client.messages.Iterate(t.Context(), params)

	var ids []string

	for iterator.HasNext() {
		message, err := iterator.Next()
		if err != nil {
			require.ErrorIs(t, err, flowmailer.ErrNoMoreItems)

			break
		}

		ids = append(ids, message.ID)
	}

	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []string{"items=:2", "items=:2", "items=ref:abc:2"}, ranges)
}

func TestMessagesClient_GetAndEvents(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.handle("GET /123/messages/{id}", func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, http.StatusOK, flowmailer.Message{ID: request.PathValue("id"), Status: "DELIVERED"})
	})
	api.handle("GET /123/messages/{id}/message_events", func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "items=:20", request.Header.Get("Range"))
		writeJSON(writer, http.StatusOK, []flowmailer.MessageEvent{{ID: "e1", MessageID: request.PathValue("id"), Type: "DELIVERED"}})
	})
	api.handle("GET /123/message_events", func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "items=:5", request.Header.Get("Range"))
		writer.Header().Set("Next-Range", "items=next:5")
		writeJSON(writer, http.StatusOK, []flowmailer.MessageEvent{{ID: "e2"}})
	})
	api.handle("GET /123/messages/missing", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
	})

	client := newTestClient(t, api)

	message, err := client.Messages().Get(t.Context(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "DELIVERED", message.Status)

	events, err := client.Messages().Events(t.Context(), "m1", nil)
	require.NoError(t, err)
	require.Len(t, events.Items, 1)
	assert.Equal(t, "m1", events.Items[0].MessageID)
	assert.False(t, events.HasNext())

	accountEvents, err := client.MessageEvents().List(t.Context(), flowmailer.NewMessageListParams(5))
	require.NoError(t, err)
	assert.Equal(t, "e2", accountEvents.Items[0].ID)
	assert.Equal(t, "next", accountEvents.NextRange.Reference)

	_, err = client.Messages().Get(t.Context(), "missing")
	require.Error(t, err)
	assert.True(t, flowmailer.IsNotFound(err))
}
