package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// DefaultHistorySize bounds the journal of created resources.
const DefaultHistorySize = 100

// History is a bounded journal of resources created through the client.
// The oldest entry is dropped when it is full.
type History struct {
	mu      sync.Mutex
	size    int
	entries []flowmailer.HistoryEntry
	now     func() time.Time
}

// NewHistory creates a journal keeping at most size entries.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}

	return &History{size: size, now: time.Now}
}

// Record appends an entry.
func (h *History) Record(entry flowmailer.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = h.now()
	}

	h.entries = append(h.entries, entry)
	if len(h.entries) > h.size {
		h.entries = h.entries[len(h.entries)-h.size:]
	}
}

// Entries returns a copy of the journal, oldest first.
func (h *History) Entries() []flowmailer.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := make([]flowmailer.HistoryEntry, len(h.entries))
	copy(entries, h.entries)

	return entries
}

// historyStage records created-resource locations and logs the exchange.
func historyStage(history *History, logger Logger, debug bool) Middleware {
	return func(next Handler) Handler {
		return func(req *http.Request) (*Response, error) {
			if debug && logger != nil {
				logger.Debug("HTTP Request", map[string]interface{}{
					"method": req.Method,
					"url":    req.URL.Redacted(),
				})
			}

			start := time.Now()
			resp, err := next(req)

			if debug && logger != nil && resp != nil {
				logger.Debug("HTTP Response", map[string]interface{}{
					"status":   resp.StatusCode,
					"duration": time.Since(start).String(),
					"size":     len(resp.Body),
				})
			}

			if err == nil && resp != nil && history != nil && isSuccess(resp.StatusCode) {
				location := resp.Header.Get("Location")
				if location != "" {
					history.Record(flowmailer.HistoryEntry{
						Method:     req.Method,
						Path:       req.URL.Path,
						StatusCode: resp.StatusCode,
						Location:   location,
					})
				}
			}

			return resp, err
		}
	}
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
