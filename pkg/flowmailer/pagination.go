package flowmailer

import (
	"context"
	"fmt"
	"time"
)

// Page is one page of a reference-range paginated list.
type Page[T any] struct {
	Items []T
	// NextRange is the server supplied range of the next page, nil on the last page.
	NextRange *ReferenceRange
}

// HasNext reports whether the server announced another page.
func (p *Page[T]) HasNext() bool {
	return p != nil && p.NextRange != nil
}

// MessageListParams are the list options of message and event queries.
type MessageListParams struct {
	Range         ReferenceRange
	From          time.Time
	Until         time.Time
	FlowIDs       []string
	AddHeaders    bool
	AddOnlineLink bool
	SortOrder     string
}

// NewMessageListParams returns params asking for the first page of count items.
func NewMessageListParams(count int) *MessageListParams {
	return &MessageListParams{Range: NewReferenceRange(count)}
}

// DateRange returns the matrix value of the date window, or nil when unset.
func (p *MessageListParams) DateRange() any {
	if p == nil || (p.From.IsZero() && p.Until.IsZero()) {
		return nil
	}

	return []string{formatDate(p.From), formatDate(p.Until)}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339)
}

// PageFetcher fetches the page starting at rng.
type PageFetcher[T any] func(ctx context.Context, rng ReferenceRange) (*Page[T], error)

// ReferenceRangeIterator walks a list by following next-range cursors.
type ReferenceRangeIterator[T any] struct {
	ctx   context.Context
	fetch PageFetcher[T]
	next  *ReferenceRange
	items []T
	index int
}

// NewReferenceRangeIterator creates an iterator starting at start.
func NewReferenceRangeIterator[T any](ctx context.Context, start ReferenceRange, fetch PageFetcher[T]) *ReferenceRangeIterator[T] {
	return &ReferenceRangeIterator[T]{
		ctx:   ctx,
		fetch: fetch,
		next:  &start,
	}
}

// HasNext checks if there are more items.
func (it *ReferenceRangeIterator[T]) HasNext() bool {
	if it.index < len(it.items) {
		return true
	}

	return it.next != nil
}

// Next returns the next item, fetching a page when the buffer is empty.
func (it *ReferenceRangeIterator[T]) Next() (T, error) {
	var zero T

	for it.index >= len(it.items) {
		if it.next == nil {
			return zero, ErrNoMoreItems
		}

		page, err := it.fetch(it.ctx, *it.next)
		if err != nil {
			return zero, fmt.Errorf("fetching page %s: %w", it.next, err)
		}

		it.items = page.Items
		it.index = 0
		it.next = page.NextRange

		if len(it.items) == 0 && it.next == nil {
			return zero, ErrNoMoreItems
		}
	}

	item := it.items[it.index]
	it.index++

	return item, nil
}

// FetchAll collects every item, following next-range until the last page.
func FetchAll[T any](ctx context.Context, start ReferenceRange, fetch PageFetcher[T]) ([]T, error) {
	var all []T

	rng := &start
	for rng != nil {
		page, err := fetch(ctx, *rng)
		if err != nil {
			return all, fmt.Errorf("fetching page %s: %w", rng, err)
		}

		all = append(all, page.Items...)
		rng = page.NextRange
	}

	return all, nil
}
