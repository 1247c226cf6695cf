package flowmailer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedSource serves the items in pages linked by numeric references.
func pagedSource(t *testing.T, pages [][]string) flowmailer.PageFetcher[string] {
	t.Helper()

	return func(ctx context.Context, rng flowmailer.ReferenceRange) (*flowmailer.Page[string], error) {
		index := 0

		if rng.Reference != "" {
			for i := range pages {
				if rng.Reference == string(rune('a'+i)) {
					index = i
				}
			}
		}

		page := &flowmailer.Page[string]{Items: pages[index]}
		if index+1 < len(pages) {
			page.NextRange = &flowmailer.ReferenceRange{Count: rng.Count, Reference: string(rune('a' + index + 1))}
		}

		return page, nil
	}
}

func TestReferenceRangeIterator(t *testing.T) {
	t.Parallel()

	fetch := pagedSource(t, [][]string{{"1", "2"}, {"3"}, {"4", "5"}})
	it := flowmailer.NewReferenceRangeIterator(context.Background(), flowmailer.NewReferenceRange(2), fetch)

	var items []string

	for it.HasNext() {
		item, err := it.Next()
		require.NoError(t, err)

		items = append(items, item)
	}

	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, items)

	_, err := it.Next()
	require.ErrorIs(t, err, flowmailer.ErrNoMoreItems)
}

func TestReferenceRangeIterator_EmptyList(t *testing.T) {
	t.Parallel()

	fetch := pagedSource(t, [][]string{{}})
	it := flowmailer.NewReferenceRangeIterator(context.Background(), flowmailer.NewReferenceRange(2), fetch)

	require.True(t, it.HasNext())

	_, err := it.Next()
	require.ErrorIs(t, err, flowmailer.ErrNoMoreItems)
	assert.False(t, it.HasNext())
}

func TestReferenceRangeIterator_FetchError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	it := flowmailer.NewReferenceRangeIterator(context.Background(), flowmailer.NewReferenceRange(2),
		func(ctx context.Context, rng flowmailer.ReferenceRange) (*flowmailer.Page[string], error) {
			return nil, boom
		})

	_, err := it.Next()
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "items=:2")
}

func TestFetchAll(t *testing.T) {
	t.Parallel()

	var requested []string

	source := pagedSource(t, [][]string{{"1"}, {"2"}, {"3"}})
	fetch := func(ctx context.Context, rng flowmailer.ReferenceRange) (*flowmailer.Page[string], error) {
		requested = append(requested, rng.String())

		return source(ctx, rng)
	}

	all, err := flowmailer.FetchAll(context.Background(), flowmailer.NewReferenceRange(1), fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, all)
	assert.Equal(t, []string{"items=:1", "items=b:1", "items=c:1"}, requested)
}

func TestMessageListParams_DateRange(t *testing.T) {
	t.Parallel()

	params := flowmailer.NewMessageListParams(50)
	assert.Equal(t, 50, params.Range.Count)
	assert.Nil(t, params.DateRange())

	params.From = time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	params.Until = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2026-03-01T09:00:00Z", "2026-03-02T00:00:00Z"}, params.DateRange())

	var nilParams *flowmailer.MessageListParams
	assert.Nil(t, nilParams.DateRange())
}

func TestPage_HasNext(t *testing.T) {
	t.Parallel()

	var page *flowmailer.Page[string]
	assert.False(t, page.HasNext())
	assert.False(t, (&flowmailer.Page[string]{}).HasNext())
	assert.True(t, (&flowmailer.Page[string]{NextRange: &flowmailer.ReferenceRange{Count: 1}}).HasNext())
}
