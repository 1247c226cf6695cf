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

func TestPendingSubmission_ResolveOnce(t *testing.T) {
	t.Parallel()

	pending := flowmailer.NewPendingSubmission(3, &flowmailer.SubmitMessage{Subject: "hi"})

	go pending.Resolve("456", nil)

	id, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "456", id)
	assert.Equal(t, 3, pending.Index)

	pending.Resolve("789", errors.New("ignored"))

	id, err = pending.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "456", id)

	select {
	case <-pending.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestPendingSubmission_WaitCancelled(t *testing.T) {
	t.Parallel()

	pending := flowmailer.NewPendingSubmission(0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := pending.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
