package flowmailer

import (
	"context"
	"sync"
)

// PendingSubmission is the handle of an asynchronously submitted message.
type PendingSubmission struct {
	Index   int
	Message *SubmitMessage

	done chan struct{}
	once sync.Once
	id   string
	err  error
}

// NewPendingSubmission creates an unresolved handle.
func NewPendingSubmission(index int, message *SubmitMessage) *PendingSubmission {
	return &PendingSubmission{
		Index:   index,
		Message: message,
		done:    make(chan struct{}),
	}
}

// Resolve records the outcome. Only the first call has an effect.
func (p *PendingSubmission) Resolve(messageID string, err error) {
	p.once.Do(func() {
		p.id = messageID
		p.err = err
		close(p.done)
	})
}

// Done is closed once the submission has completed.
func (p *PendingSubmission) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the submission completes and returns the created message id.
func (p *PendingSubmission) Wait(ctx context.Context) (string, error) {
	select {
	case <-p.done:
		return p.id, p.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
