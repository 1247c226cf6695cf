package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"

	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// Static errors for err113 compliance.
var (
	ErrStageNotFound  = errors.New("pipeline stage not found")
	ErrDuplicateStage = errors.New("pipeline stage already registered")
	ErrNoTransport    = errors.New("pipeline has no transport")
)

// Stage names of the default pipeline, outermost first.
const (
	StageHistory   = "history"
	StageHeaders   = "headers"
	StageRetry     = "retry"
	StageRateLimit = "ratelimit"
	StageErrors    = "errors"
	StageAuth      = "auth"
)

// Handler sends a request and returns the fully read response.
type Handler func(req *http.Request) (*Response, error)

// Middleware wraps the next handler of the chain.
type Middleware func(next Handler) Handler

// Stage is a named middleware.
type Stage struct {
	Name       string
	Middleware Middleware
}

// Pipeline composes named stages around a transport. The first stage is the
// outermost. The handler chain is built on first use and rebuilt only after a
// mutation.
type Pipeline struct {
	mu        sync.Mutex
	stages    []Stage
	transport flowmailer.Transport
	chain     Handler
}

// NewPipeline creates a pipeline over transport.
func NewPipeline(transport flowmailer.Transport, stages ...Stage) *Pipeline {
	return &Pipeline{
		stages:    slices.Clone(stages),
		transport: transport,
	}
}

// Add appends a stage as the innermost one.
func (p *Pipeline) Add(name string, middleware Middleware) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.indexOf(name) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateStage, name)
	}

	p.stages = append(p.stages, Stage{Name: name, Middleware: middleware})
	p.chain = nil

	return nil
}

// InsertBefore inserts a stage directly outside the stage named before.
func (p *Pipeline) InsertBefore(before, name string, middleware Middleware) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.indexOf(name) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateStage, name)
	}

	index := p.indexOf(before)
	if index < 0 {
		return fmt.Errorf("%w: %s", ErrStageNotFound, before)
	}

	p.stages = slices.Insert(p.stages, index, Stage{Name: name, Middleware: middleware})
	p.chain = nil

	return nil
}

// Replace swaps the middleware of an existing stage, keeping its position.
func (p *Pipeline) Replace(name string, middleware Middleware) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	index := p.indexOf(name)
	if index < 0 {
		return fmt.Errorf("%w: %s", ErrStageNotFound, name)
	}

	p.stages[index].Middleware = middleware
	p.chain = nil

	return nil
}

// Remove drops a stage. It reports whether the stage existed.
func (p *Pipeline) Remove(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	index := p.indexOf(name)
	if index < 0 {
		return false
	}

	p.stages = slices.Delete(p.stages, index, index+1)
	p.chain = nil

	return true
}

// Stages returns the stage names, outermost first.
func (p *Pipeline) Stages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.stages))
	for _, stage := range p.stages {
		names = append(names, stage.Name)
	}

	return names
}

// SetTransport replaces the transport under the innermost stage.
func (p *Pipeline) SetTransport(transport flowmailer.Transport) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.transport = transport
	p.chain = nil
}

// Transport returns the transport under the innermost stage.
func (p *Pipeline) Transport() flowmailer.Transport {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.transport
}

// Handle sends req through every stage.
func (p *Pipeline) Handle(req *http.Request) (*Response, error) {
	return p.handler()(req)
}

func (p *Pipeline) handler() Handler {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.chain != nil {
		return p.chain
	}

	chain := send(p.transport)
	for i := len(p.stages) - 1; i >= 0; i-- {
		chain = p.stages[i].Middleware(chain)
	}

	p.chain = chain

	return chain
}

func (p *Pipeline) indexOf(name string) int {
	return slices.IndexFunc(p.stages, func(stage Stage) bool { return stage.Name == name })
}

// send is the terminal handler: it performs the exchange and reads the body.
func send(transport flowmailer.Transport) Handler {
	return func(req *http.Request) (*Response, error) {
		if transport == nil {
			return nil, ErrNoTransport
		}

		httpResp, err := transport.Do(req)
		if err != nil {
			return nil, &flowmailer.TransportError{Method: req.Method, URL: req.URL.Redacted(), Err: err}
		}

		defer func() { _ = httpResp.Body.Close() }()

		body, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, &flowmailer.TransportError{
				Method: req.Method,
				URL:    req.URL.Redacted(),
				Err:    fmt.Errorf("reading response body: %w", err),
			}
		}

		return &Response{
			StatusCode: httpResp.StatusCode,
			Header:     httpResp.Header,
			Body:       body,
			Meta:       map[string]any{},
			Request:    req,
		}, nil
	}
}
