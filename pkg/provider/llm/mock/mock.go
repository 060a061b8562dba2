// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify the CompletionRequests sent by the
// completion client and to feed controlled replies without a live backend.
//
//	p := &mock.Provider{
//	    CompleteResponse: &llm.CompletionResponse{Content: "We open at 11."},
//	}
package mock

import (
	"context"
	"sync"

	"github.com/harjas-romana/calling-agent/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	Ctx context.Context
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
type Provider struct {
	mu sync.Mutex

	// CompleteResponse is returned by Complete. May be nil.
	CompleteResponse *llm.CompletionResponse

	// CompleteErr, if non-nil, is returned as the error from Complete.
	CompleteErr error

	// CompleteFunc, if set, replaces CompleteResponse/CompleteErr. It runs
	// without the mock's lock held so it may block on ctx.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	// ModelCapabilities is returned by Capabilities.
	ModelCapabilities llm.ModelCapabilities

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall
}

// Complete records the call and returns the configured reply.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	fn, resp, err := p.CompleteFunc, p.CompleteResponse, p.CompleteErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return resp, err
}

// Capabilities returns ModelCapabilities.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ModelCapabilities
}

// CallCount returns the number of Complete invocations so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.CompleteCalls)
}

// LastRequest returns the most recent CompletionRequest, or the zero value.
func (p *Provider) LastRequest() llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.CompleteCalls) == 0 {
		return llm.CompletionRequest{}
	}
	return p.CompleteCalls[len(p.CompleteCalls)-1].Req
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
}

var _ llm.Provider = (*Provider)(nil)
