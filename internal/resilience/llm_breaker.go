package resilience

import (
	"context"
	"errors"

	"github.com/harjas-romana/calling-agent/pkg/provider/llm"
)

// LLMBreaker guards a single [llm.Provider] with a [CircuitBreaker]. It never
// retries: a failed call is reported immediately, and while the breaker is
// open calls fail fast with [ErrCircuitOpen] so the caller can answer with
// its fallback text.
//
// Canceled requests and 4xx responses other than 408 and 429 describe the
// request, not the backend, and do not count against the breaker.
type LLMBreaker struct {
	provider llm.Provider
	breaker  *CircuitBreaker
}

var _ llm.Provider = (*LLMBreaker)(nil)

// NewLLMBreaker wraps p. cfg.IsFailure is replaced.
func NewLLMBreaker(p llm.Provider, cfg CircuitBreakerConfig) *LLMBreaker {
	cfg.IsFailure = isLLMFailure
	return &LLMBreaker{provider: p, breaker: NewCircuitBreaker(cfg)}
}

func isLLMFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *llm.StatusError
	if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 {
		return se.StatusCode == 408 || se.StatusCode == 429
	}
	return true
}

// Complete implements [llm.Provider].
func (b *LLMBreaker) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var resp *llm.CompletionResponse
	err := b.breaker.Execute(func() error {
		var err error
		resp, err = b.provider.Complete(ctx, req)
		return err
	})
	return resp, err
}

// Capabilities implements [llm.Provider].
func (b *LLMBreaker) Capabilities() llm.ModelCapabilities {
	return b.provider.Capabilities()
}

// State returns the breaker state.
func (b *LLMBreaker) State() State {
	return b.breaker.State()
}
