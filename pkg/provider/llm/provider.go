// Package llm defines the Provider interface for chat-completion backends.
//
// A provider wraps a hosted or local model API (OpenRouter, OpenAI, Anthropic,
// a local Ollama instance, ...) and exposes a single synchronous completion
// call to the assistant's completion client without coupling it to any SDK.
//
// Implementors must be safe for concurrent use. Transport failures that carry
// an HTTP status should be reported as a [*StatusError]; request deadlines
// should be reported as an error wrapping [ErrTimeout] or
// [context.DeadlineExceeded].
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrTimeout is returned (wrapped) when a backend gives up waiting for the
// model before a response arrives.
var ErrTimeout = errors.New("llm: request timed out")

// StatusError reports a non-2xx response from the completion endpoint.
type StatusError struct {
	// StatusCode is the HTTP status returned by the backend.
	StatusCode int

	// Body is the (possibly truncated) response body, for logging only.
	Body string
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("llm: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("llm: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Usage holds token accounting information returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to produce a reply.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// SystemPrompt is sent ahead of Messages as a "system"-role message.
	SystemPrompt string

	// Messages is the ordered conversation history; the last entry is
	// normally the user's turn.
	Messages []Message

	// Temperature controls output randomness in [0.0, 2.0]. Zero leaves the
	// provider default in place.
	Temperature float64

	// MaxTokens caps the number of generated tokens. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is the full reply to a CompletionRequest.
type CompletionResponse struct {
	// Content is the assistant's reply text.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any chat-completion backend.
type Provider interface {
	// Complete sends req to the model and waits for the full reply.
	// It returns an error if the request fails or ctx is done first.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Capabilities returns static metadata describing the underlying model.
	Capabilities() ModelCapabilities
}

// IsTimeout reports whether err represents a request that ran out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
