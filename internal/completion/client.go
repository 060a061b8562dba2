// Package completion sends retrieval-grounded questions to a chat-completion
// backend and maintains the bounded conversation history that goes with them.
//
// [Client.Complete] never returns an error: transport failures degrade to one
// of the fixed Fallback* replies so a turn always has something to say.
package completion

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/harjas-romana/calling-agent/internal/observe"
	"github.com/harjas-romana/calling-agent/pkg/provider/llm"
)

// Replies used when the backend cannot produce an answer.
const (
	FallbackUnavailable = "I'm having trouble processing your request. Please try again later."
	FallbackTimeout     = "Request timed out. The server might be busy."
	FallbackError       = "I encountered an error. Please try again."
)

// ContextPlaceholder is replaced in the system prompt by the retrieved context.
const ContextPlaceholder = "{context}"

// Defaults applied by [New] to zero-valued [Config] fields.
const (
	DefaultMemory      = 5
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 350
	DefaultTimeout     = 30 * time.Second
)

// Roles of a [Turn].
const (
	RoleUser      = llm.RoleUser
	RoleAssistant = llm.RoleAssistant
)

// Turn is one entry of the conversation history.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Config tunes a [Client].
type Config struct {
	// SystemPrompt is the instruction template. Every ContextPlaceholder is
	// replaced by the retrieved context.
	SystemPrompt string

	// Memory is the number of past turns sent with each request. The stored
	// history is trimmed to twice this length.
	Memory int

	Temperature float64
	MaxTokens   int

	// Timeout bounds one backend request.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Memory <= 0 {
		c.Memory = DefaultMemory
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Option configures a [Client].
type Option func(*Client)

// WithMetrics records latencies and fallbacks on m instead of
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithClock overrides the clock used to stamp turns.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithProviderName sets the provider label used in metrics. Default "llm".
func WithProviderName(name string) Option {
	return func(c *Client) { c.providerName = name }
}

// Client talks to one [llm.Provider]. Wrap the provider in a
// resilience.LLMBreaker to fail fast while the backend is down.
//
// Client is safe for concurrent use; [Client.SetConfig] may be called while
// requests are in flight.
type Client struct {
	provider     llm.Provider
	providerName string
	metrics      *observe.Metrics
	now          func() time.Time

	mu  sync.RWMutex
	cfg Config
}

// New returns a Client for p.
func New(p llm.Provider, cfg Config, opts ...Option) *Client {
	c := &Client{
		provider:     p,
		providerName: "llm",
		now:          time.Now,
		cfg:          cfg.withDefaults(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Config returns the active configuration.
func (c *Client) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// SetConfig replaces the configuration for subsequent requests.
func (c *Client) SetConfig(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg.withDefaults()
}

// Complete asks the backend to answer query given the retrieved context and
// returns the reply with the updated history. history is never modified in
// place.
//
// On success, and on a non-2xx reply from the backend, the user turn and the
// reply are appended and the result is trimmed to 2×Memory turns. On
// timeout or any other failure the reply is a fallback text and history is
// returned unchanged.
func (c *Client) Complete(ctx context.Context, query string, history []Turn, retrieved string) (string, []Turn) {
	cfg := c.Config()

	ctx, span := observe.StartSpan(ctx, "completion.Complete")
	defer span.End()

	req := llm.CompletionRequest{
		SystemPrompt: strings.ReplaceAll(cfg.SystemPrompt, ContextPlaceholder, retrieved),
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
	}
	for _, t := range Trim(history, cfg.Memory) {
		req.Messages = append(req.Messages, llm.Message{Role: t.Role, Content: t.Content})
	}
	req.Messages = append(req.Messages, llm.Message{Role: RoleUser, Content: query})

	reqCtx, cancel := contextWithTimeout(ctx, cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.provider.Complete(reqCtx, req)
	c.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())

	if err == nil && resp == nil {
		err = errors.New("completion: empty response")
	}
	if err != nil {
		c.metrics.RecordProviderRequest(ctx, c.providerName, "llm", "error")
		c.metrics.RecordProviderError(ctx, c.providerName, "llm")
		span.RecordError(err)
		return c.fallback(ctx, err, query, history, cfg.Memory)
	}
	c.metrics.RecordProviderRequest(ctx, c.providerName, "llm", "ok")

	reply := strings.TrimSpace(resp.Content)
	span.SetAttributes(attribute.Int("completion.tokens", resp.Usage.CompletionTokens))
	return reply, c.record(history, query, reply, cfg.Memory)
}

func (c *Client) fallback(ctx context.Context, err error, query string, history []Turn, memory int) (string, []Turn) {
	log := observe.Logger(ctx)

	var se *llm.StatusError
	switch {
	case errors.As(err, &se):
		log.Warn("completion: backend returned an error status", "status", se.StatusCode, "err", err)
		c.metrics.RecordFallback(ctx, observe.FallbackUnavailable)
		return FallbackUnavailable, c.record(history, query, FallbackUnavailable, memory)
	case llm.IsTimeout(err):
		log.Warn("completion: request timed out", "err", err)
		c.metrics.RecordFallback(ctx, observe.FallbackTimeout)
		return FallbackTimeout, history
	default:
		log.Error("completion: request failed", "err", err)
		c.metrics.RecordFallback(ctx, observe.FallbackError)
		return FallbackError, history
	}
}

func (c *Client) record(history []Turn, query, reply string, memory int) []Turn {
	now := c.now()
	out := append(slices.Clone(history),
		Turn{Role: RoleUser, Content: query, Timestamp: now},
		Turn{Role: RoleAssistant, Content: reply, Timestamp: now},
	)
	return Trim(out, 2*memory)
}

// Trim returns the last n turns of history as a new slice. n <= 0 yields an
// empty history.
func Trim(history []Turn, n int) []Turn {
	if n <= 0 {
		return []Turn{}
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	return slices.Clone(history)
}

func contextWithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
