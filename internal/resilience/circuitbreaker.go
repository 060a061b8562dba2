// Package resilience protects the assistant from failing provider backends.
//
// [CircuitBreaker] is a three-state breaker (closed → open → half-open) that
// fails fast once a backend keeps erroring, so a degraded completion or
// speech service turns into an immediate fallback reply instead of a slow
// one. [FallbackGroup] chains several providers of one kind, each behind its
// own breaker. The provider wrappers in this package ([LLMBreaker],
// [TTSFallback], [STTFallback]) implement the provider interfaces on top of
// those two primitives.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker is
// open and the reset timeout has not elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the reset timeout
	// elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through. Any probe
	// failure re-opens the breaker; enough successes close it.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds tuning knobs for a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name labels the breaker in log messages.
	Name string

	// MaxFailures is the number of consecutive failures that opens a closed
	// breaker. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before probing.
	// Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of successful probes needed to close the
	// breaker again. Default: 3.
	HalfOpenMax int

	// IsFailure decides whether an error counts against the backend. Errors
	// it rejects (for example "no speech in this recording") are passed
	// through without tripping the breaker. Nil counts every error.
	IsFailure func(error) bool

	// Now overrides the clock. Nil uses time.Now.
	Now func() time.Time
}

// CircuitBreaker implements the three-state circuit breaker pattern.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int
	isFailure    func(error) bool
	now          func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	probes    int
	probeWins int
}

// NewCircuitBreaker creates a [CircuitBreaker]. Zero config fields take their
// defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(error) bool { return true }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		isFailure:    cfg.IsFailure,
		now:          cfg.Now,
	}
}

// Name returns the configured breaker name.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute runs fn if the breaker admits the call and records the outcome.
// A rejected call returns [ErrCircuitOpen] without invoking fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probe, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.record(probe, err)
	return err
}

// admit decides whether a call may proceed and whether it is a half-open probe.
func (cb *CircuitBreaker) admit() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.resetTimeout {
			return false, ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probes, cb.probeWins = 0, 0
		slog.Info("circuit breaker half-open", "name", cb.name)
	case StateHalfOpen:
		if cb.probes >= cb.halfOpenMax {
			return false, ErrCircuitOpen
		}
	case StateClosed:
		return false, nil
	}
	cb.probes++
	return true, nil
}

func (cb *CircuitBreaker) record(probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := err != nil && cb.isFailure(err)
	switch {
	case failed && probe:
		cb.trip()
		slog.Warn("circuit breaker re-opened by failed probe", "name", cb.name, "err", err)
	case failed:
		cb.failures++
		if cb.state == StateClosed && cb.failures >= cb.maxFailures {
			cb.trip()
			slog.Warn("circuit breaker opened", "name", cb.name, "consecutive_failures", cb.failures, "err", err)
		}
	case probe && err != nil:
		// Errors that do not count free the probe slot.
		cb.probes--
	case probe:
		cb.probeWins++
		if cb.probeWins >= cb.halfOpenMax {
			cb.state = StateClosed
			cb.failures = 0
			slog.Info("circuit breaker closed", "name", cb.name)
		}
	default:
		if err == nil {
			cb.failures = 0
		}
	}
}

// trip must be called with mu held.
func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.failures = cb.maxFailures
}

// State returns the current state. An open breaker whose reset timeout has
// elapsed reports [StateHalfOpen]; the transition happens on the next call.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker closed and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probes, cb.probeWins = 0, 0
	slog.Info("circuit breaker reset", "name", cb.name)
}
