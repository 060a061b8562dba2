package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry of a [FallbackGroup] failed or was
// skipped because its breaker was open.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures a [FallbackGroup].
type FallbackConfig struct {
	// CircuitBreaker is the template for each entry's breaker. Name is
	// overwritten with the entry name; IsFailure is derived from Final.
	CircuitBreaker CircuitBreakerConfig

	// Final reports errors that describe the request rather than the backend
	// (silence in a recording, a canceled context). They are returned at once
	// without trying further entries and without counting against the
	// breaker. Nil treats every error as a backend failure.
	Final func(error) bool
}

type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup holds a primary provider and ordered fallbacks of the same
// type. Each call walks the entries in order and stops at the first success.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates a group whose first entry is primary.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends an entry tried after all earlier ones.
func (fg *FallbackGroup[T]) AddFallback(name string, value T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	if final := fg.cfg.Final; final != nil {
		cbCfg.IsFailure = func(err error) bool { return !final(err) }
	}
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Names returns the entry names in try order.
func (fg *FallbackGroup[T]) Names() []string {
	out := make([]string, len(fg.entries))
	for i, e := range fg.entries {
		out[i] = e.name
	}
	return out
}

// Primary returns the first entry's value.
func (fg *FallbackGroup[T]) Primary() T {
	return fg.entries[0].value
}

// Execute runs fn against each entry until one succeeds.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult runs fn against each entry of fg until one succeeds and
// returns its result. A final error (see [FallbackConfig.Final]) is returned
// unwrapped. Otherwise, when every entry fails, the error wraps
// [ErrAllFailed] and the last failure.
func ExecuteWithResult[T, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		zero    R
		lastErr error
	)
	for i := range fg.entries {
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		if fg.cfg.Final != nil && fg.cfg.Final(err) {
			return zero, err
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider, circuit open", "provider", entry.name)
		} else {
			slog.Warn("provider failed, trying next", "provider", entry.name, "err", err)
		}
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}
