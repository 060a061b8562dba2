package resilience

import (
	"context"
	"errors"

	"github.com/harjas-romana/calling-agent/pkg/provider/tts"
)

// TTSFallback implements [tts.Provider] over an ordered list of TTS
// backends, each behind its own breaker.
type TTSFallback struct {
	group *FallbackGroup[tts.Provider]
}

var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred backend.
func NewTTSFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *TTSFallback {
	if cfg.Final == nil {
		cfg.Final = isCanceled
	}
	return &TTSFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional backend.
func (f *TTSFallback) AddFallback(name string, p tts.Provider) {
	f.group.AddFallback(name, p)
}

// Synthesize renders text with the first healthy backend. The voice is passed
// unchanged; backends that do not know its ID use their default voice.
func (f *TTSFallback) Synthesize(ctx context.Context, text string, voice tts.Voice) ([]byte, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) ([]byte, error) {
		return p.Synthesize(ctx, text, voice)
	})
}

// ListVoices returns the voices of the first healthy backend.
func (f *TTSFallback) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) ([]tts.Voice, error) {
		return p.ListVoices(ctx)
	})
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
