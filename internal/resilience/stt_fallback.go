package resilience

import (
	"context"
	"errors"

	"github.com/harjas-romana/calling-agent/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] over an ordered list of STT
// backends. Silence and unintelligible audio are properties of the
// recording, so those errors are returned directly instead of failing over.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred
// backend. cfg.Final is replaced.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	cfg.Final = isFinalSTT
	return &STTFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional backend.
func (f *STTFallback) AddFallback(name string, p stt.Provider) {
	f.group.AddFallback(name, p)
}

// Transcribe recognises audio with the first healthy backend. When every
// backend fails the error wraps [stt.ErrServiceUnavailable].
func (f *STTFallback) Transcribe(ctx context.Context, audio stt.Audio) (string, error) {
	text, err := ExecuteWithResult(f.group, func(p stt.Provider) (string, error) {
		return p.Transcribe(ctx, audio)
	})
	if err != nil && errors.Is(err, ErrAllFailed) && !errors.Is(err, stt.ErrServiceUnavailable) {
		return "", errors.Join(stt.ErrServiceUnavailable, err)
	}
	return text, err
}

func isFinalSTT(err error) bool {
	return errors.Is(err, stt.ErrNoSpeech) ||
		errors.Is(err, stt.ErrUnintelligible) ||
		errors.Is(err, context.Canceled)
}
