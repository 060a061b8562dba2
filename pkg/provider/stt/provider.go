// Package stt defines the Provider interface for speech-to-text backends.
//
// Recognition is batch-oriented: one recorded utterance in, one transcript
// out. Failures are reported through three sentinel errors so callers can
// choose a spoken re-prompt without inspecting provider-specific detail:
//
//   - [ErrNoSpeech]: the audio contained no detectable speech.
//   - [ErrUnintelligible]: speech was present but could not be recognised.
//   - [ErrServiceUnavailable]: the recognition backend could not be reached
//     or answered with an error.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
)

var (
	// ErrNoSpeech is returned when the audio holds only silence.
	ErrNoSpeech = errors.New("stt: no speech detected")

	// ErrUnintelligible is returned when speech was detected but no text
	// could be recognised.
	ErrUnintelligible = errors.New("stt: speech could not be understood")

	// ErrServiceUnavailable is returned when the backend is unreachable or fails.
	ErrServiceUnavailable = errors.New("stt: recognition service unavailable")
)

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe recognises the speech in audio and returns its text.
	// Errors wrap one of the package sentinels.
	Transcribe(ctx context.Context, audio Audio) (string, error)
}
