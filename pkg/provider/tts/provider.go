// Package tts defines the Provider interface for text-to-speech backends.
//
// The assistant treats synthesis as an opaque side effect: a reply text goes
// in, encoded audio bytes (MP3, PCM, ... as configured on the provider) come
// out. Callers must tolerate a nil result, since a failed synthesis never
// blocks the textual reply.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize converts text to audio using voice and returns the complete
	// encoded audio. Empty text returns an error.
	Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error)

	// ListVoices returns the voices available from this provider.
	ListVoices(ctx context.Context) ([]Voice, error)
}
