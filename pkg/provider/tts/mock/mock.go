// Package mock provides a test double for the tts.Provider interface.
//
//	p := &mock.Provider{Audio: []byte("mp3")}
//	audio, _ := p.Synthesize(ctx, "Hello", tts.Voice{ID: "v1"})
package mock

import (
	"context"
	"sync"

	"github.com/harjas-romana/calling-agent/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	Text  string
	Voice tts.Voice
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Audio is returned by Synthesize.
	Audio []byte

	// SynthesizeErr, if non-nil, is returned by Synthesize.
	SynthesizeErr error

	// Voices is returned by ListVoices.
	Voices []tts.Voice

	// ListVoicesErr, if non-nil, is returned by ListVoices.
	ListVoicesErr error

	// SynthesizeCalls records every Synthesize invocation in order.
	SynthesizeCalls []SynthesizeCall
}

// Synthesize records the call and returns Audio, SynthesizeErr.
func (p *Provider) Synthesize(_ context.Context, text string, voice tts.Voice) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Text: text, Voice: voice})
	if p.SynthesizeErr != nil {
		return nil, p.SynthesizeErr
	}
	return p.Audio, nil
}

// ListVoices returns Voices, ListVoicesErr.
func (p *Provider) ListVoices(_ context.Context) ([]tts.Voice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Voices, p.ListVoicesErr
}

// Texts returns the texts passed to Synthesize so far.
func (p *Provider) Texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.SynthesizeCalls))
	for i, c := range p.SynthesizeCalls {
		out[i] = c.Text
	}
	return out
}

var _ tts.Provider = (*Provider)(nil)
