// Package mock provides a test double for the stt.Provider interface.
//
//	p := &mock.Provider{Text: "book a table"}
//	text, _ := p.Transcribe(ctx, audio)
package mock

import (
	"context"
	"sync"

	"github.com/harjas-romana/calling-agent/pkg/provider/stt"
)

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Text is returned by Transcribe when Err is nil.
	Text string

	// Err, if non-nil, is returned by Transcribe.
	Err error

	// Calls records the audio passed to every Transcribe invocation.
	Calls []stt.Audio
}

// Transcribe records the call and returns Text, Err.
func (p *Provider) Transcribe(_ context.Context, audio stt.Audio) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, audio)
	if p.Err != nil {
		return "", p.Err
	}
	return p.Text, nil
}

// CallCount returns the number of Transcribe invocations.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

var _ stt.Provider = (*Provider)(nil)
