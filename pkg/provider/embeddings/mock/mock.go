// Package mock provides a test double for the embeddings.Provider interface.
//
// Either return one fixed vector for every text, or derive vectors per text
// with EmbedFunc so similarity-based code can be exercised deterministically:
//
//	p := &mock.Provider{
//	    EmbedFunc: func(text string) []float32 { ... },
//	    DimensionsValue: 3,
//	}
package mock

import (
	"context"
	"sync"

	"github.com/harjas-romana/calling-agent/pkg/provider/embeddings"
)

// Provider is a mock implementation of embeddings.Provider.
type Provider struct {
	mu sync.Mutex

	// EmbedResult is returned for every text when EmbedFunc is nil.
	EmbedResult []float32

	// EmbedFunc, if set, computes the vector for each text.
	EmbedFunc func(text string) []float32

	// EmbedErr, if non-nil, is returned by Embed and EmbedBatch.
	EmbedErr error

	// DimensionsValue is returned by Dimensions.
	DimensionsValue int

	// ModelIDValue is returned by ModelID.
	ModelIDValue string

	// EmbeddedTexts records every text embedded, across Embed and EmbedBatch.
	EmbeddedTexts []string
}

func (p *Provider) vector(text string) []float32 {
	p.EmbeddedTexts = append(p.EmbeddedTexts, text)
	if p.EmbedFunc != nil {
		return p.EmbedFunc(text)
	}
	return p.EmbedResult
}

// Embed records the call and returns the configured vector.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	return p.vector(text), nil
}

// EmbedBatch records the call and returns one configured vector per text.
func (p *Provider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vector(t)
	}
	return out, nil
}

// Dimensions returns DimensionsValue.
func (p *Provider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.DimensionsValue
}

// ModelID returns ModelIDValue.
func (p *Provider) ModelID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ModelIDValue
}

// Calls returns the number of texts embedded so far.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.EmbeddedTexts)
}

var _ embeddings.Provider = (*Provider)(nil)
