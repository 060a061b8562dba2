// Package ollama embeds caller questions and knowledge entries with a local
// Ollama server's /api/embed endpoint.
//
// Retrieval models such as nomic-embed-text expect task prefixes: [Provider.Embed]
// is used for the caller's question and gets the query prefix, while
// [Provider.EmbedBatch] is used for knowledge entries and gets the document
// prefix.
//
//	p, err := ollama.New("", "") // nomic-embed-text on http://localhost:11434
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/harjas-romana/calling-agent/pkg/provider/embeddings"
)

const (
	// DefaultBaseURL is where a local Ollama listens.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is used when no model is configured.
	DefaultModel = "nomic-embed-text"

	// DefaultBatchSize caps the inputs of one /api/embed request.
	DefaultBatchSize = 64
)

var _ embeddings.Provider = (*Provider)(nil)

// ErrDimensionMismatch is returned when the server answers with vectors of
// a different length than the model's.
var ErrDimensionMismatch = errors.New("ollama: dimension mismatch")

// StatusError is a non-200 answer from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ollama: status %d", e.StatusCode)
	}
	return fmt.Sprintf("ollama: status %d: %s", e.StatusCode, e.Message)
}

// Provider implements [embeddings.Provider] against an Ollama server.
type Provider struct {
	endpoint  string
	model     string
	client    *http.Client
	batchSize int
	keepAlive string
	queryPfx  string
	docPfx    string

	mu   sync.Mutex
	dims int
}

// Option configures a [Provider].
type Option func(*Provider)

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.client.Timeout = d }
}

// WithDimensions sets the vector length for models the package does not
// know.
func WithDimensions(n int) Option {
	return func(p *Provider) { p.dims = n }
}

// WithBatchSize splits large knowledge bases into requests of at most n
// entries.
func WithBatchSize(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithKeepAlive asks the server to keep the model loaded for d between
// requests, e.g. "30m". Empty uses the server default.
func WithKeepAlive(d string) Option {
	return func(p *Provider) { p.keepAlive = d }
}

// WithPrefixes overrides the query and document task prefixes. Pass empty
// strings to send texts unchanged.
func WithPrefixes(query, document string) Option {
	return func(p *Provider) { p.queryPfx, p.docPfx = query, document }
}

// New returns a Provider for model on baseURL. Empty values select
// [DefaultModel] and [DefaultBaseURL].
func New(baseURL, model string, opts ...Option) (*Provider, error) {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	spec := lookupModel(model)
	p := &Provider{
		endpoint:  strings.TrimRight(baseURL, "/") + "/api/embed",
		model:     model,
		client:    &http.Client{},
		batchSize: DefaultBatchSize,
		queryPfx:  spec.query,
		docPfx:    spec.document,
		dims:      spec.dims,
	}
	for _, o := range opts {
		o(p)
	}
	if !strings.HasPrefix(p.endpoint, "http://") && !strings.HasPrefix(p.endpoint, "https://") {
		return nil, fmt.Errorf("ollama: base url %q must be http or https", baseURL)
	}
	return p, nil
}

// Embed embeds a caller question.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.embed(ctx, []string{p.queryPfx + text})
	if err != nil {
		return nil, fmt.Errorf("ollama: embed query: %w", err)
	}
	return vecs[0], nil
}

// EmbedBatch embeds knowledge entries, DefaultBatchSize (or the
// WithBatchSize value) per request. An empty texts returns nil.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.batchSize {
		chunk := texts[start:min(start+p.batchSize, len(texts))]
		inputs := make([]string, len(chunk))
		for i, t := range chunk {
			inputs[i] = p.docPfx + t
		}
		vecs, err := p.embed(ctx, inputs)
		if err != nil {
			return nil, fmt.Errorf("ollama: embed entries %d-%d: %w", start, start+len(chunk)-1, err)
		}
		out = append(out, vecs...)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// Dimensions returns the configured or known vector length, or the length
// of the first vector received.
func (p *Provider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dims
}

// ModelID returns the Ollama model name.
func (p *Provider) ModelID() string { return p.model }

type embedRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	KeepAlive string   `json:"keep_alive,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error"`
}

// embed posts one request and checks that every input got a vector of the
// expected length.
func (p *Provider) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: p.model, Input: inputs, KeepAlive: p.keepAlive})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var result embedResponse
	decodeErr := json.Unmarshal(raw, &result)
	if resp.StatusCode != http.StatusOK {
		msg := result.Error
		if decodeErr != nil {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	if len(result.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("got %d vectors for %d inputs", len(result.Embeddings), len(inputs))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dims == 0 {
		p.dims = len(result.Embeddings[0])
	}
	for i, v := range result.Embeddings {
		if len(v) != p.dims {
			return nil, fmt.Errorf("%w: vector %d has %d, want %d", ErrDimensionMismatch, i, len(v), p.dims)
		}
	}
	return result.Embeddings, nil
}

type modelSpec struct {
	dims            int
	query, document string
}

// lookupModel knows the vector length and retrieval prefixes of common
// embedding models.
func lookupModel(model string) modelSpec {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "nomic-embed-text"):
		return modelSpec{dims: 768, query: "search_query: ", document: "search_document: "}
	case strings.Contains(lower, "mxbai-embed-large"):
		return modelSpec{dims: 1024, query: "Represent this sentence for searching relevant passages: "}
	case strings.Contains(lower, "all-minilm"):
		return modelSpec{dims: 384}
	default:
		return modelSpec{}
	}
}
