// Package deepgram provides an STT provider backed by Deepgram's
// pre-recorded audio endpoint (POST /v1/listen).
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harjas-romana/calling-agent/pkg/provider/stt"
)

const (
	defaultBaseURL  = "https://api.deepgram.com"
	defaultModel    = "nova-2"
	defaultLanguage = "en"
	defaultTimeout  = 15 * time.Second
)

var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model (e.g. "nova-2", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the language code for recognition (e.g. "en", "de").
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithKeywords boosts recognition of domain vocabulary such as menu items or
// destination names.
func WithKeywords(keywords ...string) Option {
	return func(p *Provider) {
		p.keywords = append(p.keywords, keywords...)
	}
}

// WithBaseURL overrides the API base URL. Used for proxies and tests.
func WithBaseURL(base string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(base, "/")
	}
}

// Provider implements stt.Provider backed by Deepgram.
type Provider struct {
	apiKey     string
	baseURL    string
	model      string
	language   string
	keywords   []string
	httpClient *http.Client
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, audio stt.Audio) (string, error) {
	if len(audio.PCM) == 0 {
		return "", stt.ErrNoSpeech
	}
	if audio.SampleRate <= 0 {
		audio.SampleRate = 16000
	}
	if audio.Channels <= 0 {
		audio.Channels = 1
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.listenURL(), bytes.NewReader(stt.EncodeWAV(audio)))
	if err != nil {
		return "", fmt.Errorf("deepgram: create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram: %w: %v", stt.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("deepgram: %w: HTTP %d: %s", stt.ErrServiceUnavailable, resp.StatusCode, body)
	}

	var lr listenResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", fmt.Errorf("deepgram: %w: decode: %v", stt.ErrServiceUnavailable, err)
	}
	if len(lr.Results.Channels) == 0 || len(lr.Results.Channels[0].Alternatives) == 0 {
		return "", stt.ErrNoSpeech
	}
	text := strings.TrimSpace(lr.Results.Channels[0].Alternatives[0].Transcript)
	if text == "" {
		return "", stt.ErrUnintelligible
	}
	return text, nil
}

func (p *Provider) listenURL() string {
	q := url.Values{}
	q.Set("model", p.model)
	q.Set("language", p.language)
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	for _, kw := range p.keywords {
		q.Add("keywords", kw)
	}
	return p.baseURL + "/v1/listen?" + q.Encode()
}
