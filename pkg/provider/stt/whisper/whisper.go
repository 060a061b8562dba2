// Package whisper provides an STT provider backed by a running
// whisper.cpp server (the whisper-server binary), which exposes
// POST /inference accepting a multipart WAV upload.
//
//	p, err := whisper.New("http://localhost:8080", whisper.WithLanguage("en"))
//	text, err := p.Transcribe(ctx, audio)
package whisper

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/harjas-romana/calling-agent/pkg/provider/stt"
)

const (
	// defaultRMSThreshold is the root-mean-square energy (in 16-bit PCM units)
	// below which a whole utterance counts as silence.
	defaultRMSThreshold = 300.0

	defaultLanguage = "en"
	defaultTimeout  = 30 * time.Second
)

var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the server. When empty the
// server uses whichever model it was started with.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the language code sent to the server. Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithRMSThreshold overrides the silence gate.
func WithRMSThreshold(rms float64) Option {
	return func(p *Provider) {
		p.rmsThreshold = rms
	}
}

// WithTimeout sets the HTTP timeout for one inference request.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// Provider implements stt.Provider backed by a whisper.cpp HTTP server.
type Provider struct {
	serverURL    string
	model        string
	language     string
	rmsThreshold float64
	httpClient   *http.Client
}

// New creates a Provider talking to the whisper.cpp server at serverURL
// (e.g. "http://localhost:8080").
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:    strings.TrimRight(serverURL, "/"),
		language:     defaultLanguage,
		rmsThreshold: defaultRMSThreshold,
		httpClient:   &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe implements stt.Provider. Audio whose energy never rises above the
// silence gate is rejected with stt.ErrNoSpeech without contacting the server.
func (p *Provider) Transcribe(ctx context.Context, audio stt.Audio) (string, error) {
	if len(audio.PCM) < 2 || computeRMS(audio.PCM) < p.rmsThreshold {
		return "", stt.ErrNoSpeech
	}
	if audio.SampleRate <= 0 {
		audio.SampleRate = 16000
	}
	if audio.Channels <= 0 {
		audio.Channels = 1
	}

	text, err := p.infer(ctx, stt.EncodeWAV(audio))
	if err != nil {
		return "", fmt.Errorf("whisper: %w: %v", stt.ErrServiceUnavailable, err)
	}
	text = cleanTranscript(text)
	if text == "" {
		return "", stt.ErrUnintelligible
	}
	return text, nil
}

// infer POSTs wav to the /inference endpoint as multipart/form-data.
func (p *Provider) infer(ctx context.Context, wav []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("write wav data: %w", err)
	}
	fields := map[string]string{
		"language":        p.language,
		"model":           p.model,
		"response_format": "json",
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return "", fmt.Errorf("write %s field: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("parse JSON response: %w", err)
	}
	return result.Text, nil
}

// cleanTranscript trims whitespace and drops whisper's non-speech markers
// such as "[BLANK_AUDIO]" or "(music)".
func cleanTranscript(s string) string {
	s = strings.TrimSpace(s)
	if (strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")) ||
		(strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")) {
		return ""
	}
	return s
}

// computeRMS returns the root-mean-square energy of a 16-bit signed
// little-endian PCM buffer, in sample units (0 to 32767).
func computeRMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2])))
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
