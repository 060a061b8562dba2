// Package elevenlabs provides an ElevenLabs-backed TTS provider using the
// ElevenLabs stream-input WebSocket API.
package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"

	"github.com/harjas-romana/calling-agent/pkg/provider/tts"
)

const (
	defaultWSBase    = "wss://api.elevenlabs.io"
	defaultHTTPBase  = "https://api.elevenlabs.io"
	defaultModel     = "eleven_flash_v2_5"
	defaultOutputFmt = "mp3_44100_128"

	defaultStability       = 0.5
	defaultSimilarityBoost = 0.75
)

var _ tts.Provider = (*Provider)(nil)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithOutputFormat sets the audio output format (e.g. "mp3_44100_128", "pcm_16000").
func WithOutputFormat(format string) Option {
	return func(p *Provider) {
		p.outputFormat = format
	}
}

// WithBaseURL points both the WebSocket and REST endpoints at base
// (an http:// or https:// URL). Used for proxies and tests.
func WithBaseURL(base string) Option {
	return func(p *Provider) {
		base = strings.TrimRight(base, "/")
		p.httpBase = base
		p.wsBase = "ws" + strings.TrimPrefix(base, "http")
	}
}

// Provider implements tts.Provider backed by ElevenLabs.
type Provider struct {
	apiKey       string
	model        string
	outputFormat string
	wsBase       string
	httpBase     string
	httpClient   *http.Client
}

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:       apiKey,
		model:        defaultModel,
		outputFormat: defaultOutputFmt,
		wsBase:       defaultWSBase,
		httpBase:     defaultHTTPBase,
		httpClient:   &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// textMessage is sent for the opening handshake, each text fragment and the
// closing flush (Text == "").
type textMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key,omitempty"`
}

type audioResponse struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Synthesize opens a stream-input session, sends text in one fragment,
// flushes and collects every audio chunk until the server marks the stream
// final or closes the connection.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.Voice) ([]byte, error) {
	if voice.ID == "" {
		return nil, errors.New("elevenlabs: voice ID must not be empty")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("elevenlabs: text must not be empty")
	}

	conn, _, err := websocket.Dial(ctx, p.streamURL(voice.ID), nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")
	conn.SetReadLimit(4 << 20)

	vs := &voiceSettings{Stability: defaultStability, SimilarityBoost: defaultSimilarityBoost}
	if voice.Stability > 0 {
		vs.Stability = voice.Stability
	}
	if voice.SimilarityBoost > 0 {
		vs.SimilarityBoost = voice.SimilarityBoost
	}

	// ElevenLabs requires a single space as the first text value.
	msgs := []textMessage{
		{Text: " ", VoiceSettings: vs, XiAPIKey: p.apiKey},
		{Text: ensureTrailingSpace(text)},
		{Text: ""},
	}
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("elevenlabs: encode message: %w", err)
		}
		if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
			return nil, fmt.Errorf("elevenlabs: write: %w", err)
		}
	}

	var audio []byte
	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			// A server-side close after audio arrived ends the stream.
			if len(audio) > 0 && ctx.Err() == nil {
				return audio, nil
			}
			return nil, fmt.Errorf("elevenlabs: read: %w", err)
		}
		var resp audioResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			continue
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("elevenlabs: server error: %s", resp.Error)
		}
		if resp.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err != nil {
				return nil, fmt.Errorf("elevenlabs: decode audio: %w", err)
			}
			audio = append(audio, chunk...)
		}
		if resp.IsFinal {
			return audio, nil
		}
	}
}

type voicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

type elevenLabsVoice struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// ListVoices returns all voices available for the configured API key.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.httpBase+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: list voices: unexpected status %d", resp.StatusCode)
	}

	var vr voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices decode: %w", err)
	}
	return toVoices(vr), nil
}

func toVoices(vr voicesResponse) []tts.Voice {
	voices := make([]tts.Voice, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		meta := make(map[string]string, len(v.Labels)+1)
		for k, val := range v.Labels {
			meta[k] = val
		}
		if v.Category != "" {
			meta["category"] = v.Category
		}
		voices = append(voices, tts.Voice{
			ID:       v.VoiceID,
			Name:     v.Name,
			Provider: "elevenlabs",
			Metadata: meta,
		})
	}
	return voices
}

func (p *Provider) streamURL(voiceID string) string {
	q := url.Values{}
	q.Set("model_id", p.model)
	q.Set("output_format", p.outputFormat)
	return fmt.Sprintf("%s/v1/text-to-speech/%s/stream-input?%s", p.wsBase, url.PathEscape(voiceID), q.Encode())
}

func ensureTrailingSpace(s string) string {
	if strings.HasSuffix(s, " ") {
		return s
	}
	return s + " "
}
