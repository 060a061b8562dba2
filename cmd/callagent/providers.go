package main

import (
	"errors"
	"fmt"
	"log/slog"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/harjas-romana/calling-agent/internal/app"
	"github.com/harjas-romana/calling-agent/internal/config"
	"github.com/harjas-romana/calling-agent/internal/resilience"
	"github.com/harjas-romana/calling-agent/pkg/provider/embeddings"
	ollamaembed "github.com/harjas-romana/calling-agent/pkg/provider/embeddings/ollama"
	oaembed "github.com/harjas-romana/calling-agent/pkg/provider/embeddings/openai"
	"github.com/harjas-romana/calling-agent/pkg/provider/llm"
	"github.com/harjas-romana/calling-agent/pkg/provider/llm/anyllm"
	oallm "github.com/harjas-romana/calling-agent/pkg/provider/llm/openai"
	"github.com/harjas-romana/calling-agent/pkg/provider/stt"
	"github.com/harjas-romana/calling-agent/pkg/provider/stt/deepgram"
	"github.com/harjas-romana/calling-agent/pkg/provider/stt/whisper"
	"github.com/harjas-romana/calling-agent/pkg/provider/tts"
	"github.com/harjas-romana/calling-agent/pkg/provider/tts/elevenlabs"
)

// openRouterURL is the OpenAI-compatible endpoint of OpenRouter.
const openRouterURL = "https://openrouter.ai/api/v1"

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		return oallm.New(entry.APIKey, entry.Model, openAIOptions(entry)...)
	})

	// OpenRouter speaks the OpenAI chat API on its own base URL.
	reg.RegisterLLM("openrouter", func(entry config.ProviderEntry) (llm.Provider, error) {
		if entry.BaseURL == "" {
			entry.BaseURL = openRouterURL
		}
		opts := openAIOptions(entry)
		if site := optString(entry.Options, "site_url"); site != "" {
			opts = append(opts, oallm.WithHeader("HTTP-Referer", site))
		}
		if title := optString(entry.Options, "site_name"); title != "" {
			opts = append(opts, oallm.WithHeader("X-Title", title))
		}
		return oallm.New(entry.APIKey, entry.Model, opts...)
	})

	// anthropic, gemini, deepseek, mistral and groq share the same pattern:
	// optional APIKey + optional BaseURL.
	for _, providerName := range []string{"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp"} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if rms, ok := entry.Options["rms_threshold"].(float64); ok {
			opts = append(opts, whisper.WithRMSThreshold(rms))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		if kw := optStrings(entry.Options, "keywords"); len(kw) > 0 {
			opts = append(opts, deepgram.WithKeywords(kw...))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithBaseURL(entry.BaseURL))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if outputFmt := optString(entry.Options, "output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	// ── Embeddings ────────────────────────────────────────────────────────────

	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterEmbeddings("ollama", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		opts := []ollamaembed.Option{ollamaembed.WithKeepAlive(optString(entry.Options, "keep_alive"))}
		if n, ok := entry.Options["batch_size"].(int); ok {
			opts = append(opts, ollamaembed.WithBatchSize(n))
		}
		return ollamaembed.New(entry.BaseURL, entry.Model, opts...)
	})

	for kind, names := range reg.Names() {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

func openAIOptions(entry config.ProviderEntry) []oallm.Option {
	var opts []oallm.Option
	if entry.BaseURL != "" {
		opts = append(opts, oallm.WithBaseURL(entry.BaseURL))
	}
	if org := optString(entry.Options, "organization"); org != "" {
		opts = append(opts, oallm.WithOrganization(org))
	}
	return opts
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
// STT and TTS fallbacks are chained behind the primary with per-backend
// circuit breakers.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}
	breaker := resilience.CircuitBreakerConfig{
		MaxFailures:  cfg.Completion.BreakerFailures,
		ResetTimeout: cfg.Completion.BreakerReset,
	}

	llmP, err := create("llm", cfg.Providers.LLM, reg.CreateLLM)
	if err != nil {
		return nil, err
	}
	ps.LLM = llmP

	embP, err := create("embeddings", cfg.Providers.Embeddings, reg.CreateEmbeddings)
	if err != nil {
		return nil, err
	}
	ps.Embeddings = embP

	sttP, err := create("stt", cfg.Providers.STT, reg.CreateSTT)
	if err != nil {
		return nil, err
	}
	if sttP != nil {
		ps.STT = sttP
		if len(cfg.Providers.STTFallbacks) > 0 {
			group := resilience.NewSTTFallback(sttP, cfg.Providers.STT.Name, resilience.FallbackConfig{CircuitBreaker: breaker})
			for _, entry := range cfg.Providers.STTFallbacks {
				fb, err := create("stt", entry, reg.CreateSTT)
				if err != nil {
					return nil, err
				}
				if fb != nil {
					group.AddFallback(entry.Name, fb)
				}
			}
			ps.STT = group
		}
	}

	ttsP, err := create("tts", cfg.Providers.TTS, reg.CreateTTS)
	if err != nil {
		return nil, err
	}
	if ttsP != nil {
		ps.TTS = ttsP
		if len(cfg.Providers.TTSFallbacks) > 0 {
			group := resilience.NewTTSFallback(ttsP, cfg.Providers.TTS.Name, resilience.FallbackConfig{CircuitBreaker: breaker})
			for _, entry := range cfg.Providers.TTSFallbacks {
				fb, err := create("tts", entry, reg.CreateTTS)
				if err != nil {
					return nil, err
				}
				if fb != nil {
					group.AddFallback(entry.Name, fb)
				}
			}
			ps.TTS = group
		}
	}

	return ps, nil
}

// create builds one provider. An empty name or an unregistered provider
// yields the zero value.
func create[T any](kind string, entry config.ProviderEntry, factory func(config.ProviderEntry) (T, error)) (T, error) {
	var zero T
	if entry.Name == "" {
		return zero, nil
	}
	p, err := factory(entry)
	if errors.Is(err, config.ErrProviderNotRegistered) {
		slog.Warn("provider not available, skipping", "kind", kind, "name", entry.Name)
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("create %s provider %q: %w", kind, entry.Name, err)
	}
	slog.Info("provider created", "kind", kind, "name", entry.Name)
	return p, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return s
}

// optStrings extracts a string list from a provider Options map.
func optStrings(opts map[string]any, key string) []string {
	raw, _ := opts[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
