package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Domains lists the assistant domains the binary ships with.
var Domains = []string{"restaurant", "travel"}

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "openrouter", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp"},
	"stt":        {"whisper", "deepgram"},
	"tts":        {"elevenlabs"},
	"embeddings": {"openai", "ollama"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. An empty document yields the default config.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero fields of cfg with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Assistant.Domain == "" {
		cfg.Assistant.Domain = DefaultDomain
	}
	if cfg.Assistant.ConversationMemory == 0 {
		cfg.Assistant.ConversationMemory = DefaultConversationMemory
	}
	if cfg.Assistant.Threshold == 0 {
		cfg.Assistant.Threshold = DefaultThreshold
	}
	if cfg.Assistant.Scorer == "" {
		cfg.Assistant.Scorer = ScorerJaccard
	}
	if cfg.Assistant.BackupDir == "" {
		cfg.Assistant.BackupDir = DefaultBackupDir
	}
	if cfg.Completion.Temperature == 0 {
		cfg.Completion.Temperature = DefaultTemperature
	}
	if cfg.Completion.Timeout == 0 {
		cfg.Completion.Timeout = DefaultCompletionTimeout
	}
	if cfg.State.Backend == "" {
		cfg.State.Backend = StateMemory
	}
	if cfg.State.TTL == 0 {
		cfg.State.TTL = DefaultStateTTL
	}
	if cfg.Memory.EmbeddingDimensions == 0 {
		cfg.Memory.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Assistant
	a := cfg.Assistant
	if a.Domain != "" && !slices.Contains(Domains, a.Domain) {
		errs = append(errs, fmt.Errorf("assistant.domain %q is invalid; valid values: %v", a.Domain, Domains))
	}
	if a.ConversationMemory < 0 {
		errs = append(errs, fmt.Errorf("assistant.conversation_memory %d must not be negative", a.ConversationMemory))
	}
	if a.Threshold < 0 || a.Threshold > 1 {
		errs = append(errs, fmt.Errorf("assistant.threshold %.2f is out of range [0, 1]", a.Threshold))
	}
	if a.Scorer != "" && !a.Scorer.IsValid() {
		errs = append(errs, fmt.Errorf("assistant.scorer %q is invalid; valid values: jaccard, embedding", a.Scorer))
	}
	if a.Scorer == ScorerEmbedding && cfg.Providers.Embeddings.Name == "" {
		errs = append(errs, errors.New("assistant.scorer embedding requires providers.embeddings"))
	}
	for name, v := range map[string]float64{"stability": a.Voice.Stability, "similarity_boost": a.Voice.SimilarityBoost} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("assistant.voice.%s %.2f is out of range [0, 1]", name, v))
		}
	}

	// Provider name validation: warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)
	for i, fb := range cfg.Providers.STTFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.stt_fallbacks[%d].name is required", i))
		}
		validateProviderName("stt", fb.Name)
	}
	for i, fb := range cfg.Providers.TTSFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.tts_fallbacks[%d].name is required", i))
		}
		validateProviderName("tts", fb.Name)
	}
	if cfg.Providers.STT.Name == "" && len(cfg.Providers.STTFallbacks) > 0 {
		errs = append(errs, errors.New("providers.stt_fallbacks requires providers.stt"))
	}
	if cfg.Providers.TTS.Name == "" && len(cfg.Providers.TTSFallbacks) > 0 {
		errs = append(errs, errors.New("providers.tts_fallbacks requires providers.tts"))
	}

	// Provider availability warnings
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; open questions will be answered with the fallback text")
	}
	if cfg.Providers.TTS.Name != "" && a.Voice.ID == "" {
		slog.Warn("providers.tts is configured but assistant.voice.voice_id is empty; the provider default voice is used")
	}

	// Completion
	c := cfg.Completion
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("completion.temperature %.2f is out of range [0, 2]", c.Temperature))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("completion.max_tokens %d must not be negative", c.MaxTokens))
	}
	if c.Timeout < 0 || c.BreakerReset < 0 || c.BreakerFailures < 0 {
		errs = append(errs, errors.New("completion timeouts and breaker settings must not be negative"))
	}

	// State
	if cfg.State.Backend != "" && !cfg.State.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("state.backend %q is invalid; valid values: memory, redis", cfg.State.Backend))
	}
	if cfg.State.Backend == StateRedis && cfg.State.RedisURL == "" {
		errs = append(errs, errors.New("state.redis_url is required when state.backend is redis"))
	}
	if cfg.State.TTL < 0 {
		errs = append(errs, fmt.Errorf("state.ttl %s must not be negative", cfg.State.TTL))
	}

	// Memory
	if cfg.Memory.EmbeddingDimensions < 0 {
		errs = append(errs, fmt.Errorf("memory.embedding_dimensions %d must not be negative", cfg.Memory.EmbeddingDimensions))
	}
	if a.Scorer == ScorerEmbedding && cfg.Memory.PostgresDSN == "" {
		slog.Warn("memory.postgres_dsn is empty; knowledge embeddings are recomputed after every restart")
	}

	// Transcript
	if t := cfg.Transcript.PhoneticThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("transcript.phonetic_threshold %.2f is out of range [0, 1]", t))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
