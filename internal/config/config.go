// Package config provides the configuration schema, loader, hot-reload watcher
// and provider registry of the calling agent.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Scorer selects the similarity function used by knowledge retrieval.
type Scorer string

const (
	// ScorerJaccard compares word sets. It needs no provider.
	ScorerJaccard Scorer = "jaccard"

	// ScorerEmbedding compares embedding vectors from providers.embeddings.
	ScorerEmbedding Scorer = "embedding"
)

// IsValid reports whether s is a recognised scorer.
func (s Scorer) IsValid() bool {
	return s == ScorerJaccard || s == ScorerEmbedding
}

// StateBackend selects where conversation state lives between turns.
type StateBackend string

const (
	StateMemory StateBackend = "memory"
	StateRedis  StateBackend = "redis"
)

// IsValid reports whether b is a recognised state backend.
func (b StateBackend) IsValid() bool {
	return b == StateMemory || b == StateRedis
}

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr          = ":9090"
	DefaultDomain              = "restaurant"
	DefaultConversationMemory  = 5
	DefaultThreshold           = 0.1
	DefaultBackupDir           = "backups"
	DefaultTemperature         = 0.7
	DefaultCompletionTimeout   = 30 * time.Second
	DefaultStateTTL            = 30 * time.Minute
	DefaultEmbeddingDimensions = 1536
)

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Assistant  AssistantConfig  `yaml:"assistant"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Completion CompletionConfig `yaml:"completion"`
	State      StateConfig      `yaml:"state"`
	Memory     MemoryConfig     `yaml:"memory"`
	Transcript TranscriptConfig `yaml:"transcript"`
}

// ServerConfig holds the ops server and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address of the /healthz, /readyz and /metrics
	// server (e.g. ":9090"). "-" disables the server.
	ListenAddr string `yaml:"listen_addr"`

	LogLevel LogLevel `yaml:"log_level"`
}

// AssistantConfig selects the business the assistant speaks for and tunes
// the conversation.
type AssistantConfig struct {
	// Domain is "restaurant" or "travel".
	Domain string `yaml:"domain"`

	// ConversationMemory is the number of past turns sent to the language
	// model. History is kept at twice this length.
	ConversationMemory int `yaml:"conversation_memory"`

	// Threshold is the minimum retrieval score for a knowledge entry.
	Threshold float64 `yaml:"threshold"`

	Scorer Scorer `yaml:"scorer"`

	// KnowledgeFile optionally replaces the built-in knowledge base with a
	// JSON backup at startup.
	KnowledgeFile string `yaml:"knowledge_file"`

	// BackupDir receives knowledge backups.
	BackupDir string `yaml:"backup_dir"`

	// AudioDir receives synthesized replies. Empty disables writing audio.
	AudioDir string `yaml:"audio_dir"`

	Voice VoiceConfig `yaml:"voice"`
}

// VoiceConfig specifies the TTS voice of the assistant.
type VoiceConfig struct {
	// ID is the provider-specific voice identifier.
	ID string `yaml:"voice_id"`

	// Stability and SimilarityBoost are in [0, 1]. Zero selects the provider
	// default.
	Stability       float64 `yaml:"stability"`
	SimilarityBoost float64 `yaml:"similarity_boost"`
}

// ProvidersConfig declares which provider implementation to use for each
// stage. Each entry selects a named provider registered in the [Registry].
// The fallback lists are tried in order when the primary fails.
type ProvidersConfig struct {
	LLM          ProviderEntry   `yaml:"llm"`
	STT          ProviderEntry   `yaml:"stt"`
	STTFallbacks []ProviderEntry `yaml:"stt_fallbacks"`
	TTS          ProviderEntry   `yaml:"tts"`
	TTSFallbacks []ProviderEntry `yaml:"tts_fallbacks"`
	Embeddings   ProviderEntry   `yaml:"embeddings"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g. "openai",
	// "elevenlabs").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`

	// Options holds provider-specific values not covered by the standard
	// fields above.
	Options map[string]any `yaml:"options"`
}

// CompletionConfig tunes the language model requests.
type CompletionConfig struct {
	Temperature float64 `yaml:"temperature"`

	// MaxTokens overrides the domain default when positive.
	MaxTokens int `yaml:"max_tokens"`

	// Timeout bounds one request.
	Timeout time.Duration `yaml:"timeout"`

	// BreakerFailures is the number of consecutive failures that opens the
	// circuit breaker in front of the model. Zero uses the breaker default.
	BreakerFailures int `yaml:"breaker_failures"`

	// BreakerReset is how long an open breaker waits before probing.
	BreakerReset time.Duration `yaml:"breaker_reset"`
}

// StateConfig selects the conversation state backend.
type StateConfig struct {
	Backend StateBackend `yaml:"backend"`

	// RedisURL is a redis:// URL, required for the redis backend.
	RedisURL string `yaml:"redis_url"`

	// TTL expires idle conversations in Redis.
	TTL time.Duration `yaml:"ttl"`
}

// MemoryConfig holds the PostgreSQL persistence settings.
type MemoryConfig struct {
	// PostgresDSN enables the transaction ledger, transcripts and the
	// embedding cache. Empty keeps everything in memory.
	PostgresDSN string `yaml:"postgres_dsn"`

	// EmbeddingDimensions must match the model of providers.embeddings.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`
}

// TranscriptConfig controls correction of speech-to-text output.
type TranscriptConfig struct {
	// PhoneticCorrection rewrites misheard vocabulary terms (dish names,
	// the business name, countries) before routing.
	PhoneticCorrection bool `yaml:"phonetic_correction"`

	// PhoneticThreshold overrides the matcher threshold when positive.
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`
}
