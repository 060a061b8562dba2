package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; everything else
// needs a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ThresholdChanged bool
	NewThreshold     float64

	// CompletionChanged is set when temperature, max tokens, timeout or the
	// conversation memory changed.
	CompletionChanged bool

	// RestartRequired lists the sections whose changes are ignored until the
	// next start.
	RestartRequired []string
}

// Changed reports whether any hot-reloadable field changed.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.ThresholdChanged || d.CompletionChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Assistant.Threshold != new.Assistant.Threshold {
		d.ThresholdChanged = true
		d.NewThreshold = new.Assistant.Threshold
	}

	if old.Completion.Temperature != new.Completion.Temperature ||
		old.Completion.MaxTokens != new.Completion.MaxTokens ||
		old.Completion.Timeout != new.Completion.Timeout ||
		old.Assistant.ConversationMemory != new.Assistant.ConversationMemory {
		d.CompletionChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if old.Assistant.Domain != new.Assistant.Domain || old.Assistant.Scorer != new.Assistant.Scorer {
		d.RestartRequired = append(d.RestartRequired, "assistant")
	}
	if !providersEqual(old.Providers, new.Providers) {
		d.RestartRequired = append(d.RestartRequired, "providers")
	}
	if old.State != new.State {
		d.RestartRequired = append(d.RestartRequired, "state")
	}
	if old.Memory != new.Memory {
		d.RestartRequired = append(d.RestartRequired, "memory")
	}

	return d
}

// providersEqual compares the provider selections by name, model and
// endpoint. Options maps are not compared.
func providersEqual(a, b ProvidersConfig) bool {
	same := func(x, y ProviderEntry) bool {
		return x.Name == y.Name && x.Model == y.Model && x.BaseURL == y.BaseURL && x.APIKey == y.APIKey
	}
	sameList := func(x, y []ProviderEntry) bool {
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !same(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return same(a.LLM, b.LLM) && same(a.STT, b.STT) && same(a.TTS, b.TTS) &&
		same(a.Embeddings, b.Embeddings) &&
		sameList(a.STTFallbacks, b.STTFallbacks) && sameList(a.TTSFallbacks, b.TTSFallbacks)
}
