package tts

// Voice describes a synthesis voice and its tuning.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which TTS provider this voice belongs to.
	Provider string

	// Stability and SimilarityBoost tune expressiveness (0.0 to 1.0). Zero
	// values select the provider defaults.
	Stability       float64
	SimilarityBoost float64

	// Metadata holds provider-specific attributes (gender, accent, ...).
	Metadata map[string]string
}
