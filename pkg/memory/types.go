package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Transaction is a completed unit of business: a table reservation, a food
// order, a flight booking or a trip consultation.
type Transaction struct {
	// ID is a unique identifier. Implementations generate one when empty.
	ID string

	// ConversationID is the conversation that produced the transaction.
	ConversationID string

	// Domain names the assistant, e.g. "restaurant" or "travel".
	Domain string

	// Kind is the session kind, e.g. "reservation" or "booking".
	Kind string

	// Reference is a customer-facing reference such as a booking number.
	// It may be empty.
	Reference string

	// Data holds the collected slot values.
	Data map[string]string

	// CreatedAt is when the transaction was recorded.
	CreatedAt time.Time
}

// Speaker values for [TranscriptEntry.Speaker].
const (
	SpeakerUser      = "user"
	SpeakerAssistant = "assistant"
)

// TranscriptEntry is one utterance in a conversation.
type TranscriptEntry struct {
	ConversationID string
	Speaker        string
	Text           string

	// RawText is the text before transcript correction. Empty when no
	// correction was applied.
	RawText string

	// Intent is the intent that handled the turn, if known.
	Intent    string
	Timestamp time.Time
}

// VectorKey returns the hex SHA-256 digest identifying (model, text) in a
// [VectorCache].
func VectorKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
