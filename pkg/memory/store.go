// Package memory defines the persistence contracts used by the calling agent.
//
// Three stores exist, each optional:
//
//   - [Ledger]: completed bookings, reservations and orders.
//   - [TranscriptStore]: per-conversation turn log.
//   - [VectorCache]: embedding vectors keyed by model and text, so static
//     knowledge entries are embedded only once.
//
// In-memory implementations ([MemLedger], [MemTranscripts], [MemVectorCache])
// are the defaults. The postgres sub-package provides durable variants.
//
// Every implementation must be safe for concurrent use.
package memory

import (
	"context"
	"errors"
)

// ErrNotFound is returned by [VectorCache.Get] when no vector is cached for a key.
var ErrNotFound = errors.New("memory: not found")

// Ledger records completed transactions.
type Ledger interface {
	// Record persists tx. A zero CreatedAt is filled in by the implementation.
	Record(ctx context.Context, tx Transaction) error

	// List returns the transactions recorded for conversationID, oldest first.
	// An empty conversationID lists every transaction.
	List(ctx context.Context, conversationID string) ([]Transaction, error)
}

// TranscriptStore is an append-only log of conversation turns.
type TranscriptStore interface {
	// Append adds entry to the log of entry.ConversationID.
	Append(ctx context.Context, entry TranscriptEntry) error

	// Recent returns up to limit of the newest entries for conversationID in
	// chronological order. limit <= 0 returns all entries.
	Recent(ctx context.Context, conversationID string, limit int) ([]TranscriptEntry, error)
}

// VectorCache stores embedding vectors.
type VectorCache interface {
	// Get returns the cached vector for (model, text) or [ErrNotFound].
	Get(ctx context.Context, model, text string) ([]float32, error)

	// Put stores vec for (model, text), replacing any previous value.
	Put(ctx context.Context, model, text string, vec []float32) error
}
