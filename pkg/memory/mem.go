package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	_ Ledger          = (*MemLedger)(nil)
	_ TranscriptStore = (*MemTranscripts)(nil)
	_ VectorCache     = (*MemVectorCache)(nil)
)

// MemLedger is an in-process [Ledger]. The zero value is ready to use.
type MemLedger struct {
	mu  sync.Mutex
	txs []Transaction
}

// Record implements [Ledger].
func (l *MemLedger) Record(_ context.Context, tx Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	tx.Data = maps.Clone(tx.Data)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.txs = append(l.txs, tx)
	return nil
}

// List implements [Ledger].
func (l *MemLedger) List(_ context.Context, conversationID string) ([]Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Transaction, 0, len(l.txs))
	for _, tx := range l.txs {
		if conversationID != "" && tx.ConversationID != conversationID {
			continue
		}
		tx.Data = maps.Clone(tx.Data)
		out = append(out, tx)
	}
	return out, nil
}

// MemTranscripts is an in-process [TranscriptStore]. The zero value is ready
// to use.
type MemTranscripts struct {
	mu      sync.Mutex
	entries map[string][]TranscriptEntry
}

// Append implements [TranscriptStore].
func (s *MemTranscripts) Append(_ context.Context, entry TranscriptEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = make(map[string][]TranscriptEntry)
	}
	s.entries[entry.ConversationID] = append(s.entries[entry.ConversationID], entry)
	return nil
}

// Recent implements [TranscriptStore].
func (s *MemTranscripts) Recent(_ context.Context, conversationID string, limit int) ([]TranscriptEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.entries[conversationID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return slices.Clone(all), nil
}

// MemVectorCache is an in-process [VectorCache]. The zero value is ready to use.
type MemVectorCache struct {
	mu   sync.RWMutex
	vecs map[string][]float32
}

// Get implements [VectorCache].
func (c *MemVectorCache) Get(_ context.Context, model, text string) ([]float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vecs[VectorKey(model, text)]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

// Put implements [VectorCache].
func (c *MemVectorCache) Put(_ context.Context, model, text string, vec []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vecs == nil {
		c.vecs = make(map[string][]float32)
	}
	c.vecs[VectorKey(model, text)] = slices.Clone(vec)
	return nil
}

// Len returns the number of cached vectors.
func (c *MemVectorCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vecs)
}
