package router

import (
	"context"
	"slices"
	"sync"

	"github.com/harjas-romana/calling-agent/internal/completion"
	"github.com/harjas-romana/calling-agent/internal/dialogue"
)

// State is everything the router remembers about one conversation between
// turns.
type State struct {
	// Session is the in-progress transaction, nil when none is active.
	Session *dialogue.Session `json:"session,omitempty"`

	// History is the recent conversation, oldest first.
	History []completion.Turn `json:"history"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{History: slices.Clone(s.History)}
	if s.Session != nil {
		sess := s.Session.Clone()
		out.Session = &sess
	}
	return out
}

// StateStore persists conversation state. Load of an unknown conversation
// returns the zero State and no error.
//
// Implementations must be safe for concurrent use.
type StateStore interface {
	Load(ctx context.Context, conversationID string) (State, error)
	Save(ctx context.Context, conversationID string, st State) error
	Delete(ctx context.Context, conversationID string) error
}

var _ StateStore = (*MemStore)(nil)

// MemStore keeps conversation state in process memory. It is the default
// [StateStore].
type MemStore struct {
	mu     sync.Mutex
	states map[string]State
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{states: make(map[string]State)}
}

// Load implements [StateStore].
func (m *MemStore) Load(_ context.Context, conversationID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[conversationID].Clone(), nil
}

// Save implements [StateStore].
func (m *MemStore) Save(_ context.Context, conversationID string, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[conversationID] = st.Clone()
	return nil
}

// Delete implements [StateStore].
func (m *MemStore) Delete(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, conversationID)
	return nil
}

// Len returns the number of stored conversations.
func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}
