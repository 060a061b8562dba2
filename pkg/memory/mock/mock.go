// Package mock provides test doubles for the memory interfaces.
//
// Each mock records every method call and exposes exported fields that
// control what it returns. All mocks are safe for concurrent use.
//
//	ledger := &mock.Ledger{}
//	// inject ledger into the system under test …
//	if got := ledger.CallCount("Record"); got != 1 {
//	    t.Errorf("Record calls = %d, want 1", got)
//	}
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/harjas-romana/calling-agent/pkg/memory"
)

var (
	_ memory.Ledger          = (*Ledger)(nil)
	_ memory.TranscriptStore = (*TranscriptStore)(nil)
	_ memory.VectorCache     = (*VectorCache)(nil)
)

// Call records the name and arguments of a single method invocation.
type Call struct {
	Method string

	// Args holds the non-context arguments, in order.
	Args []any
}

type recorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *recorder) record(method string, args ...any) {
	r.calls = append(r.calls, Call{Method: method, Args: args})
}

// Calls returns a copy of all recorded method invocations.
func (r *recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// CallCount returns how many times the named method was invoked.
func (r *recorder) CallCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears all recorded calls.
func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Ledger is a configurable test double for [memory.Ledger].
type Ledger struct {
	recorder

	// RecordErr is returned by Record when non-nil. The transaction is not
	// stored in that case.
	RecordErr error

	// ListErr is returned by List when non-nil.
	ListErr error

	// Recorded holds every successfully recorded transaction.
	Recorded []memory.Transaction
}

// Record implements [memory.Ledger].
func (m *Ledger) Record(_ context.Context, tx memory.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Record", tx)
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.Recorded = append(m.Recorded, tx)
	return nil
}

// List implements [memory.Ledger]. It filters Recorded by conversationID.
func (m *Ledger) List(_ context.Context, conversationID string) ([]memory.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("List", conversationID)
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := []memory.Transaction{}
	for _, tx := range m.Recorded {
		if conversationID == "" || tx.ConversationID == conversationID {
			out = append(out, tx)
		}
	}
	return out, nil
}

// Transactions returns a copy of Recorded.
func (m *Ledger) Transactions() []memory.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Recorded)
}

// TranscriptStore is a configurable test double for [memory.TranscriptStore].
type TranscriptStore struct {
	recorder

	AppendErr error
	RecentErr error

	// RecentResult is returned by Recent. When nil, Recent returns the
	// appended entries for the conversation.
	RecentResult []memory.TranscriptEntry

	entries []memory.TranscriptEntry
}

// Append implements [memory.TranscriptStore].
func (m *TranscriptStore) Append(_ context.Context, entry memory.TranscriptEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Append", entry)
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

// Recent implements [memory.TranscriptStore].
func (m *TranscriptStore) Recent(_ context.Context, conversationID string, limit int) ([]memory.TranscriptEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Recent", conversationID, limit)
	if m.RecentErr != nil {
		return nil, m.RecentErr
	}
	if m.RecentResult != nil {
		return slices.Clone(m.RecentResult), nil
	}
	var out []memory.TranscriptEntry
	for _, e := range m.entries {
		if e.ConversationID == conversationID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Entries returns a copy of every appended entry.
func (m *TranscriptStore) Entries() []memory.TranscriptEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries)
}

// VectorCache is a configurable test double for [memory.VectorCache].
type VectorCache struct {
	recorder

	GetErr error
	PutErr error

	vecs map[string][]float32
}

// Get implements [memory.VectorCache].
func (m *VectorCache) Get(_ context.Context, model, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Get", model, text)
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	v, ok := m.vecs[memory.VectorKey(model, text)]
	if !ok {
		return nil, memory.ErrNotFound
	}
	return slices.Clone(v), nil
}

// Put implements [memory.VectorCache].
func (m *VectorCache) Put(_ context.Context, model, text string, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Put", model, text, vec)
	if m.PutErr != nil {
		return m.PutErr
	}
	if m.vecs == nil {
		m.vecs = make(map[string][]float32)
	}
	m.vecs[memory.VectorKey(model, text)] = slices.Clone(vec)
	return nil
}
