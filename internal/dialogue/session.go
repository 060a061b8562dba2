package dialogue

import (
	"encoding/json"
	"maps"
	"strconv"
	"time"
)

// Data holds the slot values collected by a session. Values are strings so a
// session survives a JSON round trip unchanged; use the typed helpers for
// numbers and lists.
type Data map[string]string

// Clone returns an independent copy. Cloning nil yields an empty Data.
func (d Data) Clone() Data {
	if d == nil {
		return Data{}
	}
	return maps.Clone(d)
}

// Int parses the value at key as an integer.
func (d Data) Int(key string) (int, bool) {
	n, err := strconv.Atoi(d[key])
	return n, err == nil
}

// SetInt stores n at key.
func (d Data) SetInt(key string, n int) {
	d[key] = strconv.Itoa(n)
}

// List decodes the list stored at key. A missing or malformed value is an
// empty list.
func (d Data) List(key string) []string {
	var out []string
	if v, ok := d[key]; ok {
		_ = json.Unmarshal([]byte(v), &out)
	}
	return out
}

// SetList stores items at key.
func (d Data) SetList(key string, items []string) {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	d[key] = string(b)
}

// Append adds items to the list stored at key.
func (d Data) Append(key string, items ...string) {
	d.SetList(key, append(d.List(key), items...))
}

// Session is one in-progress multi-turn transaction. It is a value: the
// [Engine] returns a new Session on every turn and never mutates its input.
type Session struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Step      Step      `json:"step"`
	Data      Data      `json:"data"`
	Completed bool      `json:"completed"`
	StartedAt time.Time `json:"started_at"`
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	s.Data = s.Data.Clone()
	return s
}

// Active reports whether s is waiting for input at some step.
func (s Session) Active() bool {
	return s.Step.Valid() && !s.Completed
}
