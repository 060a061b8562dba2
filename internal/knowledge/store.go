// Package knowledge holds the assistant's business facts: a nested tree of
// mappings, lists and scalars addressed by slash-separated paths such as
// "restaurant_info/hours/monday".
//
// The tree is shared by the retriever and the dialogue handlers and may be
// updated at runtime. All values handed out by [Store] are deep copies, so
// callers can never mutate the store except through [Store.Update].
package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// LastUpdatedKey is the root key stamped on every successful update.
const LastUpdatedKey = "last_updated"

var (
	// ErrInvalidPath is returned when a path contains an empty segment.
	ErrInvalidPath = errors.New("knowledge: invalid path")

	// ErrNotMapping is returned when a root update is given a non-mapping value.
	ErrNotMapping = errors.New("knowledge: root value must be a mapping")

	// ErrInvalidBackup is returned by [Store.Restore] for files that do not
	// decode to a mapping carrying the store's required key.
	ErrInvalidBackup = errors.New("knowledge: invalid backup")
)

// Option configures a [Store].
type Option func(*Store)

// WithClock overrides the clock used for last_updated stamps and backup
// file names.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is a concurrency-safe knowledge tree.
type Store struct {
	mu          sync.RWMutex
	tree        map[string]any
	requiredKey string
	now         func() time.Time
}

// New returns a Store seeded with a deep copy of initial. requiredKey names
// the top-level key every restored backup must contain.
func New(requiredKey string, initial map[string]any, opts ...Option) *Store {
	s := &Store{
		tree:        copyMap(initial),
		requiredKey: requiredKey,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.tree == nil {
		s.tree = map[string]any{}
	}
	return s
}

// RequiredKey returns the top-level key restored backups must contain.
func (s *Store) RequiredKey() string { return s.requiredKey }

// Get returns a deep copy of the value at path. An empty path returns the
// whole tree. A path that does not resolve returns an empty
// map[string]any, never nil.
func (s *Store) Get(path string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if path == "" {
		return copyMap(s.tree)
	}
	var cur any = s.tree
	for _, seg := range strings.Split(path, "/") {
		m, ok := cur.(map[string]any)
		if !ok {
			slog.Debug("knowledge path not found", "path", path)
			return map[string]any{}
		}
		if cur, ok = m[seg]; !ok {
			slog.Debug("knowledge path not found", "path", path)
			return map[string]any{}
		}
	}
	return deepCopy(cur)
}

// Snapshot returns a deep copy of the full tree.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.tree)
}

// Update writes data at path.
//
// With a path, missing or non-mapping intermediates are replaced by empty
// mappings. At the leaf, data is shallow-merged into the existing value when
// both are mappings and merge is true; otherwise it replaces the leaf.
// With an empty path, data must be a mapping and is merged into (merge) or
// replaces (!merge) the root.
//
// On success the root last_updated key is stamped. On failure the tree is
// left untouched.
func (s *Store) Update(data any, path string, merge bool) error {
	err := s.update(deepCopy(data), path, merge)
	if err != nil {
		slog.Warn("knowledge update failed", "path", path, "err", err)
		return err
	}
	slog.Info("knowledge updated", "path", rootName(path), "merge", merge)
	return nil
}

func (s *Store) update(data any, path string, merge bool) error {
	var segs []string
	if path != "" {
		segs = strings.Split(path, "/")
		for _, seg := range segs {
			if seg == "" {
				return fmt.Errorf("%w: %q", ErrInvalidPath, path)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(segs) == 0 {
		m, ok := data.(map[string]any)
		if !ok {
			return ErrNotMapping
		}
		if merge {
			for k, v := range m {
				s.tree[k] = v
			}
		} else {
			s.tree = m
		}
		s.stamp()
		return nil
	}

	parent := s.tree
	for _, seg := range segs[:len(segs)-1] {
		next, ok := parent[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			parent[seg] = next
		}
		parent = next
	}

	leaf := segs[len(segs)-1]
	existing, existingIsMap := parent[leaf].(map[string]any)
	incoming, incomingIsMap := data.(map[string]any)
	if merge && existingIsMap && incomingIsMap {
		for k, v := range incoming {
			existing[k] = v
		}
	} else {
		parent[leaf] = data
	}
	s.stamp()
	return nil
}

// stamp must be called with mu held.
func (s *Store) stamp() {
	s.tree[LastUpdatedKey] = s.now().Format(time.RFC3339)
}

// Backup writes the tree as indented JSON to
// {dir}/{YYYYMMDD_HHMMSS}_knowledge_backup.json and returns the file name.
func (s *Store) Backup(dir string) (string, error) {
	s.mu.RLock()
	raw, err := json.MarshalIndent(s.tree, "", "    ")
	s.mu.RUnlock()
	if err != nil {
		return "", fmt.Errorf("knowledge: backup: encode: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("knowledge: backup: %w", err)
	}
	name := filepath.Join(dir, s.now().Format("20060102_150405")+"_knowledge_backup.json")
	if err := os.WriteFile(name, raw, 0o644); err != nil {
		return "", fmt.Errorf("knowledge: backup: %w", err)
	}
	slog.Info("knowledge backed up", "file", name)
	return name, nil
}

// Restore replaces the tree with the contents of filename. Files ending in
// .yaml or .yml are decoded as YAML, anything else as JSON. The decoded
// value must be a mapping containing the store's required key; otherwise
// [ErrInvalidBackup] is returned and the tree is left untouched.
func (s *Store) Restore(filename string) error {
	tree, err := s.decodeFile(filename)
	if err != nil {
		slog.Warn("knowledge restore rejected", "file", filename, "err", err)
		return err
	}

	s.mu.Lock()
	s.tree = tree
	s.mu.Unlock()

	slog.Info("knowledge restored", "file", filename)
	return nil
}

func (s *Store) decodeFile(filename string) (map[string]any, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("knowledge: restore: %w", err)
	}

	var v any
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidBackup, err)
		}
		// Normalise YAML scalars (int, bool, …) to their JSON equivalents so
		// both file formats produce identical trees.
		if v, err = jsonRoundTrip(v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidBackup, err)
		}
	default:
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidBackup, err)
		}
	}

	tree, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level is not a mapping", ErrInvalidBackup)
	}
	if s.requiredKey != "" {
		if _, ok := tree[s.requiredKey]; !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrInvalidBackup, s.requiredKey)
		}
	}
	return tree, nil
}

func jsonRoundTrip(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	err = json.Unmarshal(raw, &out)
	return out, err
}

func rootName(path string) string {
	if path == "" {
		return "root"
	}
	return path
}
