package knowledge_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harjas-romana/calling-agent/internal/knowledge"
)

var fixedNow = time.Date(2025, 5, 14, 9, 30, 0, 0, time.UTC)

func newStore() *knowledge.Store {
	return knowledge.New("restaurant_info", map[string]any{
		"restaurant_info": map[string]any{
			"name": "Romana Restaurant",
			"hours": map[string]any{
				"monday": "11:00 AM - 10:00 PM",
			},
			"popular_dishes": []any{
				map[string]any{"name": "Tiramisu", "price": 9.99},
			},
		},
	}, knowledge.WithClock(func() time.Time { return fixedNow }))
}

func TestGet(t *testing.T) {
	t.Parallel()

	s := newStore()
	tests := []struct {
		name string
		path string
		want any
	}{
		{name: "scalar", path: "restaurant_info/name", want: "Romana Restaurant"},
		{name: "nested", path: "restaurant_info/hours/monday", want: "11:00 AM - 10:00 PM"},
		{name: "missing leaf", path: "restaurant_info/phone", want: map[string]any{}},
		{name: "missing root", path: "nope/deeper", want: map[string]any{}},
		{name: "through scalar", path: "restaurant_info/name/first", want: map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := s.Get(tt.path); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Get(%q) = %#v, want %#v", tt.path, got, tt.want)
			}
		})
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	t.Parallel()

	s := newStore()
	hours := s.Get("restaurant_info/hours").(map[string]any)
	hours["monday"] = "closed"

	if got := s.Get("restaurant_info/hours/monday"); got != "11:00 AM - 10:00 PM" {
		t.Errorf("store mutated through Get result: %v", got)
	}
}

func TestUpdate_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		val  any
	}{
		{name: "existing scalar", path: "restaurant_info/name", val: "Romana Trattoria"},
		{name: "new deep path", path: "restaurant_info/policies/pets", val: "Service animals only"},
		{name: "mapping", path: "restaurant_info/hours", val: map[string]any{"sunday": "closed"}},
		{name: "list", path: "menu_categories", val: []any{"Pasta", "Pizza"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newStore()
			if err := s.Update(tt.val, tt.path, false); err != nil {
				t.Fatalf("Update: %v", err)
			}
			if got := s.Get(tt.path); !reflect.DeepEqual(got, tt.val) {
				t.Errorf("Get(%q) = %#v, want %#v", tt.path, got, tt.val)
			}
		})
	}
}

func TestUpdate_Merge(t *testing.T) {
	t.Parallel()

	s := newStore()
	if err := s.Update(map[string]any{"friday": "11:00 AM - 11:00 PM"}, "restaurant_info/hours", true); err != nil {
		t.Fatalf("Update: %v", err)
	}
	hours := s.Get("restaurant_info/hours").(map[string]any)
	if len(hours) != 2 {
		t.Errorf("merged hours = %v, want monday and friday", hours)
	}
	if got := s.Get(knowledge.LastUpdatedKey); got != fixedNow.Format(time.RFC3339) {
		t.Errorf("last_updated = %v", got)
	}
}

func TestUpdate_ReplacesScalarIntermediate(t *testing.T) {
	t.Parallel()

	s := newStore()
	if err := s.Update("x", "restaurant_info/name/first", false); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := s.Get("restaurant_info/name/first"); got != "x" {
		t.Errorf("Get = %v, want x", got)
	}
}

func TestUpdate_Root(t *testing.T) {
	t.Parallel()

	s := newStore()
	if err := s.Update(map[string]any{"faqs": []any{}}, "", true); err != nil {
		t.Fatalf("merge root: %v", err)
	}
	if got := s.Get("restaurant_info/name"); got != "Romana Restaurant" {
		t.Errorf("merge dropped existing key: %v", got)
	}

	if err := s.Update("not a map", "", false); !errors.Is(err, knowledge.ErrNotMapping) {
		t.Errorf("root scalar: err = %v, want ErrNotMapping", err)
	}
	if err := s.Update("x", "a//b", false); !errors.Is(err, knowledge.ErrInvalidPath) {
		t.Errorf("empty segment: err = %v, want ErrInvalidPath", err)
	}
	if got := s.Get("restaurant_info/name"); got != "Romana Restaurant" {
		t.Errorf("failed update changed tree: %v", got)
	}
}

func TestBackupRestore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := newStore()

	name, err := s.Backup(dir)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if want := filepath.Join(dir, "20250514_093000_knowledge_backup.json"); name != want {
		t.Errorf("Backup name = %q, want %q", name, want)
	}

	_ = s.Update("Changed", "restaurant_info/name", false)
	if err := s.Restore(name); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := s.Get("restaurant_info/name"); got != "Romana Restaurant" {
		t.Errorf("after restore name = %v", got)
	}
	if got := s.Get("restaurant_info/popular_dishes/0"); !reflect.DeepEqual(got, map[string]any{}) {
		t.Errorf("list indexing should not resolve, got %v", got)
	}
}

func TestRestore_Rejects(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]string{
		"list.json":    `[1, 2, 3]`,
		"nokey.json":   `{"agency_info": {}}`,
		"broken.json":  `{"restaurant_info":`,
		"nokey.yaml":   "agency_info:\n  name: x\n",
		"missing.json": "",
	}
	for name, body := range files {
		if name == "missing.json" {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	for name := range files {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			s := newStore()
			if err := s.Restore(filepath.Join(dir, name)); err == nil {
				t.Fatal("Restore: expected error")
			}
			if got := s.Get("restaurant_info/name"); got != "Romana Restaurant" {
				t.Errorf("rejected restore changed tree: %v", got)
			}
		})
	}
}

func TestRestore_YAML(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "kb.yaml")
	body := strings.Join([]string{
		"restaurant_info:",
		"  name: Yaml Bistro",
		"  tables: 12",
		"faqs:",
		"  - question: Do you deliver?",
		"    answer: No.",
	}, "\n")
	if err := os.WriteFile(file, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	s := newStore()
	if err := s.Restore(file); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := s.Get("restaurant_info/tables"); got != float64(12) {
		t.Errorf("tables = %#v, want float64(12)", got)
	}
	if got := knowledge.Items(s.Get("faqs")); len(got) != 1 || got[0]["answer"] != "No." {
		t.Errorf("faqs = %v", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := newStore()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Update(map[string]any{"n": i}, "restaurant_info/counter", true)
		}()
		go func() {
			defer wg.Done()
			_ = s.Get("restaurant_info")
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
}

func TestString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want string
	}{
		{in: "x", want: "x"},
		{in: float64(4), want: "4"},
		{in: 9.99, want: "9.99"},
		{in: true, want: "true"},
		{in: nil, want: ""},
	}
	for _, tt := range tests {
		if got := knowledge.String(tt.in); got != tt.want {
			t.Errorf("String(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
