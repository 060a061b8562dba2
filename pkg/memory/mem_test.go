package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harjas-romana/calling-agent/pkg/memory"
)

func TestMemLedger_RecordAndList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var l memory.MemLedger

	data := map[string]string{"name": "Ana"}
	if err := l.Record(ctx, memory.Transaction{ConversationID: "c1", Kind: "reservation", Data: data}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Record(ctx, memory.Transaction{ConversationID: "c2", Kind: "order"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	data["name"] = "mutated"

	got, err := l.List(ctx, "c1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("List(c1) len = %d, want 1", len(got))
	}
	if got[0].ID == "" {
		t.Error("ID not generated")
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if got[0].Data["name"] != "Ana" {
		t.Errorf("Data[name] = %q, want %q", got[0].Data["name"], "Ana")
	}

	all, _ := l.List(ctx, "")
	if len(all) != 2 {
		t.Errorf("List(\"\") len = %d, want 2", len(all))
	}
}

func TestMemTranscripts_Recent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var s memory.MemTranscripts
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"a", "b", "c", "d"} {
		_ = s.Append(ctx, memory.TranscriptEntry{
			ConversationID: "c1",
			Speaker:        memory.SpeakerUser,
			Text:           text,
			Timestamp:      base.Add(time.Duration(i) * time.Second),
		})
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "all", limit: 0, want: []string{"a", "b", "c", "d"}},
		{name: "last two", limit: 2, want: []string{"c", "d"}},
		{name: "limit above len", limit: 10, want: []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := s.Recent(ctx, "c1", tt.limit)
			if err != nil {
				t.Fatalf("Recent: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Text != tt.want[i] {
					t.Errorf("[%d] = %q, want %q", i, got[i].Text, tt.want[i])
				}
			}
		})
	}

	empty, err := s.Recent(ctx, "unknown", 0)
	if err != nil || len(empty) != 0 {
		t.Errorf("Recent(unknown) = %v, %v; want empty, nil", empty, err)
	}
}

func TestMemVectorCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var c memory.MemVectorCache

	if _, err := c.Get(ctx, "m", "hello"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("Get on empty cache: err = %v, want ErrNotFound", err)
	}
	vec := []float32{1, 2, 3}
	if err := c.Put(ctx, "m", "hello", vec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	vec[0] = 99

	got, err := c.Get(ctx, "m", "hello")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got[0] != 1 {
		t.Errorf("cached vector aliased caller slice: got[0] = %v", got[0])
	}
	if _, err := c.Get(ctx, "other-model", "hello"); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("Get with other model: err = %v, want ErrNotFound", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestVectorKey_Distinct(t *testing.T) {
	t.Parallel()
	if memory.VectorKey("ab", "c") == memory.VectorKey("a", "bc") {
		t.Error("VectorKey collides on shifted boundary")
	}
}
