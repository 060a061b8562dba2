package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/harjas-romana/calling-agent/pkg/memory"
	"github.com/harjas-romana/calling-agent/pkg/memory/postgres"
)

const testEmbeddingDim = 4

// testDSN returns the test database DSN or skips the test.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("CALLAGENT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CALLAGENT_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] on a clean schema.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	cleanPool := mustPool(t, ctx, dsn)
	t.Cleanup(cleanPool.Close)
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS embedding_cache CASCADE",
		"DROP TABLE IF EXISTS transcript_entries CASCADE",
		"DROP TABLE IF EXISTS transactions CASCADE",
	} {
		if _, err := cleanPool.Exec(ctx, stmt); err != nil {
			t.Fatalf("drop schema %q: %v", stmt, err)
		}
	}

	store, err := postgres.NewStore(ctx, dsn, testEmbeddingDim)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func mustPool(t *testing.T, ctx context.Context, dsn string) *pgxpool.Pool {
	t.Helper()
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		// pgvector may not be installed yet on a fresh database.
		_ = pgxvec.RegisterTypes(ctx, conn)
		return nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	return pool
}

func TestLedger_RecordAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

	txs := []memory.Transaction{
		{
			ConversationID: "conv-1",
			Domain:         "restaurant",
			Kind:           "reservation",
			Data:           map[string]string{"name": "Ana", "party_size": "4"},
			CreatedAt:      base,
		},
		{
			ConversationID: "conv-1",
			Domain:         "restaurant",
			Kind:           "order",
			Data:           map[string]string{"table_number": "7"},
			CreatedAt:      base.Add(time.Minute),
		},
		{
			ConversationID: "conv-2",
			Domain:         "travel",
			Kind:           "booking",
			Reference:      "HT20250301120000",
			CreatedAt:      base.Add(2 * time.Minute),
		},
	}
	for _, tx := range txs {
		if err := store.Record(ctx, tx); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.List(ctx, "conv-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List(conv-1) len = %d, want 2", len(got))
	}
	if got[0].Kind != "reservation" || got[1].Kind != "order" {
		t.Errorf("order = [%s %s], want [reservation order]", got[0].Kind, got[1].Kind)
	}
	if got[0].Data["party_size"] != "4" {
		t.Errorf("Data[party_size] = %q, want %q", got[0].Data["party_size"], "4")
	}
	if got[0].ID == "" {
		t.Error("ID not generated")
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List all len = %d, want 3", len(all))
	}
	if all[2].Reference != "HT20250301120000" {
		t.Errorf("Reference = %q", all[2].Reference)
	}
}

func TestTranscripts_Recent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-10 * time.Minute)

	for i, text := range []string{"hello", "hi there", "book a table", "how many people?"} {
		speaker := memory.SpeakerUser
		if i%2 == 1 {
			speaker = memory.SpeakerAssistant
		}
		if err := store.Append(ctx, memory.TranscriptEntry{
			ConversationID: "conv-1",
			Speaker:        speaker,
			Text:           text,
			Timestamp:      base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	last, err := store.Recent(ctx, "conv-1", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(last) != 2 {
		t.Fatalf("Recent(2) len = %d, want 2", len(last))
	}
	if last[0].Text != "book a table" || last[1].Text != "how many people?" {
		t.Errorf("Recent(2) = [%q %q]", last[0].Text, last[1].Text)
	}

	all, err := store.Recent(ctx, "conv-1", 0)
	if err != nil {
		t.Fatalf("Recent(0): %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Recent(0) len = %d, want 4", len(all))
	}

	none, err := store.Recent(ctx, "missing", 0)
	if err != nil || len(none) != 0 {
		t.Errorf("Recent(missing) = %v, %v", none, err)
	}
}

func TestVectorCache_GetPut(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "m", "hours"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("Get before Put: err = %v, want ErrNotFound", err)
	}
	if err := store.Put(ctx, "m", "hours", []float32{1, 0, 0, 0}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "m", "hours", []float32{0, 1, 0, 0}); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, err := store.Get(ctx, "m", "hours")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 4 || got[1] != 1 {
		t.Errorf("Get = %v, want [0 1 0 0]", got)
	}

	if err := store.Put(ctx, "m", "bad", []float32{1, 2}); err == nil {
		t.Error("Put with wrong dimension: expected error")
	}
}
