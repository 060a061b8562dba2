// Package postgres provides PostgreSQL-backed implementations of the memory
// interfaces: the transaction [memory.Ledger], the [memory.TranscriptStore]
// and a pgvector [memory.VectorCache] for embedding scoring.
//
// All stores share a single [pgxpool.Pool]. The pgvector extension must be
// available in the target database; [Migrate] installs it via
// CREATE EXTENSION IF NOT EXISTS.
//
//	store, err := postgres.NewStore(ctx, dsn, 1536)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.Record(ctx, tx)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id              TEXT         PRIMARY KEY,
    conversation_id TEXT         NOT NULL,
    domain          TEXT         NOT NULL,
    kind            TEXT         NOT NULL,
    reference       TEXT         NOT NULL DEFAULT '',
    data            JSONB        NOT NULL DEFAULT '{}',
    created_at      TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transactions_conversation
    ON transactions (conversation_id, created_at);
`

const ddlTranscripts = `
CREATE TABLE IF NOT EXISTS transcript_entries (
    id              BIGSERIAL    PRIMARY KEY,
    conversation_id TEXT         NOT NULL,
    speaker         TEXT         NOT NULL,
    text            TEXT         NOT NULL,
    raw_text        TEXT         NOT NULL DEFAULT '',
    intent          TEXT         NOT NULL DEFAULT '',
    timestamp       TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transcript_entries_conversation
    ON transcript_entries (conversation_id, timestamp);
`

// ddlEmbeddingCache is formatted with the vector dimension.
const ddlEmbeddingCache = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS embedding_cache (
    key        TEXT         PRIMARY KEY,
    model      TEXT         NOT NULL,
    embedding  vector(%d)   NOT NULL,
    created_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// Migrate creates every table used by [Store] if it does not exist yet.
// It is idempotent and safe to run on every start-up.
//
// embeddingDimensions fixes the width of the embedding_cache vector column.
// Changing it after the first migration requires dropping that table.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if embeddingDimensions <= 0 {
		return fmt.Errorf("migrate: embedding dimensions must be positive, got %d", embeddingDimensions)
	}
	for _, stmt := range []struct {
		name string
		sql  string
	}{
		{"transactions", ddlTransactions},
		{"transcript entries", ddlTranscripts},
		{"embedding cache", fmt.Sprintf(ddlEmbeddingCache, embeddingDimensions)},
	} {
		if _, err := pool.Exec(ctx, stmt.sql); err != nil {
			return fmt.Errorf("migrate: %s: %w", stmt.name, err)
		}
	}
	return nil
}
