package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/harjas-romana/calling-agent/pkg/memory"
)

var (
	_ memory.Ledger          = (*Store)(nil)
	_ memory.TranscriptStore = (*Store)(nil)
	_ memory.VectorCache     = (*Store)(nil)
)

// Store is the PostgreSQL-backed persistence layer. It implements
// [memory.Ledger], [memory.TranscriptStore] and [memory.VectorCache] on a
// single connection pool.
//
// All operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
	dims int
}

// NewStore connects to the database at dsn, registers pgvector types on every
// connection and runs [Migrate].
//
// embeddingDimensions must match the embedding model used by the retrieval
// scorer (e.g. 1536 for text-embedding-3-small).
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: %w", err)
	}

	return &Store{pool: pool, dims: embeddingDimensions}, nil
}

// Ping reports whether the database is reachable. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres store: ping: %w", err)
	}
	return nil
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}
