package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/harjas-romana/calling-agent/pkg/memory"
)

// Get implements [memory.VectorCache].
func (s *Store) Get(ctx context.Context, model, text string) ([]float32, error) {
	const q = `SELECT embedding FROM embedding_cache WHERE key = $1`

	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx, q, memory.VectorKey(model, text)).Scan(&vec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, memory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("vector cache: get: %w", err)
	}
	return vec.Slice(), nil
}

// Put implements [memory.VectorCache]. Vectors whose length differs from the
// migrated column width are rejected.
func (s *Store) Put(ctx context.Context, model, text string, vec []float32) error {
	if len(vec) != s.dims {
		return fmt.Errorf("vector cache: put: vector has %d dimensions, column has %d", len(vec), s.dims)
	}
	const q = `
		INSERT INTO embedding_cache (key, model, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
		    embedding  = EXCLUDED.embedding,
		    created_at = now()`

	if _, err := s.pool.Exec(ctx, q, memory.VectorKey(model, text), model, pgvector.NewVector(vec)); err != nil {
		return fmt.Errorf("vector cache: put: %w", err)
	}
	return nil
}
