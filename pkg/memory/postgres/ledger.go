package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/harjas-romana/calling-agent/pkg/memory"
)

// Record implements [memory.Ledger]. An existing row with the same ID is
// replaced.
func (s *Store) Record(ctx context.Context, tx memory.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	data := tx.Data
	if data == nil {
		data = map[string]string{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("ledger: marshal data: %w", err)
	}

	const q = `
		INSERT INTO transactions (id, conversation_id, domain, kind, reference, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
		    conversation_id = EXCLUDED.conversation_id,
		    domain          = EXCLUDED.domain,
		    kind            = EXCLUDED.kind,
		    reference       = EXCLUDED.reference,
		    data            = EXCLUDED.data,
		    created_at      = EXCLUDED.created_at`

	if _, err := s.pool.Exec(ctx, q,
		tx.ID, tx.ConversationID, tx.Domain, tx.Kind, tx.Reference, raw, tx.CreatedAt,
	); err != nil {
		return fmt.Errorf("ledger: record: %w", err)
	}
	return nil
}

// List implements [memory.Ledger].
func (s *Store) List(ctx context.Context, conversationID string) ([]memory.Transaction, error) {
	const q = `
		SELECT id, conversation_id, domain, kind, reference, data, created_at
		FROM   transactions
		WHERE  $1 = '' OR conversation_id = $1
		ORDER  BY created_at, id`

	rows, err := s.pool.Query(ctx, q, conversationID)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}

	txs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.Transaction, error) {
		var (
			tx  memory.Transaction
			raw []byte
		)
		if err := row.Scan(&tx.ID, &tx.ConversationID, &tx.Domain, &tx.Kind, &tx.Reference, &raw, &tx.CreatedAt); err != nil {
			return memory.Transaction{}, err
		}
		if err := json.Unmarshal(raw, &tx.Data); err != nil {
			return memory.Transaction{}, fmt.Errorf("unmarshal data: %w", err)
		}
		return tx, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: scan rows: %w", err)
	}
	if txs == nil {
		txs = []memory.Transaction{}
	}
	return txs, nil
}
