package postgres

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/harjas-romana/calling-agent/pkg/memory"
)

// Append implements [memory.TranscriptStore].
func (s *Store) Append(ctx context.Context, entry memory.TranscriptEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	const q = `
		INSERT INTO transcript_entries (conversation_id, speaker, text, raw_text, intent, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := s.pool.Exec(ctx, q,
		entry.ConversationID, entry.Speaker, entry.Text, entry.RawText, entry.Intent, entry.Timestamp,
	); err != nil {
		return fmt.Errorf("transcript store: append: %w", err)
	}
	return nil
}

// Recent implements [memory.TranscriptStore]. The newest limit rows are
// selected and returned oldest first.
func (s *Store) Recent(ctx context.Context, conversationID string, limit int) ([]memory.TranscriptEntry, error) {
	q := `
		SELECT conversation_id, speaker, text, raw_text, intent, timestamp
		FROM   transcript_entries
		WHERE  conversation_id = $1
		ORDER  BY timestamp DESC, id DESC`
	args := []any{conversationID}
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf("\n\t\tLIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("transcript store: recent: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.TranscriptEntry, error) {
		var e memory.TranscriptEntry
		err := row.Scan(&e.ConversationID, &e.Speaker, &e.Text, &e.RawText, &e.Intent, &e.Timestamp)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("transcript store: scan rows: %w", err)
	}
	slices.Reverse(entries)
	if entries == nil {
		entries = []memory.TranscriptEntry{}
	}
	return entries, nil
}
