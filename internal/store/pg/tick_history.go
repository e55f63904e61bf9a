package pg

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/store"
)

type TickHistoryStore struct {
	db *sql.DB
}

func NewTickHistoryStore(db *sql.DB) *TickHistoryStore {
	return &TickHistoryStore{db: db}
}

const tickSelectCols = `id, started_at, finished_at, channels_collected, messages_collected, rules_processed, leads_created, error`

func (s *TickHistoryStore) RecordTick(ctx context.Context, t *store.TickRecord) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tick_history (id, started_at, finished_at, channels_collected, messages_collected, rules_processed, leads_created, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.StartedAt, t.FinishedAt, t.ChannelsCollected, t.MessagesCollected, t.RulesProcessed, t.LeadsCreated, nullIfEmpty(t.Err))
	return err
}

func (s *TickHistoryStore) ListRecentTicks(ctx context.Context, limit int) ([]store.TickRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tickSelectCols+` FROM tick_history ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.TickRecord
	for rows.Next() {
		var t store.TickRecord
		var errStr sql.NullString
		if err := rows.Scan(&t.ID, &t.StartedAt, &t.FinishedAt, &t.ChannelsCollected, &t.MessagesCollected, &t.RulesProcessed, &t.LeadsCreated, &errStr); err != nil {
			return nil, err
		}
		t.Err = errStr.String
		out = append(out, t)
	}
	return out, rows.Err()
}
