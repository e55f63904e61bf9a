package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
)

type ChannelStore struct {
	db *sql.DB
}

func NewChannelStore(db *sql.DB) *ChannelStore {
	return &ChannelStore{db: db}
}

const channelSelectCols = `id, external_id, handle, title, kind, active, last_external_message_id, last_collected_at, created_at`

func (s *ChannelStore) GetChannel(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+channelSelectCols+` FROM channels WHERE id = $1`, id)
	return scanChannel(row)
}

// UpsertChannel inserts a new channel or, on a (external_id) collision,
// refreshes its title/handle/kind — channels are deduplicated globally, not
// per tenant (spec.md §3).
func (s *ChannelStore) UpsertChannel(ctx context.Context, ch *domain.Channel) error {
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO channels (id, external_id, handle, title, kind, active, last_external_message_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (external_id) DO UPDATE
		   SET handle = EXCLUDED.handle, title = EXCLUDED.title, kind = EXCLUDED.kind, active = EXCLUDED.active
		 RETURNING id, created_at`,
		ch.ID, ch.ExternalID, nullIfEmpty(ch.Handle), ch.Title, ch.Kind, ch.Active, ch.LastExternalMessageID, time.Now(),
	)
	return row.Scan(&ch.ID, &ch.CreatedAt)
}

func (s *ChannelStore) ListActiveChannels(ctx context.Context) ([]domain.Channel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+channelSelectCols+` FROM channels WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Channel
	for rows.Next() {
		ch, err := scanChannelRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ch)
	}
	return out, rows.Err()
}

// ChannelWatermark is the true collector cursor: the highest external_id
// already stored for this channel's messages (spec.md §4.4 step 1).
func (s *ChannelStore) ChannelWatermark(ctx context.Context, channelID uuid.UUID) (int64, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(external_id) FROM messages WHERE channel_id = $1`, channelID).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max.Int64, nil
}

func (s *ChannelStore) TouchCollectedAt(ctx context.Context, channelID uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE channels SET last_collected_at = $1 WHERE id = $2`, at, channelID)
	return err
}

func scanChannel(row *sql.Row) (*domain.Channel, error) {
	return scanChannelInto(row)
}

func scanChannelRows(rows *sql.Rows) (*domain.Channel, error) {
	return scanChannelInto(rows)
}

func scanChannelInto(s scanner) (*domain.Channel, error) {
	var ch domain.Channel
	var handle sql.NullString
	if err := s.Scan(&ch.ID, &ch.ExternalID, &handle, &ch.Title, &ch.Kind, &ch.Active,
		&ch.LastExternalMessageID, &ch.LastCollectedAt, &ch.CreatedAt); err != nil {
		return nil, err
	}
	ch.Handle = handle.String
	return &ch, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
