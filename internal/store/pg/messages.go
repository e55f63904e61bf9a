package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
)

type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

const messageSelectCols = `id, channel_id, external_id, text, author_external_id, author_handle, media_kind, sent_at, created_at`

// InsertMessage relies on the unique (channel_id, external_id) index to
// dedupe; a collision surfaces as store.ErrConflict, not a special case the
// collector has to detect itself (spec.md §4.4).
func (s *MessageStore) InsertMessage(ctx context.Context, msg *domain.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO messages (id, channel_id, external_id, text, author_external_id, author_handle, media_kind, sent_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		msg.ID, msg.ChannelID, msg.ExternalID, msg.Text, msg.AuthorExternalID, msg.AuthorHandle, msg.MediaKind, msg.SentAt, time.Now(),
	)
	err := row.Scan(&msg.CreatedAt)
	return asConflict(err)
}

// ListMessagesAfter orders and filters by sent_at, the window boundary
// spec.md §4.5 step 2 defines; external_id only breaks ties between
// messages sharing a sent_at timestamp, it never drives the window alone.
func (s *MessageStore) ListMessagesAfter(ctx context.Context, channelID uuid.UUID, afterSentAt time.Time, afterExternalID int64, limit int) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageSelectCols+` FROM messages
		 WHERE channel_id = $1 AND (sent_at, external_id) > ($2, $3)
		 ORDER BY sent_at ASC, external_id ASC LIMIT $4`,
		channelID, afterSentAt, afterExternalID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (s *MessageStore) ListMessagesSince(ctx context.Context, channelID uuid.UUID, since time.Time, limit int) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageSelectCols+` FROM messages
		 WHERE channel_id = $1 AND sent_at >= $2
		 ORDER BY sent_at ASC LIMIT $3`,
		channelID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]domain.Message, error) {
	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.ExternalID, &m.Text, &m.AuthorExternalID, &m.AuthorHandle, &m.MediaKind, &m.SentAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
