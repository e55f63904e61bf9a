package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const notificationSelectCols = `id, recipient_user_id, type, title, body, lead_id, read, read_at, created_at`

func (s *NotificationStore) InsertNotification(ctx context.Context, n *domain.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO notifications (id, recipient_user_id, type, title, body, lead_id, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, false, $7)
		 RETURNING created_at`,
		n.ID, n.RecipientUserID, n.Type, n.Title, n.Body, n.LeadID, time.Now(),
	)
	return row.Scan(&n.CreatedAt)
}

func (s *NotificationStore) ListUnreadByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationSelectCols+` FROM notifications
		 WHERE recipient_user_id = $1 AND NOT read
		 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.RecipientUserID, &n.Type, &n.Title, &n.Body, &n.LeadID, &n.Read, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *NotificationStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = true, read_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}
