package pg

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userSelectCols = `id, tenant_id, email, full_name, role, active,
	notify_in_app, notify_email, notify_bot_push,
	notify_on_new_lead, notify_on_status_change, notify_on_assignment,
	bot_chat_id, created_at, updated_at`

func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userSelectCols+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *UserStore) ListUsersByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userSelectCols+` FROM users WHERE tenant_id = $1 AND active ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUserRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row *sql.Row) (*domain.User, error) {
	return scanUserInto(row)
}

func scanUserRows(rows *sql.Rows) (*domain.User, error) {
	return scanUserInto(rows)
}

func scanUserInto(s scanner) (*domain.User, error) {
	var u domain.User
	var botChatID sql.NullString
	err := s.Scan(
		&u.ID, &u.TenantID, &u.Email, &u.FullName, &u.Role, &u.Active,
		&u.Prefs.InAppEnabled, &u.Prefs.EmailEnabled, &u.Prefs.BotPushEnabled,
		&u.Prefs.NotifyOnNewLead, &u.Prefs.NotifyOnStatusChange, &u.Prefs.NotifyOnAssignment,
		&botChatID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.BotChatID = botChatID.String
	return &u, nil
}
