package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
)

type CredentialStore struct {
	db *sql.DB
}

func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

const credentialSelectCols = `id, tenant_id, phone, session_encrypted, status, last_active_at, created_at`

func (s *CredentialStore) GetCredential(ctx context.Context, id uuid.UUID) (*domain.ChatCredential, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+credentialSelectCols+` FROM chat_credentials WHERE id = $1`, id)
	return scanCredential(row)
}

func (s *CredentialStore) ListActiveCredentials(ctx context.Context) ([]domain.ChatCredential, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+credentialSelectCols+` FROM chat_credentials WHERE status = $1 ORDER BY created_at`,
		domain.CredentialActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ChatCredential
	for rows.Next() {
		var c domain.ChatCredential
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Phone, &c.SessionEncrypted, &c.Status, &c.LastActiveAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *CredentialStore) MarkCredentialStatus(ctx context.Context, id uuid.UUID, status domain.CredentialStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chat_credentials SET status = $1, last_active_at = $2 WHERE id = $3`,
		status, time.Now(), id)
	return err
}

func scanCredential(row *sql.Row) (*domain.ChatCredential, error) {
	var c domain.ChatCredential
	if err := row.Scan(&c.ID, &c.TenantID, &c.Phone, &c.SessionEncrypted, &c.Status, &c.LastActiveAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
