package pg

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
)

type TenantStore struct {
	db *sql.DB
}

func NewTenantStore(db *sql.DB) *TenantStore {
	return &TenantStore{db: db}
}

const tenantSelectCols = `id, name, plan, deleted_at, created_at, updated_at`

func (s *TenantStore) GetTenant(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tenantSelectCols+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

func (s *TenantStore) ListActiveTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tenantSelectCols+` FROM tenants WHERE deleted_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Plan, &t.DeletedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTenant(row *sql.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Plan, &t.DeletedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
