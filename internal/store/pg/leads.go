package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
)

type LeadStore struct {
	db *sql.DB
}

func NewLeadStore(db *sql.DB) *LeadStore {
	return &LeadStore{db: db}
}

const leadSelectCols = `id, tenant_id, message_id, rule_id, score, reasoning, entities, status, assignee_id, created_at, updated_at`

// InsertLead relies on the unique (tenant_id, message_id, rule_id) index: a
// collision is the normal "already a lead" outcome, surfaced as
// store.ErrConflict rather than re-checked beforehand (spec.md §4.5).
func (s *LeadStore) InsertLead(ctx context.Context, lead *domain.Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	entities, err := json.Marshal(lead.Entities)
	if err != nil {
		return err
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO leads (id, tenant_id, message_id, rule_id, score, reasoning, entities, status, assignee_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		 RETURNING created_at, updated_at`,
		lead.ID, lead.TenantID, lead.MessageID, lead.RuleID, lead.Score, lead.Reasoning,
		entities, lead.Status, lead.AssigneeID, time.Now(),
	)
	err = row.Scan(&lead.CreatedAt, &lead.UpdatedAt)
	return asConflict(err)
}

func (s *LeadStore) GetLead(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadSelectCols+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

func (s *LeadStore) GetLeadByMessageRule(ctx context.Context, tenantID, messageID, ruleID uuid.UUID) (*domain.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadSelectCols+` FROM leads WHERE tenant_id = $1 AND message_id = $2 AND rule_id = $3`,
		tenantID, messageID, ruleID)
	return scanLead(row)
}

func (s *LeadStore) UpdateLeadStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now(), id)
	return err
}

func (s *LeadStore) ListLeadsByTenant(ctx context.Context, tenantID uuid.UUID, status domain.LeadStatus, limit, offset int) ([]domain.Lead, error) {
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+leadSelectCols+` FROM leads WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			tenantID, limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+leadSelectCols+` FROM leads WHERE tenant_id = $1 AND status = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
			tenantID, status, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		l, err := scanLeadRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func scanLead(row *sql.Row) (*domain.Lead, error) {
	return scanLeadInto(row)
}

func scanLeadRows(rows *sql.Rows) (*domain.Lead, error) {
	return scanLeadInto(rows)
}

func scanLeadInto(s scanner) (*domain.Lead, error) {
	var l domain.Lead
	var entities []byte
	if err := s.Scan(&l.ID, &l.TenantID, &l.MessageID, &l.RuleID, &l.Score, &l.Reasoning,
		&entities, &l.Status, &l.AssigneeID, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	if len(entities) > 0 {
		if err := json.Unmarshal(entities, &l.Entities); err != nil {
			return nil, err
		}
	}
	return &l, nil
}
