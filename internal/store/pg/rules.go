package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
	"github.com/leadwatch/leadwatch/internal/store"
)

type RuleStore struct {
	db *sql.DB
}

func NewRuleStore(db *sql.DB) *RuleStore {
	return &RuleStore{db: db}
}

const ruleSelectCols = `id, tenant_id, name, description, prompt, threshold, channel_filter, schedule_cron, active, created_at, updated_at`

func (s *RuleStore) GetRule(ctx context.Context, id uuid.UUID) (*domain.Rule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ruleSelectCols+` FROM rules WHERE id = $1`, id)
	return scanRule(row)
}

func (s *RuleStore) ListActiveRules(ctx context.Context, tenantID uuid.UUID) ([]domain.Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ruleSelectCols+` FROM rules WHERE tenant_id = $1 AND active ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func (s *RuleStore) ListAllActiveRules(ctx context.Context) ([]domain.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+ruleSelectCols+` FROM rules WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// UpdateRulePolicy realizes spec.md §4.6: changing prompt or threshold
// invalidates every progress row for the rule so classification starts over
// (re-triggering the first-contact backfill window); changing only the
// channel filter leaves progress for newly-excluded channels dormant in
// place rather than deleting it.
func (s *RuleStore) UpdateRulePolicy(ctx context.Context, rule *domain.Rule) error {
	return store.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		var prevPrompt string
		var prevThreshold float64
		var prevFilter pq.StringArray
		err := tx.QueryRowContext(ctx,
			`SELECT prompt, threshold, channel_filter FROM rules WHERE id = $1 FOR UPDATE`, rule.ID,
		).Scan(&prevPrompt, &prevThreshold, &prevFilter)
		if err != nil {
			return err
		}

		var scheduleCron sql.NullString
		if rule.Schedule != nil && rule.Schedule.Cron != "" {
			scheduleCron = sql.NullString{String: rule.Schedule.Cron, Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE rules SET name = $1, description = $2, prompt = $3, threshold = $4,
			 channel_filter = $5, schedule_cron = $6, active = $7, updated_at = $8
			 WHERE id = $9`,
			rule.Name, rule.Description, rule.Prompt, rule.Threshold,
			pq.Array(uuidsToStrings(rule.ChannelFilter)), scheduleCron, rule.Active, time.Now(), rule.ID,
		)
		if err != nil {
			return err
		}

		policyChanged := rule.Prompt != prevPrompt || rule.Threshold != prevThreshold
		if policyChanged {
			_, err = tx.ExecContext(ctx, `DELETE FROM rule_analysis_progress WHERE rule_id = $1`, rule.ID)
			return err
		}

		removed := channelsRemovedFromFilter(prevFilter, uuidsToStrings(rule.ChannelFilter))
		if len(removed) > 0 {
			_, err = tx.ExecContext(ctx,
				`UPDATE rule_analysis_progress SET dormant = true
				 WHERE rule_id = $1 AND channel_id = ANY($2)`,
				rule.ID, pq.Array(removed))
			return err
		}
		return nil
	})
}

func channelsRemovedFromFilter(prev pq.StringArray, next []string) []string {
	if len(prev) == 0 {
		return nil
	}
	keep := make(map[string]bool, len(next))
	for _, id := range next {
		keep[id] = true
	}
	var removed []string
	for _, id := range prev {
		if !keep[id] {
			removed = append(removed, id)
		}
	}
	return removed
}

func uuidsToStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func scanRule(row *sql.Row) (*domain.Rule, error) {
	return scanRuleInto(row)
}

func scanRules(rows *sql.Rows) ([]domain.Rule, error) {
	var out []domain.Rule
	for rows.Next() {
		r, err := scanRuleInto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRuleInto(s scanner) (*domain.Rule, error) {
	var r domain.Rule
	var filter pq.StringArray
	var scheduleCron sql.NullString
	if err := s.Scan(&r.ID, &r.TenantID, &r.Name, &r.Description, &r.Prompt, &r.Threshold,
		&filter, &scheduleCron, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.ChannelFilter = make([]uuid.UUID, 0, len(filter))
	for _, raw := range filter {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		r.ChannelFilter = append(r.ChannelFilter, id)
	}
	if scheduleCron.Valid {
		r.Schedule = &domain.Schedule{Cron: scheduleCron.String}
	}
	return &r, nil
}
