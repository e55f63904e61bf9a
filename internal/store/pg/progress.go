package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
)

type ProgressStore struct {
	db *sql.DB
}

func NewProgressStore(db *sql.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

const progressSelectCols = `id, rule_id, channel_id, last_analyzed_message_id, last_analyzed_sent_at,
	last_analyzed_external_id, last_analyzed_at, messages_analyzed, leads_created`

// GetOrInitProgress returns the existing (rule, channel) cursor or creates a
// fresh zero-valued one — the rule processor always has a row to advance
// (spec.md §4.5).
func (s *ProgressStore) GetOrInitProgress(ctx context.Context, ruleID, channelID uuid.UUID) (*domain.Progress, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+progressSelectCols+` FROM rule_analysis_progress WHERE rule_id = $1 AND channel_id = $2`,
		ruleID, channelID)
	p, err := scanProgress(row)
	if err == nil {
		return p, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	p = &domain.Progress{ID: uuid.New(), RuleID: ruleID, ChannelID: channelID}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rule_analysis_progress (id, rule_id, channel_id, messages_analyzed, leads_created, dormant)
		 VALUES ($1, $2, $3, 0, 0, false)
		 ON CONFLICT (rule_id, channel_id) DO NOTHING`,
		p.ID, p.RuleID, p.ChannelID)
	if err != nil {
		return nil, err
	}
	row = s.db.QueryRowContext(ctx,
		`SELECT `+progressSelectCols+` FROM rule_analysis_progress WHERE rule_id = $1 AND channel_id = $2`,
		ruleID, channelID)
	return scanProgress(row)
}

func (s *ProgressStore) AdvanceProgress(ctx context.Context, p *domain.Progress) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`UPDATE rule_analysis_progress SET
		   last_analyzed_message_id = $1, last_analyzed_sent_at = $2, last_analyzed_external_id = $3,
		   last_analyzed_at = $4, messages_analyzed = $5, leads_created = $6
		 WHERE rule_id = $7 AND channel_id = $8`,
		p.LastAnalyzedMessageID, p.LastAnalyzedSentAt, p.LastAnalyzedExternalID,
		now, p.MessagesAnalyzed, p.LeadsCreated, p.RuleID, p.ChannelID)
	return err
}

func (s *ProgressStore) ResetProgressForRule(ctx context.Context, ruleID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rule_analysis_progress WHERE rule_id = $1`, ruleID)
	return err
}

func (s *ProgressStore) DeactivateProgressForChannels(ctx context.Context, ruleID uuid.UUID, channelIDs []uuid.UUID) error {
	if len(channelIDs) == 0 {
		return nil
	}
	ids := make([]string, len(channelIDs))
	for i, id := range channelIDs {
		ids[i] = id.String()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE rule_analysis_progress SET dormant = true WHERE rule_id = $1 AND channel_id = ANY($2)`,
		ruleID, pq.Array(ids))
	return err
}

func scanProgress(row *sql.Row) (*domain.Progress, error) {
	var p domain.Progress
	var msgID sql.NullString
	var sentAt, analyzedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.RuleID, &p.ChannelID, &msgID, &sentAt,
		&p.LastAnalyzedExternalID, &analyzedAt, &p.MessagesAnalyzed, &p.LeadsCreated); err != nil {
		return nil, err
	}
	if msgID.Valid {
		id, err := uuid.Parse(msgID.String)
		if err == nil {
			p.LastAnalyzedMessageID = &id
		}
	}
	if sentAt.Valid {
		t := sentAt.Time
		p.LastAnalyzedSentAt = &t
	}
	if analyzedAt.Valid {
		t := analyzedAt.Time
		p.LastAnalyzedAt = &t
	}
	return &p, nil
}
