package pg

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
)

type SubscriptionStore struct {
	db *sql.DB
}

func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

const subscriptionSelectCols = `id, tenant_id, channel_id, credential_id, active, tags, created_at, updated_at`

func (s *SubscriptionStore) ListActiveSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]domain.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+subscriptionSelectCols+` FROM subscriptions WHERE tenant_id = $1 AND active ORDER BY created_at`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		var tags pq.StringArray
		if err := rows.Scan(&sub.ID, &sub.TenantID, &sub.ChannelID, &sub.CredentialID, &sub.Active, &tags, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, err
		}
		sub.Tags = []string(tags)
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SubscriptionStore) ListChannelsForTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.Channel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.`+channelColsAliased()+`
		 FROM channels c
		 JOIN subscriptions sub ON sub.channel_id = c.id
		 WHERE sub.tenant_id = $1 AND sub.active AND c.active
		 ORDER BY c.created_at`, tenantID)
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

func channelColsAliased() string {
	return "id, external_id, handle, title, kind, active, last_external_message_id, last_collected_at, created_at"
}
