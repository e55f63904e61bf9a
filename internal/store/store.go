// Package store defines the persistence interfaces for the lead-discovery
// engine (spec.md §4.3, Component C3). Postgres's unique constraints are the
// sole correctness mechanism for message dedup and lead idempotency; this
// package never re-derives that logic in application code.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
)

// GenNewID returns a fresh random identifier for a new row.
func GenNewID() uuid.UUID {
	return uuid.New()
}

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = sql.ErrNoRows

// ErrConflict is returned when an insert collides with a unique constraint —
// callers use it to recognize "already ingested" / "already a lead" as a
// normal outcome, not a failure (spec.md §4.5 idempotency).
type ErrConflict struct {
	Constraint string
}

func (e *ErrConflict) Error() string {
	return "store: conflict on " + e.Constraint
}

// Queryer is satisfied by both *sql.DB and *sql.Tx, letting store methods run
// identically inside or outside a scoped session.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TenantStore manages tenant workspaces.
type TenantStore interface {
	GetTenant(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	ListActiveTenants(ctx context.Context) ([]domain.Tenant, error)
}

// UserStore manages tenant users and their notification preferences.
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ListUsersByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.User, error)
}

// CredentialStore manages encrypted chat-platform session credentials.
type CredentialStore interface {
	GetCredential(ctx context.Context, id uuid.UUID) (*domain.ChatCredential, error)
	ListActiveCredentials(ctx context.Context) ([]domain.ChatCredential, error)
	MarkCredentialStatus(ctx context.Context, id uuid.UUID, status domain.CredentialStatus) error
}

// ChannelStore manages the globally shared channel catalog and its watermark.
type ChannelStore interface {
	GetChannel(ctx context.Context, id uuid.UUID) (*domain.Channel, error)
	UpsertChannel(ctx context.Context, ch *domain.Channel) error
	ListActiveChannels(ctx context.Context) ([]domain.Channel, error)
	// ChannelWatermark returns the highest ExternalID already stored for a
	// channel's messages — the true collector cursor (spec.md §4.4 step 1),
	// superseding Channel.LastExternalMessageID.
	ChannelWatermark(ctx context.Context, channelID uuid.UUID) (int64, error)
	TouchCollectedAt(ctx context.Context, channelID uuid.UUID, at time.Time) error
}

// SubscriptionStore manages tenant-to-channel bindings.
type SubscriptionStore interface {
	ListActiveSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]domain.Subscription, error)
	ListChannelsForTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.Channel, error)
}

// MessageStore manages the globally deduplicated message log.
type MessageStore interface {
	// InsertMessage stores one message, returning ErrConflict if its
	// (channel_id, external_id) pair was already collected.
	InsertMessage(ctx context.Context, msg *domain.Message) error
	// ListMessagesAfter returns the incremental window: messages whose
	// (sent_at, external_id) sorts after (afterSentAt, afterExternalID),
	// ascending by sent_at with external_id as the tie-break for messages
	// sharing a timestamp (spec.md §4.5 step 2).
	ListMessagesAfter(ctx context.Context, channelID uuid.UUID, afterSentAt time.Time, afterExternalID int64, limit int) ([]domain.Message, error)
	ListMessagesSince(ctx context.Context, channelID uuid.UUID, since time.Time, limit int) ([]domain.Message, error)
}

// RuleStore manages tenant classification rules.
type RuleStore interface {
	GetRule(ctx context.Context, id uuid.UUID) (*domain.Rule, error)
	ListActiveRules(ctx context.Context, tenantID uuid.UUID) ([]domain.Rule, error)
	ListAllActiveRules(ctx context.Context) ([]domain.Rule, error)
	// UpdateRulePolicy atomically changes a rule's prompt/threshold/filter
	// and applies the policy-change progress semantics (spec.md §4.6):
	// a prompt or threshold change wipes all progress for the rule (full
	// backfill); a channel_filter change only leaves now-excluded channels
	// dormant, never deleted.
	UpdateRulePolicy(ctx context.Context, rule *domain.Rule) error
}

// ProgressStore manages the resumable (rule, channel) classification cursor.
type ProgressStore interface {
	GetOrInitProgress(ctx context.Context, ruleID, channelID uuid.UUID) (*domain.Progress, error)
	AdvanceProgress(ctx context.Context, p *domain.Progress) error
	// ResetProgressForRule deletes every progress row for a rule (full prompt/
	// threshold policy change).
	ResetProgressForRule(ctx context.Context, ruleID uuid.UUID) error
	// DeactivateProgressForChannels marks progress dormant for channels no
	// longer in a rule's filter, without deleting the row.
	DeactivateProgressForChannels(ctx context.Context, ruleID uuid.UUID, channelIDs []uuid.UUID) error
}

// LeadStore manages materialized qualified leads.
type LeadStore interface {
	// InsertLead stores a lead, returning ErrConflict if the
	// (tenant_id, message_id, rule_id) triple already exists.
	InsertLead(ctx context.Context, lead *domain.Lead) error
	GetLead(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	// GetLeadByMessageRule looks up a lead by its (tenant, message, rule)
	// idempotency key, returning ErrNotFound when none exists — the rule
	// processor checks this before invoking the LM client (spec.md §4.5).
	GetLeadByMessageRule(ctx context.Context, tenantID, messageID, ruleID uuid.UUID) (*domain.Lead, error)
	UpdateLeadStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus) error
	ListLeadsByTenant(ctx context.Context, tenantID uuid.UUID, status domain.LeadStatus, limit, offset int) ([]domain.Lead, error)
}

// NotificationStore manages fanned-out notification records.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n *domain.Notification) error
	ListUnreadByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

// TickRecord is one completed scheduler tick (spec.md §5, Component C7).
type TickRecord struct {
	ID                uuid.UUID
	StartedAt         time.Time
	FinishedAt        time.Time
	ChannelsCollected int
	MessagesCollected int
	RulesProcessed    int
	LeadsCreated      int
	Err               string
}

// TickHistoryStore records scheduler tick outcomes for operability
// (leadctl's tick-history listing and the healthz last-tick timestamp).
type TickHistoryStore interface {
	RecordTick(ctx context.Context, t *TickRecord) error
	ListRecentTicks(ctx context.Context, limit int) ([]TickRecord, error)
}

// Store aggregates every sub-store behind the single handle the composition
// root wires into the collector, rule processor, notifier and HTTP server.
type Store struct {
	DB *sql.DB

	Tenants       TenantStore
	Users         UserStore
	Credentials   CredentialStore
	Channels      ChannelStore
	Subscriptions SubscriptionStore
	Messages      MessageStore
	Rules         RuleStore
	Progress      ProgressStore
	Leads         LeadStore
	Notifications NotificationStore
	TickHistory   TickHistoryStore
}

// WithinTx runs fn inside a transaction, committing on success and rolling
// back the whole transaction on error or panic — the scoped-session
// abstraction referenced throughout spec.md §4. It has no per-row
// savepoints: one failing statement discards everything fn did.
func WithinTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
