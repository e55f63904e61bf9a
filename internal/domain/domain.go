// Package domain holds the entities of the lead-discovery data model
// (spec.md §3): tenants, users, chat credentials, channels, subscriptions,
// rules, messages, analysis progress, leads and notifications.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// CredentialStatus is the lifecycle state of a Chat-Platform Credential.
type CredentialStatus string

const (
	CredentialActive      CredentialStatus = "active"
	CredentialNeedsReauth CredentialStatus = "needs-reauth"
	CredentialBlocked     CredentialStatus = "blocked"
)

// ChannelKind enumerates the chat-platform channel shapes the engine tracks.
type ChannelKind string

const (
	ChannelBroadcast ChannelKind = "broadcast"
	ChannelGroup     ChannelKind = "group"
	ChannelChat      ChannelKind = "chat"
)

// LeadStatus is the workflow status of a materialized lead.
type LeadStatus string

const (
	LeadNew        LeadStatus = "new"
	LeadInProgress LeadStatus = "in_progress"
	LeadProcessed  LeadStatus = "processed"
	LeadArchived   LeadStatus = "archived"
)

// NotificationType enumerates the event shapes the Notifier fans out.
type NotificationType string

const (
	NotificationLeadCreated       NotificationType = "lead_created"
	NotificationLeadStatusChanged NotificationType = "lead_status_changed"
	NotificationLeadAssigned      NotificationType = "lead_assigned"
)

// Tenant is a logical workspace owning rules, subscriptions and leads.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Plan      string
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NotificationPrefs are the per-user toggles gating Notifier fan-out.
type NotificationPrefs struct {
	InAppEnabled bool
	EmailEnabled bool
	BotPushEnabled bool

	NotifyOnNewLead      bool
	NotifyOnStatusChange bool
	NotifyOnAssignment   bool
}

// User belongs to exactly one tenant.
type User struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Email        string
	FullName     string
	Role         string
	Active       bool
	Prefs        NotificationPrefs
	BotChatID    string // verified bot-push recipient id (e.g. Telegram chat id)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ChatCredential is an encrypted session a Source Client authenticates with.
type ChatCredential struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	Phone            string
	SessionEncrypted []byte
	Status           CredentialStatus
	LastActiveAt     *time.Time
	CreatedAt        time.Time
}

// Channel is one distinct external chat-platform channel shared across tenants.
type Channel struct {
	ID                    uuid.UUID
	ExternalID            int64
	Handle                string // optional, unique when present
	Title                 string
	Kind                  ChannelKind
	Active                bool
	LastExternalMessageID int64 // best-effort, superseded by the Store's true watermark (spec.md §4.4 step 1)
	LastCollectedAt       *time.Time
	CreatedAt             time.Time
}

// Subscription binds a tenant to a channel via one of its credentials.
type Subscription struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	ChannelID    uuid.UUID
	CredentialID uuid.UUID
	Active       bool
	Tags         []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Schedule is a Rule's optional cron-style eligibility window (spec.md §3,
// "optional schedule descriptor"; see internal/rulesched).
type Schedule struct {
	Cron string `json:"cron,omitempty"`
}

// Rule is a tenant-owned natural-language classification criterion.
type Rule struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Name          string
	Description   string
	Prompt        string
	Threshold     float64 // fixed-point in [0,1]
	ChannelFilter []uuid.UUID // empty/nil = all subscribed channels
	Schedule      *Schedule
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Message is one (channel, external-message-id) entry, deduplicated globally.
type Message struct {
	ID              uuid.UUID
	ChannelID       uuid.UUID
	ExternalID      int64
	Text            string
	AuthorExternalID int64
	AuthorHandle    string
	MediaKind       string
	SentAt          time.Time
	CreatedAt       time.Time
}

// Progress is the per-(rule, channel) resumable classification cursor.
type Progress struct {
	ID                     uuid.UUID
	RuleID                 uuid.UUID
	ChannelID              uuid.UUID
	LastAnalyzedMessageID  *uuid.UUID
	LastAnalyzedSentAt     *time.Time
	LastAnalyzedExternalID int64
	LastAnalyzedAt         *time.Time
	MessagesAnalyzed       int
	LeadsCreated           int
}

// ExtractedEntities is the open entity bag C2.extract returns (spec.md §9:
// "tagged variant with enumerated fields plus an open extension map").
type ExtractedEntities struct {
	Contacts []string          `json:"contacts"`
	Keywords []string          `json:"keywords"`
	Budget   *string           `json:"budget"`
	Deadline *string           `json:"deadline"`
	Summary  string            `json:"summary"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Lead is a durable record that a message matched a rule above its threshold.
// Unique on (TenantID, MessageID, RuleID) — the idempotency key of the pipeline.
type Lead struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	MessageID  uuid.UUID
	RuleID     uuid.UUID
	Score      float64
	Reasoning  string
	Entities   ExtractedEntities
	Status     LeadStatus
	AssigneeID *uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Notification is a tenant-scoped, typed record referencing an optional lead.
// RecipientUserID is the single owning column (spec.md §9 resolves the
// ambiguity between "tenant_id meaning user" seen upstream).
type Notification struct {
	ID              uuid.UUID
	RecipientUserID uuid.UUID
	Type            NotificationType
	Title           string
	Body            string
	LeadID          *uuid.UUID
	Read            bool
	ReadAt          *time.Time
	CreatedAt       time.Time
}
