// Package notifier implements Component C6: fan-out of lead events to a
// user's enabled channels (in-app, email, bot push), grounded on
// _examples/original_source/backend/app/services/notification_service.py.
// Each channel is independently toggled per-user and a delivery failure on
// one channel never blocks the others.
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
	"github.com/leadwatch/leadwatch/internal/store"
)

// NewLeadEvent carries the denormalized context a "new lead" notification's
// title/body need, gathered by the rule processor at creation time rather
// than re-queried here.
type NewLeadEvent struct {
	TenantID          uuid.UUID
	Lead              *domain.Lead
	RuleName          string
	ChannelTitle      string
	ChannelHandle     string
	MessagePreview    string
	MessageExternalID int64
}

// StatusChangeEvent carries the context for a lead status transition.
type StatusChangeEvent struct {
	Lead      *domain.Lead
	RuleName  string
	OldStatus domain.LeadStatus
	NewStatus domain.LeadStatus
}

// AssignmentEvent carries the context for a lead being assigned to a user.
type AssignmentEvent struct {
	Lead         *domain.Lead
	RuleName     string
	ChannelTitle string
	Assignee     *domain.User
}

// Notifier fans a lead event out to whichever of in-app, email and bot push
// a recipient has enabled (spec.md §4.6).
type Notifier struct {
	store   *store.Store
	email   *EmailSender
	botPush *BotPushSender
	logger  *slog.Logger
}

func New(st *store.Store, email *EmailSender, botPush *BotPushSender, logger *slog.Logger) *Notifier {
	return &Notifier{store: st, email: email, botPush: botPush, logger: logger}
}

// NotifyNewLead notifies the first active user of the lead's tenant, mirroring
// the upstream's single-recipient-per-tenant lookup.
func (n *Notifier) NotifyNewLead(ctx context.Context, ev NewLeadEvent) {
	user, err := n.recipientForTenant(ctx, ev.TenantID)
	if err != nil {
		n.logger.Warn("notifier: no recipient for tenant, lead notification dropped", "tenant_id", ev.TenantID, "lead_id", ev.Lead.ID, "error", err)
		return
	}
	if !user.Prefs.NotifyOnNewLead {
		return
	}

	title := fmt.Sprintf("New Lead Found: %s", ev.RuleName)
	body := fmt.Sprintf("A new lead matching rule %q was found in %s with %d%% confidence.",
		ev.RuleName, orUnknown(ev.ChannelTitle), int(ev.Lead.Score*100))

	n.deliver(ctx, user, domain.NotificationLeadCreated, title, body, &ev.Lead.ID)

	if user.Prefs.EmailEnabled && n.email != nil {
		if err := n.email.SendNewLead(ctx, user, ev); err != nil {
			n.logger.Error("notifier: email delivery failed", "user_id", user.ID, "lead_id", ev.Lead.ID, "error", err)
		}
	}
	if user.Prefs.BotPushEnabled && user.BotChatID != "" && n.botPush != nil {
		if err := n.botPush.SendNewLead(ctx, user, ev); err != nil {
			n.logger.Error("notifier: bot push delivery failed", "user_id", user.ID, "lead_id", ev.Lead.ID, "error", err)
		}
	}
}

// NotifyStatusChange notifies a lead's assignee (or tenant recipient) of a
// status transition.
func (n *Notifier) NotifyStatusChange(ctx context.Context, user *domain.User, ev StatusChangeEvent) {
	if !user.Prefs.NotifyOnStatusChange {
		return
	}
	title := fmt.Sprintf("Lead Status Changed: %s -> %s", ev.OldStatus, ev.NewStatus)
	body := fmt.Sprintf("The status of lead %q changed from %s to %s.", ev.RuleName, ev.OldStatus, ev.NewStatus)
	n.deliver(ctx, user, domain.NotificationLeadStatusChanged, title, body, &ev.Lead.ID)

	if user.Prefs.EmailEnabled && n.email != nil {
		if err := n.email.SendStatusChange(ctx, user, ev); err != nil {
			n.logger.Error("notifier: email delivery failed", "user_id", user.ID, "lead_id", ev.Lead.ID, "error", err)
		}
	}
}

// NotifyAssignment notifies a lead's new assignee.
func (n *Notifier) NotifyAssignment(ctx context.Context, ev AssignmentEvent) {
	if !ev.Assignee.Prefs.NotifyOnAssignment {
		return
	}
	title := fmt.Sprintf("Lead Assigned to You: %s", ev.RuleName)
	body := fmt.Sprintf("A lead from %s has been assigned to you.", orUnknown(ev.ChannelTitle))
	n.deliver(ctx, ev.Assignee, domain.NotificationLeadAssigned, title, body, &ev.Lead.ID)

	if ev.Assignee.Prefs.EmailEnabled && n.email != nil {
		if err := n.email.SendAssignment(ctx, ev.Assignee, ev); err != nil {
			n.logger.Error("notifier: email delivery failed", "user_id", ev.Assignee.ID, "lead_id", ev.Lead.ID, "error", err)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, user *domain.User, typ domain.NotificationType, title, body string, leadID *uuid.UUID) {
	if !user.Prefs.InAppEnabled {
		return
	}
	rec := &domain.Notification{
		RecipientUserID: user.ID,
		Type:            typ,
		Title:           title,
		Body:            body,
		LeadID:          leadID,
	}
	if err := n.store.Notifications.InsertNotification(ctx, rec); err != nil {
		n.logger.Error("notifier: in-app insert failed", "user_id", user.ID, "error", err)
		return
	}
	n.logger.Info("notifier: in-app notification created", "user_id", user.ID, "title", title)
}

func (n *Notifier) recipientForTenant(ctx context.Context, tenantID uuid.UUID) (*domain.User, error) {
	users, err := n.store.Users.ListUsersByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Active {
			return &users[i], nil
		}
	}
	return nil, fmt.Errorf("notifier: tenant %s has no active users", tenantID)
}

func orUnknown(s string) string {
	if s == "" {
		return "an unknown channel"
	}
	return s
}
