package notifier

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
	"github.com/leadwatch/leadwatch/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserStore struct {
	users []domain.User
}

func (f *fakeUserStore) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for i := range f.users {
		if f.users[i].ID == id {
			return &f.users[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) ListUsersByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.users {
		if u.TenantID == tenantID {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeNotificationStore struct {
	inserted []domain.Notification
}

func (f *fakeNotificationStore) InsertNotification(ctx context.Context, n *domain.Notification) error {
	f.inserted = append(f.inserted, *n)
	return nil
}

func (f *fakeNotificationStore) ListUnreadByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	return nil, nil
}

func (f *fakeNotificationStore) MarkRead(ctx context.Context, id uuid.UUID) error { return nil }

func newTestStore(users []domain.User, notifications *fakeNotificationStore) *store.Store {
	return &store.Store{
		Users:         &fakeUserStore{users: users},
		Notifications: notifications,
	}
}

func TestNotifyNewLead_InsertsInAppNotificationWhenEnabled(t *testing.T) {
	tenantID := uuid.New()
	user := domain.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Active:   true,
		Prefs:    domain.NotificationPrefs{InAppEnabled: true, NotifyOnNewLead: true},
	}
	notifications := &fakeNotificationStore{}
	n := New(newTestStore([]domain.User{user}, notifications), nil, nil, discardLogger())

	lead := &domain.Lead{ID: uuid.New(), TenantID: tenantID, Score: 0.75}
	n.NotifyNewLead(context.Background(), NewLeadEvent{TenantID: tenantID, Lead: lead, RuleName: "hiring intent", ChannelTitle: "#general"})

	if len(notifications.inserted) != 1 {
		t.Fatalf("expected 1 notification inserted, got %d", len(notifications.inserted))
	}
	if notifications.inserted[0].RecipientUserID != user.ID {
		t.Fatalf("expected notification addressed to %s, got %s", user.ID, notifications.inserted[0].RecipientUserID)
	}
	if notifications.inserted[0].Type != domain.NotificationLeadCreated {
		t.Fatalf("unexpected notification type: %v", notifications.inserted[0].Type)
	}
}

func TestNotifyNewLead_SkipsWhenNewLeadToggleDisabled(t *testing.T) {
	tenantID := uuid.New()
	user := domain.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Active:   true,
		Prefs:    domain.NotificationPrefs{InAppEnabled: true, NotifyOnNewLead: false},
	}
	notifications := &fakeNotificationStore{}
	n := New(newTestStore([]domain.User{user}, notifications), nil, nil, discardLogger())

	lead := &domain.Lead{ID: uuid.New(), TenantID: tenantID, Score: 0.5}
	n.NotifyNewLead(context.Background(), NewLeadEvent{TenantID: tenantID, Lead: lead, RuleName: "r"})

	if len(notifications.inserted) != 0 {
		t.Fatalf("expected no notification when NotifyOnNewLead is disabled, got %d", len(notifications.inserted))
	}
}

func TestNotifyNewLead_SkipsInAppInsertWhenInAppDisabled(t *testing.T) {
	tenantID := uuid.New()
	user := domain.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Active:   true,
		Prefs:    domain.NotificationPrefs{InAppEnabled: false, NotifyOnNewLead: true},
	}
	notifications := &fakeNotificationStore{}
	n := New(newTestStore([]domain.User{user}, notifications), nil, nil, discardLogger())

	lead := &domain.Lead{ID: uuid.New(), TenantID: tenantID, Score: 0.5}
	n.NotifyNewLead(context.Background(), NewLeadEvent{TenantID: tenantID, Lead: lead, RuleName: "r"})

	if len(notifications.inserted) != 0 {
		t.Fatalf("expected no in-app insert when InAppEnabled is false, got %d", len(notifications.inserted))
	}
}

func TestNotifyNewLead_NoActiveUserLogsAndReturns(t *testing.T) {
	tenantID := uuid.New()
	notifications := &fakeNotificationStore{}
	n := New(newTestStore(nil, notifications), nil, nil, discardLogger())

	lead := &domain.Lead{ID: uuid.New(), TenantID: tenantID, Score: 0.5}
	n.NotifyNewLead(context.Background(), NewLeadEvent{TenantID: tenantID, Lead: lead, RuleName: "r"})

	if len(notifications.inserted) != 0 {
		t.Fatalf("expected no notifications with no active user, got %d", len(notifications.inserted))
	}
}

func TestNotifyStatusChange_InsertsWhenEnabled(t *testing.T) {
	tenantID := uuid.New()
	user := &domain.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Active:   true,
		Prefs:    domain.NotificationPrefs{InAppEnabled: true, NotifyOnStatusChange: true},
	}
	notifications := &fakeNotificationStore{}
	n := New(newTestStore(nil, notifications), nil, nil, discardLogger())

	lead := &domain.Lead{ID: uuid.New(), TenantID: tenantID}
	n.NotifyStatusChange(context.Background(), user, StatusChangeEvent{Lead: lead, RuleName: "r", OldStatus: domain.LeadNew, NewStatus: domain.LeadProcessed})

	if len(notifications.inserted) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications.inserted))
	}
	if notifications.inserted[0].Type != domain.NotificationLeadStatusChanged {
		t.Fatalf("unexpected notification type: %v", notifications.inserted[0].Type)
	}
}

func TestNotifyAssignment_SkipsWhenToggleDisabled(t *testing.T) {
	tenantID := uuid.New()
	assignee := &domain.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Active:   true,
		Prefs:    domain.NotificationPrefs{InAppEnabled: true, NotifyOnAssignment: false},
	}
	notifications := &fakeNotificationStore{}
	n := New(newTestStore(nil, notifications), nil, nil, discardLogger())

	lead := &domain.Lead{ID: uuid.New(), TenantID: tenantID}
	n.NotifyAssignment(context.Background(), AssignmentEvent{Lead: lead, RuleName: "r", Assignee: assignee})

	if len(notifications.inserted) != 0 {
		t.Fatalf("expected no notification when NotifyOnAssignment is disabled, got %d", len(notifications.inserted))
	}
}
