package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/collector"
	"github.com/leadwatch/leadwatch/internal/crypto"
	"github.com/leadwatch/leadwatch/internal/domain"
	"github.com/leadwatch/leadwatch/internal/llm"
	"github.com/leadwatch/leadwatch/internal/ruleproc"
	"github.com/leadwatch/leadwatch/internal/source"
	"github.com/leadwatch/leadwatch/internal/store"
)

func TestLocalLock_ExcludesConcurrentAcquire(t *testing.T) {
	lock := newLocalLock()

	ok1, release1, err := lock.Acquire(context.Background())
	if err != nil || !ok1 {
		t.Fatalf("expected first acquire to succeed, got ok=%v err=%v", ok1, err)
	}

	ok2, _, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error on second acquire: %v", err)
	}
	if ok2 {
		t.Fatal("expected second concurrent acquire to fail while the first holds the lock")
	}

	release1(context.Background())

	ok3, _, err := lock.Acquire(context.Background())
	if err != nil || !ok3 {
		t.Fatalf("expected acquire to succeed after release, got ok=%v err=%v", ok3, err)
	}
}

type noopSource struct{}

func (noopSource) Authenticate(ctx context.Context, phone string) (source.AuthChallenge, error) {
	return source.AuthChallenge{}, nil
}
func (noopSource) Confirm(ctx context.Context, challenge source.AuthChallenge, code string) ([]byte, error) {
	return nil, nil
}
func (noopSource) ListDialogs(ctx context.Context, sessionEncrypted []byte) ([]source.Dialog, error) {
	return nil, nil
}
func (noopSource) FetchNew(ctx context.Context, sessionEncrypted []byte, channel *domain.Channel, afterExternalID int64, limit int) ([]domain.Message, error) {
	return nil, nil
}

type noopLLM struct{}

func (noopLLM) Classify(ctx context.Context, text, prompt string) (llm.ClassifyResult, error) {
	return llm.ClassifyResult{}, nil
}
func (noopLLM) Extract(ctx context.Context, text string) (domain.ExtractedEntities, error) {
	return domain.ExtractedEntities{}, nil
}

type emptyChannelStore struct{}

func (emptyChannelStore) GetChannel(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	return nil, store.ErrNotFound
}
func (emptyChannelStore) UpsertChannel(ctx context.Context, ch *domain.Channel) error { return nil }
func (emptyChannelStore) ListActiveChannels(ctx context.Context) ([]domain.Channel, error) {
	return nil, nil
}
func (emptyChannelStore) ChannelWatermark(ctx context.Context, channelID uuid.UUID) (int64, error) {
	return 0, nil
}
func (emptyChannelStore) TouchCollectedAt(ctx context.Context, channelID uuid.UUID, at time.Time) error {
	return nil
}

type emptyCredentialStore struct{}

func (emptyCredentialStore) GetCredential(ctx context.Context, id uuid.UUID) (*domain.ChatCredential, error) {
	return nil, store.ErrNotFound
}
func (emptyCredentialStore) ListActiveCredentials(ctx context.Context) ([]domain.ChatCredential, error) {
	return nil, nil
}
func (emptyCredentialStore) MarkCredentialStatus(ctx context.Context, id uuid.UUID, status domain.CredentialStatus) error {
	return nil
}

type emptyMessageStore struct{}

func (emptyMessageStore) InsertMessage(ctx context.Context, msg *domain.Message) error { return nil }
func (emptyMessageStore) ListMessagesAfter(ctx context.Context, channelID uuid.UUID, afterSentAt time.Time, afterExternalID int64, limit int) ([]domain.Message, error) {
	return nil, nil
}
func (emptyMessageStore) ListMessagesSince(ctx context.Context, channelID uuid.UUID, since time.Time, limit int) ([]domain.Message, error) {
	return nil, nil
}

type emptyRuleStore struct{}

func (emptyRuleStore) GetRule(ctx context.Context, id uuid.UUID) (*domain.Rule, error) {
	return nil, store.ErrNotFound
}
func (emptyRuleStore) ListActiveRules(ctx context.Context, tenantID uuid.UUID) ([]domain.Rule, error) {
	return nil, nil
}
func (emptyRuleStore) ListAllActiveRules(ctx context.Context) ([]domain.Rule, error) {
	return nil, nil
}
func (emptyRuleStore) UpdateRulePolicy(ctx context.Context, rule *domain.Rule) error { return nil }

type emptySubStore struct{}

func (emptySubStore) ListActiveSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]domain.Subscription, error) {
	return nil, nil
}
func (emptySubStore) ListChannelsForTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.Channel, error) {
	return nil, nil
}

type oneTenantStore struct {
	tenant domain.Tenant
}

func (s oneTenantStore) GetTenant(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return &s.tenant, nil
}
func (s oneTenantStore) ListActiveTenants(ctx context.Context) ([]domain.Tenant, error) {
	return []domain.Tenant{s.tenant}, nil
}

type recordingTickHistoryStore struct {
	recorded []store.TickRecord
}

func (r *recordingTickHistoryStore) RecordTick(ctx context.Context, t *store.TickRecord) error {
	r.recorded = append(r.recorded, *t)
	return nil
}
func (r *recordingTickHistoryStore) ListRecentTicks(ctx context.Context, limit int) ([]store.TickRecord, error) {
	return r.recorded, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunOnceRecordsTickHistory(t *testing.T) {
	tickHistory := &recordingTickHistoryStore{}
	st := &store.Store{
		Tenants:       oneTenantStore{tenant: domain.Tenant{ID: uuid.New()}},
		Channels:      emptyChannelStore{},
		Credentials:   emptyCredentialStore{},
		Messages:      emptyMessageStore{},
		Rules:         emptyRuleStore{},
		Subscriptions: emptySubStore{},
		TickHistory:   tickHistory,
	}

	box, err := crypto.NewBox([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("unexpected error building test crypto box: %v", err)
	}
	coll := collector.New(st, noopSource{}, box, discardLogger())
	proc := ruleproc.New(st, noopLLM{}, nil, discardLogger())

	sched, err := New(st, coll, proc, "", time.Minute, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error building scheduler: %v", err)
	}

	record := sched.RunOnce(context.Background())
	if record.FinishedAt.Before(record.StartedAt) {
		t.Fatal("expected FinishedAt to be at or after StartedAt")
	}
	if len(tickHistory.recorded) != 1 {
		t.Fatalf("expected 1 recorded tick, got %d", len(tickHistory.recorded))
	}
}
