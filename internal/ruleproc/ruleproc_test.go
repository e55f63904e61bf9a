package ruleproc

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
	"github.com/leadwatch/leadwatch/internal/llm"
	"github.com/leadwatch/leadwatch/internal/store"
)

// fakeLLM returns a fixed classification/extraction pair, letting tests
// drive match/no-match behavior without a network call.
type fakeLLM struct {
	classify llm.ClassifyResult
	extract  domain.ExtractedEntities
}

func (f *fakeLLM) Classify(ctx context.Context, text, prompt string) (llm.ClassifyResult, error) {
	return f.classify, nil
}

func (f *fakeLLM) Extract(ctx context.Context, text string) (domain.ExtractedEntities, error) {
	return f.extract, nil
}

func newTestStore() *store.Store {
	return &store.Store{
		Rules:         &fakeRuleStore{},
		Subscriptions: &fakeSubStore{},
		Progress:      newFakeProgressStore(),
		Messages:      &fakeMessageStore{byChannel: make(map[uuid.UUID][]domain.Message)},
		Leads:         newFakeLeadStore(),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessTenant_CreatesLeadOnMatch(t *testing.T) {
	st := newTestStore()
	tenantID := uuid.New()
	channelID := uuid.New()

	ruleStore := st.Rules.(*fakeRuleStore)
	rule := domain.Rule{ID: uuid.New(), TenantID: tenantID, Name: "hiring-leads", Prompt: "is hiring", Threshold: 0.5, Active: true}
	ruleStore.rules = []domain.Rule{rule}

	subStore := st.Subscriptions.(*fakeSubStore)
	subStore.channels = []domain.Channel{{ID: channelID, Title: "Test Channel"}}

	msgStore := st.Messages.(*fakeMessageStore)
	msgStore.byChannel[channelID] = []domain.Message{
		{ID: uuid.New(), ChannelID: channelID, ExternalID: 1, Text: "we are hiring", SentAt: time.Now()},
	}

	proc := New(st, &fakeLLM{classify: llm.ClassifyResult{IsMatch: true, Confidence: 0.9}}, nil, discardLogger())
	stats := proc.ProcessTenant(context.Background(), tenantID)

	if stats.RulesProcessed != 1 {
		t.Fatalf("expected 1 rule processed, got %d", stats.RulesProcessed)
	}
	if stats.LeadsCreated != 1 {
		t.Fatalf("expected 1 lead created, got %d", stats.LeadsCreated)
	}

	leadStore := st.Leads.(*fakeLeadStore)
	if len(leadStore.leads) != 1 {
		t.Fatalf("expected 1 stored lead, got %d", len(leadStore.leads))
	}
}

func TestProcessTenant_NoLeadBelowThreshold(t *testing.T) {
	st := newTestStore()
	tenantID := uuid.New()
	channelID := uuid.New()

	ruleStore := st.Rules.(*fakeRuleStore)
	rule := domain.Rule{ID: uuid.New(), TenantID: tenantID, Name: "hiring-leads", Prompt: "is hiring", Threshold: 0.9, Active: true}
	ruleStore.rules = []domain.Rule{rule}

	subStore := st.Subscriptions.(*fakeSubStore)
	subStore.channels = []domain.Channel{{ID: channelID, Title: "Test Channel"}}

	msgStore := st.Messages.(*fakeMessageStore)
	msgStore.byChannel[channelID] = []domain.Message{
		{ID: uuid.New(), ChannelID: channelID, ExternalID: 1, Text: "maybe hiring", SentAt: time.Now()},
	}

	proc := New(st, &fakeLLM{classify: llm.ClassifyResult{IsMatch: true, Confidence: 0.4}}, nil, discardLogger())
	stats := proc.ProcessTenant(context.Background(), tenantID)

	if stats.LeadsCreated != 0 {
		t.Fatalf("expected no leads below threshold, got %d", stats.LeadsCreated)
	}
	progressStore := st.Progress.(*fakeProgressStore)
	p := progressStore.byKey[progressKey{rule.ID, channelID}]
	if p == nil || p.MessagesAnalyzed != 1 {
		t.Fatalf("expected progress advanced past the one message, got %+v", p)
	}
}

func TestProcessTenant_SkipsEmptyText(t *testing.T) {
	st := newTestStore()
	tenantID := uuid.New()
	channelID := uuid.New()

	ruleStore := st.Rules.(*fakeRuleStore)
	rule := domain.Rule{ID: uuid.New(), TenantID: tenantID, Prompt: "anything", Threshold: 0.1, Active: true}
	ruleStore.rules = []domain.Rule{rule}

	subStore := st.Subscriptions.(*fakeSubStore)
	subStore.channels = []domain.Channel{{ID: channelID}}

	msgStore := st.Messages.(*fakeMessageStore)
	msgStore.byChannel[channelID] = []domain.Message{
		{ID: uuid.New(), ChannelID: channelID, ExternalID: 1, Text: "", SentAt: time.Now()},
	}

	proc := New(st, &fakeLLM{classify: llm.ClassifyResult{IsMatch: true, Confidence: 1}}, nil, discardLogger())
	stats := proc.ProcessTenant(context.Background(), tenantID)

	if stats.MessagesAnalyzed != 0 {
		t.Fatalf("expected empty-text message not counted as analyzed, got %d", stats.MessagesAnalyzed)
	}
	if stats.LeadsCreated != 0 {
		t.Fatalf("expected no lead from empty text, got %d", stats.LeadsCreated)
	}
}

func TestProcessTenant_ChannelFilterExcludesOthers(t *testing.T) {
	st := newTestStore()
	tenantID := uuid.New()
	includedChannel := uuid.New()
	excludedChannel := uuid.New()

	ruleStore := st.Rules.(*fakeRuleStore)
	rule := domain.Rule{ID: uuid.New(), TenantID: tenantID, Prompt: "x", Threshold: 0.1, Active: true, ChannelFilter: []uuid.UUID{includedChannel}}
	ruleStore.rules = []domain.Rule{rule}

	subStore := st.Subscriptions.(*fakeSubStore)
	subStore.channels = []domain.Channel{{ID: includedChannel}, {ID: excludedChannel}}

	msgStore := st.Messages.(*fakeMessageStore)
	msgStore.byChannel[includedChannel] = []domain.Message{{ID: uuid.New(), ChannelID: includedChannel, ExternalID: 1, Text: "match", SentAt: time.Now()}}
	msgStore.byChannel[excludedChannel] = []domain.Message{{ID: uuid.New(), ChannelID: excludedChannel, ExternalID: 1, Text: "match", SentAt: time.Now()}}

	proc := New(st, &fakeLLM{classify: llm.ClassifyResult{IsMatch: true, Confidence: 1}}, nil, discardLogger())
	stats := proc.ProcessTenant(context.Background(), tenantID)

	if stats.MessagesAnalyzed != 1 {
		t.Fatalf("expected only the included channel's message analyzed, got %d", stats.MessagesAnalyzed)
	}
}
