package ruleproc

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
	"github.com/leadwatch/leadwatch/internal/store"
)

type fakeRuleStore struct {
	rules []domain.Rule
}

func (f *fakeRuleStore) GetRule(ctx context.Context, id uuid.UUID) (*domain.Rule, error) {
	for i := range f.rules {
		if f.rules[i].ID == id {
			return &f.rules[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRuleStore) ListActiveRules(ctx context.Context, tenantID uuid.UUID) ([]domain.Rule, error) {
	var out []domain.Rule
	for _, r := range f.rules {
		if r.TenantID == tenantID && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleStore) ListAllActiveRules(ctx context.Context) ([]domain.Rule, error) {
	return f.rules, nil
}

func (f *fakeRuleStore) UpdateRulePolicy(ctx context.Context, rule *domain.Rule) error {
	return nil
}

type fakeSubStore struct {
	channels []domain.Channel
}

func (f *fakeSubStore) ListActiveSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]domain.Subscription, error) {
	return nil, nil
}

func (f *fakeSubStore) ListChannelsForTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.Channel, error) {
	return f.channels, nil
}

type progressKey struct {
	ruleID    uuid.UUID
	channelID uuid.UUID
}

type fakeProgressStore struct {
	byKey map[progressKey]*domain.Progress
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{byKey: make(map[progressKey]*domain.Progress)}
}

func (f *fakeProgressStore) GetOrInitProgress(ctx context.Context, ruleID, channelID uuid.UUID) (*domain.Progress, error) {
	key := progressKey{ruleID, channelID}
	if p, ok := f.byKey[key]; ok {
		cp := *p
		return &cp, nil
	}
	p := &domain.Progress{ID: uuid.New(), RuleID: ruleID, ChannelID: channelID}
	f.byKey[key] = p
	cp := *p
	return &cp, nil
}

func (f *fakeProgressStore) AdvanceProgress(ctx context.Context, p *domain.Progress) error {
	cp := *p
	f.byKey[progressKey{p.RuleID, p.ChannelID}] = &cp
	return nil
}

func (f *fakeProgressStore) ResetProgressForRule(ctx context.Context, ruleID uuid.UUID) error {
	for k := range f.byKey {
		if k.ruleID == ruleID {
			delete(f.byKey, k)
		}
	}
	return nil
}

func (f *fakeProgressStore) DeactivateProgressForChannels(ctx context.Context, ruleID uuid.UUID, channelIDs []uuid.UUID) error {
	return nil
}

type fakeMessageStore struct {
	byChannel map[uuid.UUID][]domain.Message
}

func (f *fakeMessageStore) InsertMessage(ctx context.Context, msg *domain.Message) error {
	if f.byChannel == nil {
		f.byChannel = make(map[uuid.UUID][]domain.Message)
	}
	f.byChannel[msg.ChannelID] = append(f.byChannel[msg.ChannelID], *msg)
	return nil
}

func (f *fakeMessageStore) ListMessagesAfter(ctx context.Context, channelID uuid.UUID, afterSentAt time.Time, afterExternalID int64, limit int) ([]domain.Message, error) {
	return f.filtered(channelID, func(m domain.Message) bool {
		if m.SentAt.Equal(afterSentAt) {
			return m.ExternalID > afterExternalID
		}
		return m.SentAt.After(afterSentAt)
	}, limit)
}

func (f *fakeMessageStore) ListMessagesSince(ctx context.Context, channelID uuid.UUID, since time.Time, limit int) ([]domain.Message, error) {
	return f.filtered(channelID, func(m domain.Message) bool { return !m.SentAt.Before(since) }, limit)
}

func (f *fakeMessageStore) filtered(channelID uuid.UUID, keep func(domain.Message) bool, limit int) ([]domain.Message, error) {
	all := append([]domain.Message(nil), f.byChannel[channelID]...)
	sort.Slice(all, func(i, j int) bool {
		if !all[i].SentAt.Equal(all[j].SentAt) {
			return all[i].SentAt.Before(all[j].SentAt)
		}
		return all[i].ExternalID < all[j].ExternalID
	})

	var out []domain.Message
	for _, m := range all {
		if keep(m) {
			out = append(out, m)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

type fakeLeadStore struct {
	leads []domain.Lead
	seen  map[[3]uuid.UUID]bool
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{seen: make(map[[3]uuid.UUID]bool)}
}

func (f *fakeLeadStore) InsertLead(ctx context.Context, lead *domain.Lead) error {
	key := [3]uuid.UUID{lead.TenantID, lead.MessageID, lead.RuleID}
	if f.seen[key] {
		return &store.ErrConflict{Constraint: "leads_tenant_message_rule_key"}
	}
	f.seen[key] = true
	lead.ID = uuid.New()
	f.leads = append(f.leads, *lead)
	return nil
}

func (f *fakeLeadStore) GetLead(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	for i := range f.leads {
		if f.leads[i].ID == id {
			return &f.leads[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeLeadStore) GetLeadByMessageRule(ctx context.Context, tenantID, messageID, ruleID uuid.UUID) (*domain.Lead, error) {
	for i := range f.leads {
		l := &f.leads[i]
		if l.TenantID == tenantID && l.MessageID == messageID && l.RuleID == ruleID {
			return l, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeLeadStore) UpdateLeadStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus) error {
	return nil
}

func (f *fakeLeadStore) ListLeadsByTenant(ctx context.Context, tenantID uuid.UUID, status domain.LeadStatus, limit, offset int) ([]domain.Lead, error) {
	return nil, nil
}
