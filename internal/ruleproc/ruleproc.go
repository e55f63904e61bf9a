// Package ruleproc implements Component C5: per-tenant rule processing
// against the globally collected message log, using a resumable
// (rule, channel) progress cursor instead of re-scanning history every
// tick. Grounded on
// _examples/original_source/backend/app/services/rule_processor_v2.py.
package ruleproc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
	"github.com/leadwatch/leadwatch/internal/llm"
	"github.com/leadwatch/leadwatch/internal/notifier"
	"github.com/leadwatch/leadwatch/internal/rulesched"
	"github.com/leadwatch/leadwatch/internal/stepoutcome"
	"github.com/leadwatch/leadwatch/internal/store"
	"github.com/leadwatch/leadwatch/internal/telemetry"
)

var tracer = telemetry.Tracer("ruleproc")

// firstContactBackfill bounds how far back a brand-new (rule, channel) pair
// looks on its first run (spec.md §4.5; matches the source's
// `five_days_ago` constant).
const firstContactBackfill = 5 * 24 * time.Hour

const messagesPerPass = 100

// TenantStats mirrors the upstream process_rules_for_tenant return shape.
type TenantStats struct {
	TenantID         uuid.UUID
	RulesProcessed   int
	MessagesAnalyzed int
	LeadsCreated     int
	LeadIDs          []uuid.UUID
	Errors           []string
}

// Processor classifies newly collected messages against a tenant's active
// rules and materializes leads.
type Processor struct {
	store    *store.Store
	llm      llm.Client
	notifier *notifier.Notifier
	logger   *slog.Logger
}

func New(st *store.Store, llmClient llm.Client, n *notifier.Notifier, logger *slog.Logger) *Processor {
	return &Processor{store: st, llm: llmClient, notifier: n, logger: logger}
}

// ProcessTenant runs every active rule for one tenant.
func (p *Processor) ProcessTenant(ctx context.Context, tenantID uuid.UUID) TenantStats {
	ctx, span := tracer.Start(ctx, "process_tenant")
	defer span.End()

	stats := TenantStats{TenantID: tenantID}

	rules, err := p.store.Rules.ListActiveRules(ctx, tenantID)
	if err != nil {
		stats.Errors = append(stats.Errors, "list active rules: "+err.Error())
		return stats
	}
	if len(rules) == 0 {
		return stats
	}

	now := time.Now()
	for i := range rules {
		rule := &rules[i]
		if !rulesched.Eligible(rule, now) {
			continue
		}
		result, err := p.processRule(ctx, tenantID, rule)
		stats.RulesProcessed++
		stats.MessagesAnalyzed += result.messagesAnalyzed
		stats.LeadsCreated += result.leadsCreated
		stats.LeadIDs = append(stats.LeadIDs, result.leadIDs...)
		if err != nil {
			stats.Errors = append(stats.Errors, "rule "+rule.ID.String()+": "+err.Error())
		}
	}
	return stats
}

type ruleResult struct {
	messagesAnalyzed int
	leadsCreated     int
	leadIDs          []uuid.UUID
}

func (p *Processor) processRule(ctx context.Context, tenantID uuid.UUID, rule *domain.Rule) (ruleResult, error) {
	var result ruleResult

	channels, err := p.store.Subscriptions.ListChannelsForTenant(ctx, tenantID)
	if err != nil {
		return result, err
	}
	if len(channels) == 0 {
		return result, nil
	}

	filter := channelFilterSet(rule.ChannelFilter)

	for i := range channels {
		ch := &channels[i]
		if filter != nil && !filter[ch.ID] {
			continue
		}
		if err := p.processRuleChannel(ctx, tenantID, rule, ch, &result); err != nil {
			p.logger.Error("ruleproc: channel failed", "rule_id", rule.ID, "channel_id", ch.ID, "error", err)
		}
	}
	return result, nil
}

func channelFilterSet(ids []uuid.UUID) map[uuid.UUID]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (p *Processor) processRuleChannel(ctx context.Context, tenantID uuid.UUID, rule *domain.Rule, ch *domain.Channel, result *ruleResult) error {
	progress, err := p.store.Progress.GetOrInitProgress(ctx, rule.ID, ch.ID)
	if err != nil {
		return err
	}

	var messages []domain.Message
	if progress.LastAnalyzedSentAt != nil {
		messages, err = p.store.Messages.ListMessagesAfter(ctx, ch.ID, *progress.LastAnalyzedSentAt, progress.LastAnalyzedExternalID, messagesPerPass)
	} else {
		since := time.Now().Add(-firstContactBackfill)
		p.logger.Info("ruleproc: new rule-channel pair, backfilling", "rule_id", rule.ID, "channel_id", ch.ID, "since", since)
		messages, err = p.store.Messages.ListMessagesSince(ctx, ch.ID, since, messagesPerPass)
	}
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	p.logger.Info("ruleproc: processing messages", "rule_id", rule.ID, "channel_id", ch.ID, "count", len(messages))

	for i := range messages {
		msg := &messages[i]
		outcome := p.processMessage(ctx, tenantID, rule, ch, msg, progress, result)
		if !outcome.ShouldAdvanceCursor() {
			// A transient failure stops this channel's pass; the next tick
			// retries starting from the unmoved cursor (spec.md §4.5).
			return outcome.Err
		}
		progress.LastAnalyzedMessageID = &msg.ID
		progress.LastAnalyzedSentAt = &msg.SentAt
		progress.LastAnalyzedExternalID = msg.ExternalID
		progress.MessagesAnalyzed++
		if err := p.store.Progress.AdvanceProgress(ctx, progress); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, tenantID uuid.UUID, rule *domain.Rule, ch *domain.Channel, msg *domain.Message, progress *domain.Progress, result *ruleResult) stepoutcome.Outcome {
	if msg.Text == "" {
		return stepoutcome.Advance()
	}

	// A lead for this (tenant, message, rule) triple may already exist from
	// a prior, interrupted run — advance past it without spending another
	// LM call (spec.md §4.5 step 3(a)).
	if existing, err := p.store.Leads.GetLeadByMessageRule(ctx, tenantID, msg.ID, rule.ID); err == nil {
		result.leadIDs = append(result.leadIDs, existing.ID)
		return stepoutcome.Advance()
	} else if !errors.Is(err, store.ErrNotFound) {
		return stepoutcome.Retain(err)
	}

	result.messagesAnalyzed++

	classification, err := p.llm.Classify(ctx, msg.Text, rule.Prompt)
	if err != nil {
		return stepoutcome.Retain(err)
	}

	if !classification.IsMatch || classification.Confidence < rule.Threshold {
		return stepoutcome.Advance()
	}

	lead, created, err := p.createLead(ctx, tenantID, msg, rule, ch, classification)
	if err != nil {
		p.logger.Error("ruleproc: create lead failed", "rule_id", rule.ID, "message_id", msg.ID, "error", err)
		return stepoutcome.Retain(err)
	}

	if created {
		result.leadsCreated++
		progress.LeadsCreated++
		p.logger.Info("ruleproc: lead created", "message_id", msg.ID, "rule_id", rule.ID, "score", lead.Score)
	}
	result.leadIDs = append(result.leadIDs, lead.ID)
	return stepoutcome.Ok()
}

// createLead reports whether it newly inserted a lead, as distinct from
// finding one already there from a prior, interrupted run — callers must
// not double-count the latter into their created-lead tallies.
func (p *Processor) createLead(ctx context.Context, tenantID uuid.UUID, msg *domain.Message, rule *domain.Rule, ch *domain.Channel, classification llm.ClassifyResult) (*domain.Lead, bool, error) {
	entities, err := p.llm.Extract(ctx, msg.Text)
	if err != nil {
		p.logger.Warn("ruleproc: entity extraction failed, using summary fallback", "message_id", msg.ID, "error", err)
		entities = domain.ExtractedEntities{Summary: truncate(msg.Text, 200)}
	}

	lead := &domain.Lead{
		TenantID:  tenantID,
		MessageID: msg.ID,
		RuleID:    rule.ID,
		Score:     classification.Confidence,
		Reasoning: classification.Reasoning,
		Entities:  entities,
		Status:    domain.LeadNew,
	}

	if err := p.store.Leads.InsertLead(ctx, lead); err != nil {
		var conflict *store.ErrConflict
		if errors.As(err, &conflict) {
			// Already a lead from a prior, interrupted run — idempotent no-op.
			existing, getErr := p.store.Leads.GetLeadByMessageRule(ctx, tenantID, msg.ID, rule.ID)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	if p.notifier != nil {
		p.notifier.NotifyNewLead(ctx, notifier.NewLeadEvent{
			TenantID:          tenantID,
			Lead:              lead,
			RuleName:          rule.Name,
			ChannelTitle:      ch.Title,
			ChannelHandle:     ch.Handle,
			MessagePreview:    msg.Text,
			MessageExternalID: msg.ExternalID,
		})
	}
	return lead, true, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
