// Package scheduler implements Component C7: the single periodic tick that
// drives the collect-then-classify pipeline, grounded on the
// ticker-plus-select worker loop shape in
// _examples/Livepeer-FrameWorks-monorepo/api_dns/internal/worker/renewal.go.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/leadwatch/leadwatch/internal/collector"
	"github.com/leadwatch/leadwatch/internal/ruleproc"
	"github.com/leadwatch/leadwatch/internal/store"
	"github.com/leadwatch/leadwatch/internal/telemetry"
)

var tracer = telemetry.Tracer("scheduler")

// Scheduler runs one tick at a fixed interval: collect new messages for
// every active channel, then classify them against every active tenant's
// rules. A cross-process TickLock keeps two worker replicas from racing the
// same tick.
type Scheduler struct {
	store     *store.Store
	collector *collector.Collector
	processor *ruleproc.Processor
	lock      TickLock
	interval  time.Duration
	logger    *slog.Logger
}

// New builds a Scheduler. redisURL empty falls back to an in-process lock,
// suitable for a single-replica deployment.
func New(st *store.Store, coll *collector.Collector, proc *ruleproc.Processor, redisURL string, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	var lock TickLock
	if redisURL == "" {
		lock = newLocalLock()
	} else {
		rl, err := newRedisLock(redisURL, interval*2)
		if err != nil {
			return nil, err
		}
		lock = rl
	}

	return &Scheduler{
		store:     st,
		collector: coll,
		processor: proc,
		lock:      lock,
		interval:  interval,
		logger:    logger,
	}, nil
}

// Run ticks until ctx is canceled, running one tick immediately on start.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler: starting", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler: stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// RunOnce runs exactly one tick without starting the periodic loop, for
// manual/administrative triggers (spec.md §8, "run_once").
func (s *Scheduler) RunOnce(ctx context.Context) store.TickRecord {
	return s.tick(ctx)
}

func (s *Scheduler) tick(ctx context.Context) store.TickRecord {
	ctx, span := tracer.Start(ctx, "tick")
	defer span.End()

	acquired, release, err := s.lock.Acquire(ctx)
	if err != nil {
		s.logger.Error("scheduler: lock acquire failed", "error", err)
		return store.TickRecord{}
	}
	if !acquired {
		s.logger.Debug("scheduler: another replica holds the tick lock, skipping")
		return store.TickRecord{}
	}
	defer release(ctx)

	record := store.TickRecord{ID: store.GenNewID(), StartedAt: time.Now()}

	collectStats := s.collector.Run(ctx)
	record.ChannelsCollected = collectStats.ChannelsProcessed
	record.MessagesCollected = collectStats.MessagesCollected
	if len(collectStats.Errors) > 0 {
		record.Err = collectStats.Errors[0].Err
	}

	tenants, err := s.store.Tenants.ListActiveTenants(ctx)
	if err != nil {
		s.logger.Error("scheduler: list active tenants failed", "error", err)
		record.Err = err.Error()
	} else {
		for i := range tenants {
			tenantStats := s.processor.ProcessTenant(ctx, tenants[i].ID)
			record.RulesProcessed += tenantStats.RulesProcessed
			record.LeadsCreated += tenantStats.LeadsCreated
			if len(tenantStats.Errors) > 0 && record.Err == "" {
				record.Err = tenantStats.Errors[0]
			}
		}
	}

	record.FinishedAt = time.Now()
	if err := s.store.TickHistory.RecordTick(ctx, &record); err != nil {
		s.logger.Error("scheduler: record tick failed", "error", err)
	}
	if record.Err != "" {
		span.SetStatus(codes.Error, record.Err)
	}

	s.logger.Info("scheduler: tick complete",
		"channels_collected", record.ChannelsCollected,
		"messages_collected", record.MessagesCollected,
		"rules_processed", record.RulesProcessed,
		"leads_created", record.LeadsCreated,
		"duration", record.FinishedAt.Sub(record.StartedAt))
	return record
}
