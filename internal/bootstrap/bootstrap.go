// Package bootstrap is the composition root: it constructs every
// dependency the worker process needs, in the fixed order SPEC_FULL.md §4.0
// names, and hands back a fully wired App. No component constructs its own
// dependency — everything is passed in, matching the plain
// constructor-chain style every internal/* package in this repo already
// uses (New(deps...) *T).
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"

	"github.com/leadwatch/leadwatch/internal/collector"
	"github.com/leadwatch/leadwatch/internal/config"
	"github.com/leadwatch/leadwatch/internal/crypto"
	"github.com/leadwatch/leadwatch/internal/httpapi"
	"github.com/leadwatch/leadwatch/internal/llm"
	"github.com/leadwatch/leadwatch/internal/notifier"
	"github.com/leadwatch/leadwatch/internal/ruleproc"
	"github.com/leadwatch/leadwatch/internal/scheduler"
	"github.com/leadwatch/leadwatch/internal/source/telegram"
	"github.com/leadwatch/leadwatch/internal/store"
	"github.com/leadwatch/leadwatch/internal/store/pg"
	"github.com/leadwatch/leadwatch/internal/telemetry"
)

// App holds every long-lived component the worker's main loop drives.
type App struct {
	Config         *config.Config
	Logger         *slog.Logger
	DB             *sql.DB
	Store          *store.Store
	Scheduler      *scheduler.Scheduler
	HTTPServer     *httpapi.Server
	TracerProvider trace.TracerProvider
	tracerShutdown telemetry.Shutdown
}

// Build constructs the App: logger, config, tracer provider, Postgres
// (migrated), crypto box, store, LM client, Telegram source client,
// notifier, collector, rule processor, scheduler, HTTP server — in that
// order, per SPEC_FULL.md §4.0.
func Build(ctx context.Context) (*App, error) {
	logger, err := newLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load config: %w", err)
	}
	// config.Load reads LOG_LEVEL/LOG_FORMAT again with its own defaults;
	// rebuild the logger now that validation has run so everything after
	// this point logs with the operator's actual settings. A config error
	// above is returned to the caller, not logged here.
	logger, err = newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	tracerProvider, tracerShutdown, err := telemetry.Setup(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: setup telemetry: %w", err)
	}

	db, err := pg.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open database: %w", err)
	}
	if err := pg.Migrate(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("bootstrap: migrate database: %w", err)
	}

	box, err := crypto.NewBox([]byte(cfg.EncryptionKey))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: build crypto box: %w", err)
	}

	st := pg.NewStore(db)

	lmClient := llm.NewOpenAIClient(cfg.LMAPIURL, cfg.LMAPIKey, cfg.LMModel, cfg.LMTimeout, logger)

	telegramClient := telegram.New(logger)

	emailSender := notifier.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	var botPush *notifier.BotPushSender
	if cfg.BackendInternalURL != "" {
		botPush = notifier.NewBotPushSender(cfg.BackendInternalURL+"/internal/telegram/send-notification", cfg.BotWebhookSecret, cfg.FrontendURL)
	}
	notif := notifier.New(st, emailSender, botPush, logger)

	coll := collector.New(st, telegramClient, box, logger)
	proc := ruleproc.New(st, lmClient, notif, logger)

	sched, err := scheduler.New(st, coll, proc, cfg.RedisURL, cfg.TickInterval, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: build scheduler: %w", err)
	}

	health := httpapi.NewHealthHandler(st)
	admin := httpapi.NewAdminHandler(sched, cfg.BotWebhookSecret)
	mux := httpapi.NewMux(health, admin)
	httpServer := httpapi.NewServer(cfg.HTTPAddr, mux, logger)

	return &App{
		Config:         cfg,
		Logger:         logger,
		DB:             db,
		Store:          st,
		Scheduler:      sched,
		HTTPServer:     httpServer,
		TracerProvider: tracerProvider,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Close releases resources Build acquired: the tracer provider's exporter
// and the database connection pool. The scheduler and HTTP server are
// drained by the caller's own shutdown sequence, not here.
func (a *App) Close(ctx context.Context) error {
	if err := a.tracerShutdown(ctx); err != nil {
		a.Logger.Error("bootstrap: tracer shutdown failed", "error", err)
	}
	return a.DB.Close()
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(orDefault(level, "info"))); err != nil {
		return nil, fmt.Errorf("bootstrap: parse log level: %w", err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if orDefault(format, "text") == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler), nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
