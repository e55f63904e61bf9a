// Package pg implements the store interfaces on Postgres via database/sql
// and lib/pq, following the column-const-plus-scan-helper idiom of the
// upstream team/tracing stores.
package pg

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/leadwatch/leadwatch/internal/store"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// Open establishes the pooled Postgres connection used by every sub-store.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: open: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// asConflict translates a unique-violation into store.ErrConflict; any other
// error (or nil) passes through unchanged.
func asConflict(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return &store.ErrConflict{Constraint: pqErr.Constraint}
	}
	return err
}

// NewStore wires every sub-store against a single *sql.DB, the shape the
// composition root (internal/bootstrap) hands to the collector, rule
// processor, notifier and HTTP server.
func NewStore(db *sql.DB) *store.Store {
	return &store.Store{
		DB:            db,
		Tenants:       NewTenantStore(db),
		Users:         NewUserStore(db),
		Credentials:   NewCredentialStore(db),
		Channels:      NewChannelStore(db),
		Subscriptions: NewSubscriptionStore(db),
		Messages:      NewMessageStore(db),
		Rules:         NewRuleStore(db),
		Progress:      NewProgressStore(db),
		Leads:         NewLeadStore(db),
		Notifications: NewNotificationStore(db),
		TickHistory:   NewTickHistoryStore(db),
	}
}
