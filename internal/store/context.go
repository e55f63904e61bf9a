package store

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	// TenantIDKey is the context key for the tenant a request/job is scoped to.
	TenantIDKey contextKey = "leadwatch_tenant_id"
	// ActorUserIDKey is the context key for the authenticated user, where applicable.
	ActorUserIDKey contextKey = "leadwatch_actor_user_id"
)

// WithTenantID returns a new context scoped to the given tenant.
func WithTenantID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, TenantIDKey, id)
}

// TenantIDFromContext extracts the scoped tenant ID. Returns uuid.Nil if not set.
func TenantIDFromContext(ctx context.Context) uuid.UUID {
	if v, ok := ctx.Value(TenantIDKey).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// WithActorUserID returns a new context carrying the authenticated actor.
func WithActorUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ActorUserIDKey, id)
}

// ActorUserIDFromContext extracts the authenticated actor. Returns uuid.Nil if not set.
func ActorUserIDFromContext(ctx context.Context) uuid.UUID {
	if v, ok := ctx.Value(ActorUserIDKey).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}
