package middleware

import (
	"context"

	"github.com/vendora-labs/vendora-backend/pkg/auth"
	"github.com/vendora-labs/vendora-backend/pkg/enums"
)

type contextKey string

const ctxActor contextKey = "actor"

// ActorFromContext returns the authenticated actor seeded by the Auth middleware.
func ActorFromContext(ctx context.Context) (auth.AccessTokenPayload, bool) {
	if ctx == nil {
		return auth.AccessTokenPayload{}, false
	}
	actor, ok := ctx.Value(ctxActor).(auth.AccessTokenPayload)
	return actor, ok
}

// RoleFromContext returns the authenticated actor's role, if any.
func RoleFromContext(ctx context.Context) (enums.ActorRole, bool) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return "", false
	}
	return actor.Role, true
}

// WithActor injects the actor into the context.
func WithActor(ctx context.Context, actor auth.AccessTokenPayload) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}
