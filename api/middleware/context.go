package middleware

import (
	"context"

	"github.com/angelmondragon/folio-backend/pkg/enums"
	"github.com/google/uuid"
)

type contextKey string

const (
	ctxAdminID  contextKey = "admin_id"
	ctxRole     contextKey = "actor_role"
	ctxAccessID contextKey = "access_id"
)

func AdminIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAdminID).(string); ok {
		return v
	}
	return ""
}

// AdminUUIDFromContext parses the authenticated admin id. It returns uuid.Nil
// for anonymous requests.
func AdminUUIDFromContext(ctx context.Context) uuid.UUID {
	id, err := uuid.Parse(AdminIDFromContext(ctx))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func RoleFromContext(ctx context.Context) enums.AdminRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return enums.AdminRole(v)
	}
	return ""
}

// AccessIDFromContext returns the jti of the bearer token.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithAdmin injects an authenticated identity; used by Auth and handler tests.
func WithAdmin(ctx context.Context, adminID string, role enums.AdminRole, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxAdminID, adminID)
	ctx = context.WithValue(ctx, ctxRole, string(role))
	return context.WithValue(ctx, ctxAccessID, accessID)
}
