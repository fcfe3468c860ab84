package httpx

import (
	"context"

	"github.com/quokkahq/tokenforge/pkg/jwex"
)

type ctxKey string

const (
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyUsername ctxKey = "username"
	CtxKeyScopes   ctxKey = "scopes"
	CtxKeyRoles    ctxKey = "roles"
	CtxKeyClaims   ctxKey = "claims"
)

// ClaimsFromContext returns the validated token claims attached by
// AuthnMiddleware, or nil if the request is unauthenticated.
func ClaimsFromContext(ctx context.Context) *jwex.Claims {
	if v, ok := ctx.Value(CtxKeyClaims).(*jwex.Claims); ok {
		return v
	}
	return nil
}

func scopesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyScopes).([]string); ok {
		return v
	}
	return nil
}

func rolesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyRoles).([]string); ok {
		return v
	}
	return nil
}
