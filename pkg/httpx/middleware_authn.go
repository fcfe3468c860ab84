package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/quokkahq/tokenforge/pkg/jwex"
	"github.com/quokkahq/tokenforge/pkg/slogx"
)

// TokenValidator decrypts and validates an access token, returning its
// claims. *jwex.Codec satisfies this.
type TokenValidator interface {
	ParseAndValidate(token string) (*jwex.Claims, error)
}

func AuthnMiddleware(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.ParseAndValidate(raw)
			if err != nil {
				writeBearerError(w, "token validation failed")
				log.Warn("token validation failed", "err", err)
				return
			}

			// Inject into context for downstream handlers.
			ctx = contextWithAuth(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithAuth(ctx context.Context, c *jwex.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUsername, c.Username)
	ctx = context.WithValue(ctx, CtxKeyScopes, c.Scopes)
	ctx = context.WithValue(ctx, CtxKeyRoles, c.Roles)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	if c.UserID != nil {
		ctx = context.WithValue(ctx, CtxKeyUserID, *c.UserID)
	}
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
