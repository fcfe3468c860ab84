package http

import (
	"net/http"

	"github.com/quokkahq/tokenforge/internal/service"
	"github.com/quokkahq/tokenforge/pkg/authsdk"
	"github.com/quokkahq/tokenforge/pkg/httpx"
	"github.com/quokkahq/tokenforge/pkg/slogx"
)

// RevokeHandler serves POST /v1/oauth2/revoke.
// Accepts application/x-www-form-urlencoded with a token_id field. Revoking
// an unknown token id still reports success, keeping revocation idempotent.
type RevokeHandler struct {
	TokenService *service.TokenService
}

func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	tokenID := r.Form.Get("token_id")
	if tokenID == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.TokenService.RevokeToken(ctx, tokenID); err != nil {
		log.Error("token revocation failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message":  "token revoked",
		"token_id": tokenID,
	})
}
