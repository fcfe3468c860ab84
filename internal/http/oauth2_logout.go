package http

import (
	"net/http"
	"strconv"

	"github.com/quokkahq/tokenforge/internal/service"
	"github.com/quokkahq/tokenforge/pkg/authsdk"
	"github.com/quokkahq/tokenforge/pkg/httpx"
	"github.com/quokkahq/tokenforge/pkg/slogx"
)

// LogoutHandler serves POST /v1/oauth2/logout.
// Accepts application/x-www-form-urlencoded with a user_id field and
// revokes every active token that user holds.
type LogoutHandler struct {
	TokenService *service.TokenService
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	userID, err := strconv.ParseInt(r.Form.Get("user_id"), 10, 64)
	if err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.TokenService.RevokeAllUserTokens(ctx, userID); err != nil {
		log.Error("logout failed", "err", err, "user_id", userID)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "all user tokens revoked",
		"user_id": userID,
	})
}
