package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/quokkahq/tokenforge/internal/service"
	"github.com/quokkahq/tokenforge/pkg/authsdk"
	"github.com/quokkahq/tokenforge/pkg/httpx"
	"github.com/quokkahq/tokenforge/pkg/slogx"
)

// TokenHandler serves POST /v1/oauth2/token.
// Accepts a JSON body naming the grant type and its parameters.
type TokenHandler struct {
	TokenService *service.TokenService
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest,
			"content-type must be application/json").WriteError(w)
		return
	}

	var req authsdk.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	resp, err := h.TokenService.IssueToken(ctx, req)
	if err != nil {
		writeGrantError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// writeGrantError maps the grant dispatcher's sentinel errors onto a 400
// invalid_request response carrying the sentinel text, mirroring what
// callers key their retry logic on. Anything unexpected becomes a 500.
func writeGrantError(w http.ResponseWriter, log *slog.Logger, err error) {
	known := []error{
		service.ErrInvalidRequest,
		service.ErrInvalidCredentials,
		service.ErrAccountDisabled,
		service.ErrInvalidRefreshToken,
		service.ErrRefreshTokenRevoked,
		service.ErrUserNotFound,
		service.ErrInvalidClientCredentials,
		service.ErrUnsupportedGrantType,
	}
	for _, sentinel := range known {
		if errors.Is(err, sentinel) {
			authsdk.NewOAuth2Error(http.StatusBadRequest,
				authsdk.ErrorCodeInvalidRequest, sentinel.Error()).WriteError(w)
			return
		}
	}

	log.Error("token grant failed", "err", err)
	authsdk.ErrServerError.WriteError(w)
}
