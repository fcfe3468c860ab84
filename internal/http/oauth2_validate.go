package http

import (
	"net/http"

	"github.com/quokkahq/tokenforge/internal/service"
	"github.com/quokkahq/tokenforge/pkg/authsdk"
	"github.com/quokkahq/tokenforge/pkg/httpx"
	"github.com/quokkahq/tokenforge/pkg/jwex"
)

// ValidateHandler serves POST /v1/oauth2/validate.
// Accepts application/x-www-form-urlencoded with a token field. The check is
// stateless: a token revoked after issuance still validates until it expires.
type ValidateHandler struct {
	TokenService *service.TokenService
	Codec        *jwex.Codec
}

func (h *ValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	token := r.Form.Get("token")
	if token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	claims, err := h.Codec.ParseAndValidate(token)
	if err != nil {
		httpx.WriteJSON(w, http.StatusOK, authsdk.ValidateResponse{Valid: false})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.ValidateResponse{
		Valid:    true,
		Username: claims.Username,
		ClientID: claims.ClientID,
		Scopes:   claims.Scopes,
		Roles:    claims.Roles,
	})
}
