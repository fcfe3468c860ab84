package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/quokkahq/tokenforge/internal/store"
	"github.com/quokkahq/tokenforge/pkg/authsdk"
	"github.com/quokkahq/tokenforge/pkg/httpx"
	"github.com/quokkahq/tokenforge/pkg/slogx"
)

// ProfileHandler serves GET /v1/api/profile, echoing the caller's claims.
func ProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims := httpx.ClaimsFromContext(r.Context())
	if claims == nil {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"username":  claims.Username,
		"user_id":   claims.UserID,
		"client_id": claims.ClientID,
		"roles":     claims.Roles,
		"scopes":    claims.Scopes,
	})
}

// DataHandler serves GET /v1/api/data, a read-scoped sample resource.
func DataHandler(w http.ResponseWriter, r *http.Request) {
	claims := httpx.ClaimsFromContext(r.Context())
	if claims == nil {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":      "protected data",
		"requested_by": claims.Username,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// CreateDataHandler serves POST /v1/api/data, a write-scoped sample
// resource that echoes back what it was sent.
func CreateDataHandler(w http.ResponseWriter, r *http.Request) {
	claims := httpx.ClaimsFromContext(r.Context())
	if claims == nil {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		authsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"message":    "data created",
		"created_by": claims.Username,
		"data":       payload,
	})
}

// AdminUsersHandler serves GET /v1/api/admin/users, listing every account
// in the directory. Role enforcement happens in the middleware chain;
// password hashes never leave the store layer's boundary here.
func AdminUsersHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := slogx.FromContext(ctx)

		users, err := st.Users().List(ctx)
		if err != nil {
			log.Error("admin user listing failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
			return
		}

		type userSummary struct {
			ID     int64    `json:"id"`
			Name   string   `json:"name"`
			Email  string   `json:"email"`
			Login  string   `json:"login"`
			Active bool     `json:"active"`
			Roles  []string `json:"roles"`
		}

		out := make([]userSummary, 0, len(users))
		for _, u := range users {
			out = append(out, userSummary{
				ID:     u.ID,
				Name:   u.Name,
				Email:  u.Email,
				Login:  u.Login,
				Active: u.Active,
				Roles:  u.RoleNames(),
			})
		}

		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"users": out,
		})
	}
}
