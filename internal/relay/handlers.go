package relay

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/quokkahq/tokenforge/pkg/authsdk"
	"github.com/quokkahq/tokenforge/pkg/httpx"
	"github.com/quokkahq/tokenforge/pkg/slogx"
)

// handleHello proves the relay can authenticate: it pulls a token from the
// cache (fetching one on a cold start) and confirms the server accepts it.
func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token, err := s.cache.Token(ctx)
	if err != nil {
		log.Error("token acquisition failed", "err", err)
		httpx.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "authorization server unavailable"})
		return
	}

	info, err := s.sdk.Validate(ctx, token)
	if err != nil {
		s.writeUpstreamError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":     "hello from the relay",
		"time":        time.Now().UTC().Format(time.RFC3339),
		"token_valid": info.Valid,
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.proxyGet(w, r, "/v1/api/profile")
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	s.proxyGet(w, r, "/v1/api/data")
}

func (s *Server) handleCreateData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	token, err := s.cache.Token(ctx)
	if err != nil {
		log.Error("token acquisition failed", "err", err)
		httpx.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "authorization server unavailable"})
		return
	}

	var out map[string]any
	if err := s.sdk.Post(ctx, "/v1/api/data", token, payload, &out); err != nil {
		s.writeUpstreamError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// handleTokenInfo reports the state of the relay's token cache without
// exposing the token itself.
func (s *Server) handleTokenInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token, err := s.cache.Token(ctx)
	if err != nil {
		log.Error("token acquisition failed", "err", err)
		httpx.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "authorization server unavailable"})
		return
	}

	info, err := s.sdk.Validate(ctx, token)
	if err != nil {
		s.writeUpstreamError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"valid":      info.Valid,
		"username":   info.Username,
		"client_id":  info.ClientID,
		"scopes":     info.Scopes,
		"roles":      info.Roles,
		"expires_at": s.cache.ExpiresAt().UTC().Format(time.RFC3339),
	})
}

func (s *Server) proxyGet(w http.ResponseWriter, r *http.Request, path string) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token, err := s.cache.Token(ctx)
	if err != nil {
		log.Error("token acquisition failed", "err", err)
		httpx.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "authorization server unavailable"})
		return
	}

	var out map[string]any
	if err := s.sdk.Get(ctx, path, token, &out); err != nil {
		s.writeUpstreamError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// writeUpstreamError relays an upstream failure. A 401 also drops the
// cached token so the next call re-authenticates instead of replaying a
// dead credential.
func (s *Server) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var oauthErr *authsdk.OAuth2Error
	if errors.As(err, &oauthErr) {
		if oauthErr.StatusCode == http.StatusUnauthorized {
			s.cache.Invalidate()
		}
		httpx.WriteJSON(w, oauthErr.StatusCode, map[string]string{
			"error":             oauthErr.Code,
			"error_description": oauthErr.Description,
		})
		return
	}

	log.Error("upstream call failed", "err", err)
	httpx.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream call failed"})
}
