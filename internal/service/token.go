package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quokkahq/tokenforge/internal/domain"
	"github.com/quokkahq/tokenforge/internal/store"
	"github.com/quokkahq/tokenforge/pkg/authsdk"
	"github.com/quokkahq/tokenforge/pkg/cryptox"
	"github.com/quokkahq/tokenforge/pkg/jwex"
	"github.com/quokkahq/tokenforge/pkg/slogx"
)

var (
	ErrInvalidRequest           = errors.New("invalid_request")
	ErrInvalidCredentials       = errors.New("invalid_credentials")
	ErrAccountDisabled          = errors.New("account_disabled")
	ErrInvalidRefreshToken      = errors.New("invalid_refresh_token")
	ErrRefreshTokenRevoked      = errors.New("refresh_token_revoked")
	ErrUserNotFound             = errors.New("user_not_found")
	ErrInvalidClientCredentials = errors.New("invalid_client_credentials")
	ErrUnsupportedGrantType     = errors.New("unsupported_grant_type")
)

const (
	// defaultClientID is assumed when a password grant omits client_id.
	defaultClientID = "default-client"

	// defaultScope is granted when a request carries no scope at all.
	defaultScope = "read"
)

// TokenService implements the OAuth2 grant dispatch: password,
// refresh_token and client_credentials grants, plus validation and
// revocation of issued tokens.
type TokenService struct {
	Codec     *jwex.Codec
	Store     store.Store
	AccessTTL time.Duration

	// AllowedClients is the allow-list consulted by the client_credentials
	// grant. Client secrets are not checked beyond non-emptiness; this
	// mirrors a closed deployment where clients are provisioned by ops.
	AllowedClients []string
}

// IssueToken dispatches a token request to the grant handler named by
// grant_type. Matching is case-insensitive; unknown grant types fail with
// ErrUnsupportedGrantType.
func (s *TokenService) IssueToken(ctx context.Context, req authsdk.TokenRequest) (*domain.TokenResponse, error) {
	switch strings.ToLower(req.GrantType) {
	case "password":
		return s.passwordGrant(ctx, req)
	case "refresh_token":
		return s.refreshGrant(ctx, req)
	case "client_credentials":
		return s.clientCredentialsGrant(ctx, req)
	default:
		return nil, ErrUnsupportedGrantType
	}
}

// passwordGrant authenticates the resource owner and issues a fresh token
// pair. Unknown logins, wrong passwords and disabled accounts all produce
// the same error so the endpoint cannot be used to enumerate accounts; the
// login lookup only sees active users.
func (s *TokenService) passwordGrant(ctx context.Context, req authsdk.TokenRequest) (*domain.TokenResponse, error) {
	l := slogx.FromContext(ctx)

	if req.Username == "" || req.Password == "" {
		return nil, ErrInvalidRequest
	}

	user, err := s.Store.Users().GetByLogin(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := cryptox.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		l.Info("password grant authentication failed", slog.String("username", req.Username))
		return nil, ErrInvalidCredentials
	}

	clientID := req.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}

	userID := user.ID
	return s.issue(ctx, s.Store, issueParams{
		UserID:   &userID,
		Username: user.Login,
		Roles:    user.RoleNames(),
		ClientID: clientID,
		Scopes:   parseScopes(req.Scope),
	})
}

// refreshGrant rotates a refresh token: the old record is revoked and a new
// token pair is issued inside one transaction, reusing the old record's
// client and scopes.
func (s *TokenService) refreshGrant(ctx context.Context, req authsdk.TokenRequest) (*domain.TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, ErrInvalidRequest
	}

	var resp *domain.TokenResponse
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		record, err := tx.Tokens().GetByRefreshToken(ctx, req.RefreshToken)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefreshToken
			}
			return err
		}

		// GetByRefreshToken already excludes revoked rows; this guards
		// against drivers that do not.
		if record.Revoked {
			return ErrRefreshTokenRevoked
		}

		if record.UserID == nil {
			return ErrInvalidRefreshToken
		}

		user, err := tx.Users().GetByID(ctx, *record.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if !user.Active {
			return ErrAccountDisabled
		}

		if err := tx.Tokens().Revoke(ctx, record.TokenID); err != nil {
			return err
		}

		userID := user.ID
		resp, err = s.issue(ctx, tx, issueParams{
			UserID:   &userID,
			Username: user.Login,
			Roles:    user.RoleNames(),
			ClientID: record.ClientID,
			Scopes:   record.Scopes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// clientCredentialsGrant issues a token for machine-to-machine callers. The
// client must appear on the allow-list; the minted token carries no user id
// and the API_CLIENT role.
func (s *TokenService) clientCredentialsGrant(ctx context.Context, req authsdk.TokenRequest) (*domain.TokenResponse, error) {
	l := slogx.FromContext(ctx)

	if req.ClientID == "" || req.ClientSecret == "" {
		return nil, ErrInvalidRequest
	}

	if !s.clientAllowed(req.ClientID) {
		l.Info("client_credentials grant rejected", slog.String("client_id", req.ClientID))
		return nil, ErrInvalidClientCredentials
	}

	return s.issue(ctx, s.Store, issueParams{
		Username: req.ClientID,
		Roles:    []string{domain.RoleAPIClient},
		ClientID: req.ClientID,
		Scopes:   parseScopes(req.Scope),
	})
}

func (s *TokenService) clientAllowed(clientID string) bool {
	for _, allowed := range s.AllowedClients {
		if allowed == clientID {
			return true
		}
	}
	return false
}

type issueParams struct {
	UserID   *int64
	Username string
	Roles    []string
	ClientID string
	Scopes   []string
}

// issue is the common issuance tail shared by all grants: mint the JWE,
// generate the opaque refresh token, persist the record and shape the
// RFC 6749 response.
func (s *TokenService) issue(ctx context.Context, st store.Store, p issueParams) (*domain.TokenResponse, error) {
	tokenID := uuid.NewString()
	expiresAt := time.Now().Add(s.AccessTTL)

	accessToken, err := s.Codec.Mint(jwex.MintParams{
		TokenID:   tokenID,
		UserID:    p.UserID,
		Username:  p.Username,
		Roles:     p.Roles,
		ClientID:  p.ClientID,
		Scopes:    p.Scopes,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.Codec.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	_, err = st.Tokens().Save(ctx, domain.AccessToken{
		TokenID:      tokenID,
		TokenValue:   accessToken,
		RefreshToken: refreshToken,
		UserID:       p.UserID,
		ClientID:     p.ClientID,
		Scopes:       p.Scopes,
		ExpiresAt:    expiresAt,
		Revoked:      false,
	})
	if err != nil {
		return nil, err
	}

	return &domain.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
		RefreshToken: refreshToken,
		Scope:        strings.Join(p.Scopes, " "),
	}, nil
}

// ValidateToken reports whether an access token is cryptographically valid
// and inside its validity window. The check is stateless: revocation is
// enforced at refresh time, not here.
func (s *TokenService) ValidateToken(token string) bool {
	return s.Codec.IsValid(token)
}

// RevokeToken revokes a single token by its jti. Unknown jtis are silently
// ignored so revocation is idempotent.
func (s *TokenService) RevokeToken(ctx context.Context, tokenID string) error {
	return s.Store.Tokens().Revoke(ctx, tokenID)
}

// RevokeAllUserTokens bulk-revokes every active token a user holds.
func (s *TokenService) RevokeAllUserTokens(ctx context.Context, userID int64) error {
	return s.Store.Tokens().RevokeAllForUser(ctx, userID)
}

// parseScopes splits a scope string on whitespace and commas, dropping
// empty entries. A blank string yields the default scope.
func parseScopes(scope string) []string {
	fields := strings.FieldsFunc(scope, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == ','
	})
	if len(fields) == 0 {
		return []string{defaultScope}
	}
	return fields
}
