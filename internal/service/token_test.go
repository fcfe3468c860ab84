package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quokkahq/tokenforge/internal/domain"
	"github.com/quokkahq/tokenforge/internal/store"
	"github.com/quokkahq/tokenforge/internal/store/drivers/sqlite"
	"github.com/quokkahq/tokenforge/pkg/authsdk"
	"github.com/quokkahq/tokenforge/pkg/cryptox"
	"github.com/quokkahq/tokenforge/pkg/jwex"
)

const testPassword = "correct horse battery staple"

func newTestService(t *testing.T) (*TokenService, *sqlite.Store) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwex.New("tokenforge-test",
		bytes.Repeat([]byte{0x42}, 32),
		bytes.Repeat([]byte{0x17}, 32),
	)
	require.NoError(t, err)

	svc := &TokenService{
		Codec:          codec,
		Store:          st,
		AccessTTL:      time.Hour,
		AllowedClients: []string{"oauth2-client", "api-client"},
	}
	return svc, st
}

func seedActiveUser(t *testing.T, st *sqlite.Store, login string) int64 {
	t.Helper()

	ctx := context.Background()
	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)

	userID, err := st.Users().Create(ctx, domain.User{
		Name:         "Test User",
		Email:        login + "@example.com",
		Login:        login,
		PasswordHash: hash,
		Active:       true,
	})
	require.NoError(t, err)

	roleID, err := st.Users().CreateRole(ctx, domain.Role{Name: domain.RoleUser})
	require.NoError(t, err)
	require.NoError(t, st.Users().AssignRole(ctx, userID, roleID))

	return userID
}

func TestPasswordGrant(t *testing.T) {
	ctx := context.Background()

	t.Run("success issues a full token pair", func(t *testing.T) {
		svc, st := newTestService(t)
		userID := seedActiveUser(t, st, "alice")

		resp, err := svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "password",
			Username:  "alice",
			Password:  testPassword,
			ClientID:  "oauth2-client",
			Scope:     "read write",
		})
		require.NoError(t, err)

		require.Equal(t, "Bearer", resp.TokenType)
		require.EqualValues(t, 3600, resp.ExpiresIn)
		require.NotEmpty(t, resp.AccessToken)
		require.Len(t, resp.RefreshToken, 43, "refresh token comes from the codec: 256 bits base64url")
		require.Equal(t, "read write", resp.Scope)

		claims, err := svc.Codec.ParseAndValidate(resp.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "alice", claims.Username)
		require.Equal(t, "oauth2-client", claims.ClientID)
		require.Equal(t, []string{domain.RoleUser}, claims.Roles)
		require.NotNil(t, claims.UserID)
		require.Equal(t, userID, *claims.UserID)

		record, err := st.Tokens().GetByTokenID(ctx, claims.TokenID)
		require.NoError(t, err)
		require.False(t, record.Revoked)
		require.Equal(t, resp.RefreshToken, record.RefreshToken)
	})

	t.Run("missing username or password", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.IssueToken(ctx, authsdk.TokenRequest{GrantType: "password", Username: "alice"})
		require.ErrorIs(t, err, ErrInvalidRequest)

		_, err = svc.IssueToken(ctx, authsdk.TokenRequest{GrantType: "password", Password: testPassword})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("unknown login and wrong password are indistinguishable", func(t *testing.T) {
		svc, st := newTestService(t)
		seedActiveUser(t, st, "alice")

		_, errUnknown := svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "password", Username: "nobody", Password: testPassword,
		})
		_, errWrong := svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "password", Username: "alice", Password: "wrong password",
		})

		require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
		require.ErrorIs(t, errWrong, ErrInvalidCredentials)
		require.Equal(t, errUnknown.Error(), errWrong.Error())
	})

	t.Run("disabled account is indistinguishable from bad credentials", func(t *testing.T) {
		svc, st := newTestService(t)

		hash, err := cryptox.HashPassword(testPassword)
		require.NoError(t, err)
		_, err = st.Users().Create(ctx, domain.User{
			Name: "Disabled", Email: "disabled@example.com", Login: "disabled",
			PasswordHash: hash, Active: false,
		})
		require.NoError(t, err)

		_, err = svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "password", Username: "disabled", Password: testPassword,
		})
		require.ErrorIs(t, err, ErrInvalidCredentials,
			"a correct password must not reveal that the account exists but is disabled")
	})

	t.Run("blank scope defaults to read", func(t *testing.T) {
		svc, st := newTestService(t)
		seedActiveUser(t, st, "alice")

		resp, err := svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "password", Username: "alice", Password: testPassword,
		})
		require.NoError(t, err)
		require.Equal(t, "read", resp.Scope)
	})

	t.Run("absent client_id falls back to default", func(t *testing.T) {
		svc, st := newTestService(t)
		seedActiveUser(t, st, "alice")

		resp, err := svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "password", Username: "alice", Password: testPassword,
		})
		require.NoError(t, err)
		require.Equal(t, "default-client", svc.Codec.ClientID(resp.AccessToken))
	})
}

func TestRefreshGrant(t *testing.T) {
	ctx := context.Background()

	issue := func(t *testing.T, svc *TokenService) *domain.TokenResponse {
		t.Helper()
		resp, err := svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "password", Username: "alice", Password: testPassword,
			ClientID: "oauth2-client", Scope: "read write",
		})
		require.NoError(t, err)
		return resp
	}

	t.Run("rotates the pair and preserves client and scopes", func(t *testing.T) {
		svc, st := newTestService(t)
		seedActiveUser(t, st, "alice")
		first := issue(t, svc)

		second, err := svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "refresh_token", RefreshToken: first.RefreshToken,
		})
		require.NoError(t, err)

		require.NotEqual(t, first.AccessToken, second.AccessToken)
		require.NotEqual(t, first.RefreshToken, second.RefreshToken)
		require.Equal(t, "read write", second.Scope)
		require.Equal(t, "oauth2-client", svc.Codec.ClientID(second.AccessToken))

		// The old record is revoked by the rotation and disappears from the
		// jti lookup.
		oldClaims, err := svc.Codec.ParseAndValidate(first.AccessToken)
		require.NoError(t, err)
		_, err = st.Tokens().GetByTokenID(ctx, oldClaims.TokenID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("refresh tokens are single use", func(t *testing.T) {
		svc, st := newTestService(t)
		seedActiveUser(t, st, "alice")
		first := issue(t, svc)

		_, err := svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "refresh_token", RefreshToken: first.RefreshToken,
		})
		require.NoError(t, err)

		_, err = svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "refresh_token", RefreshToken: first.RefreshToken,
		})
		require.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("missing refresh token", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.IssueToken(ctx, authsdk.TokenRequest{GrantType: "refresh_token"})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("unknown refresh token", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "refresh_token", RefreshToken: "never-issued",
		})
		require.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("disabled owner blocks refresh", func(t *testing.T) {
		svc, st := newTestService(t)
		userID := seedActiveUser(t, st, "alice")
		first := issue(t, svc)

		require.NoError(t, st.Users().SetActive(ctx, userID, false))

		_, err := svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "refresh_token", RefreshToken: first.RefreshToken,
		})
		require.ErrorIs(t, err, ErrAccountDisabled)
	})
}

func TestClientCredentialsGrant(t *testing.T) {
	ctx := context.Background()

	t.Run("allowed client gets a user-less token", func(t *testing.T) {
		svc, _ := newTestService(t)

		resp, err := svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "client_credentials", ClientID: "api-client", ClientSecret: "secret",
			Scope: "api",
		})
		require.NoError(t, err)

		claims, err := svc.Codec.ParseAndValidate(resp.AccessToken)
		require.NoError(t, err)
		require.Nil(t, claims.UserID)
		require.Equal(t, "api-client", claims.Username)
		require.Equal(t, []string{domain.RoleAPIClient}, claims.Roles)
		require.Equal(t, []string{"api"}, claims.Scopes)
	})

	t.Run("missing credentials", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "client_credentials", ClientID: "api-client",
		})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("unknown client rejected", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "client_credentials", ClientID: "rogue-client", ClientSecret: "secret",
		})
		require.ErrorIs(t, err, ErrInvalidClientCredentials)
	})
}

func TestUnsupportedGrantType(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.IssueToken(context.Background(), authsdk.TokenRequest{GrantType: "authorization_code"})
	require.ErrorIs(t, err, ErrUnsupportedGrantType)
}

func TestGrantTypeCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	seedActiveUser(t, st, "alice")

	resp, err := svc.IssueToken(ctx, authsdk.TokenRequest{
		GrantType: "Password", Username: "alice", Password: testPassword,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)

	rotated, err := svc.IssueToken(ctx, authsdk.TokenRequest{
		GrantType: "REFRESH_TOKEN", RefreshToken: resp.RefreshToken,
	})
	require.NoError(t, err)
	require.NotEqual(t, resp.AccessToken, rotated.AccessToken)
}

func TestValidateToken(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	seedActiveUser(t, st, "alice")

	resp, err := svc.IssueToken(ctx, authsdk.TokenRequest{
		GrantType: "password", Username: "alice", Password: testPassword,
	})
	require.NoError(t, err)

	require.True(t, svc.ValidateToken(resp.AccessToken))
	require.False(t, svc.ValidateToken("garbage"))

	t.Run("validation is stateless across revocation", func(t *testing.T) {
		claims, err := svc.Codec.ParseAndValidate(resp.AccessToken)
		require.NoError(t, err)
		require.NoError(t, svc.RevokeToken(ctx, claims.TokenID))

		require.True(t, svc.ValidateToken(resp.AccessToken),
			"revocation is enforced at refresh time, not validation")
	})
}

func TestRevokeToken(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	seedActiveUser(t, st, "alice")

	resp, err := svc.IssueToken(ctx, authsdk.TokenRequest{
		GrantType: "password", Username: "alice", Password: testPassword,
	})
	require.NoError(t, err)

	claims, err := svc.Codec.ParseAndValidate(resp.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeToken(ctx, claims.TokenID))

	_, err = st.Tokens().GetByTokenID(ctx, claims.TokenID)
	require.ErrorIs(t, err, store.ErrNotFound)

	t.Run("revoked refresh token no longer rotates", func(t *testing.T) {
		_, err := svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "refresh_token", RefreshToken: resp.RefreshToken,
		})
		require.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("revoking twice is idempotent", func(t *testing.T) {
		require.NoError(t, svc.RevokeToken(ctx, claims.TokenID))
	})

	t.Run("revoking an unknown jti is silent", func(t *testing.T) {
		require.NoError(t, svc.RevokeToken(ctx, "never-issued"))
	})
}

func TestRevokeAllUserTokens(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	userID := seedActiveUser(t, st, "alice")

	for i := 0; i < 3; i++ {
		_, err := svc.IssueToken(ctx, authsdk.TokenRequest{
			GrantType: "password", Username: "alice", Password: testPassword,
		})
		require.NoError(t, err)
	}

	require.NoError(t, svc.RevokeAllUserTokens(ctx, userID))

	records, err := st.Tokens().ListByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, record := range records {
		require.True(t, record.Revoked)
	}
}

func TestParseScopes(t *testing.T) {
	tests := []struct {
		name  string
		scope string
		want  []string
	}{
		{"blank defaults to read", "", []string{"read"}},
		{"whitespace only defaults to read", "   ", []string{"read"}},
		{"space delimited", "read write", []string{"read", "write"}},
		{"comma delimited", "read,write", []string{"read", "write"}},
		{"mixed separators with empties", "read, write  admin", []string{"read", "write", "admin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, parseScopes(tt.scope))
		})
	}
}
