package relay

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quokkahq/tokenforge/pkg/authsdk"
)

// refreshBuffer is how long before expiry a cached token is treated as
// stale, so callers never hand out a token about to die mid-request.
const refreshBuffer = 60 * time.Second

// TokenCache hands out one valid access token at a time. Concurrent callers
// hitting a stale cache are collapsed into a single grant request; everyone
// gets the result of that one flight.
type TokenCache struct {
	sdk      *authsdk.SDKClient
	username string
	password string
	clientID string
	scopes   []string

	group singleflight.Group

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func NewTokenCache(sdk *authsdk.SDKClient, cfg Config) *TokenCache {
	return &TokenCache{
		sdk:      sdk,
		username: cfg.Username,
		password: cfg.Password,
		clientID: cfg.ClientID,
		scopes:   cfg.Scopes,
	}
}

// Token returns a cached access token, fetching a fresh one when the cache
// is empty or inside the refresh buffer.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.RLock()
	token, fresh := c.accessToken, time.Now().Before(c.expiresAt.Add(-refreshBuffer))
	c.mu.RUnlock()

	if token != "" && fresh {
		return token, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		// Another flight may have refilled the cache while we queued.
		c.mu.RLock()
		token, fresh := c.accessToken, time.Now().Before(c.expiresAt.Add(-refreshBuffer))
		c.mu.RUnlock()
		if token != "" && fresh {
			return token, nil
		}

		resp, err := c.fetch(ctx)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.accessToken = resp.AccessToken
		c.refreshToken = resp.RefreshToken
		c.expiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		c.mu.Unlock()

		return resp.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// fetch prefers rotating the held refresh token; a failed rotation (expired,
// revoked, server restarted) falls back to a full password grant.
func (c *TokenCache) fetch(ctx context.Context) (*authsdk.TokenResponse, error) {
	c.mu.RLock()
	refreshToken := c.refreshToken
	c.mu.RUnlock()

	if refreshToken != "" {
		resp, err := c.sdk.RefreshGrant(ctx, refreshToken)
		if err == nil {
			return resp, nil
		}
	}

	return c.sdk.PasswordGrant(ctx, c.username, c.password, c.clientID, c.scopes)
}

// Invalidate drops the cached pair so the next Token call fetches fresh
// credentials. Used when an upstream call comes back 401.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.accessToken = ""
	c.refreshToken = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

// ExpiresAt reports when the cached token expires; zero when the cache is
// cold.
func (c *TokenCache) ExpiresAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expiresAt
}
