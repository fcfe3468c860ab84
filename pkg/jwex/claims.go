package jwex

import "time"

// Claims is the decrypted claim set carried inside an access token.
type Claims struct {
	Subject  string
	Issuer   string
	Audience string

	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time

	// TokenID is the unique token identifier (jti), matching the persisted
	// access token record.
	TokenID string

	UserID   *int64 // nil for client_credentials tokens
	Username string
	Roles    []string
	ClientID string
	Scopes   []string
}

// HasRole reports whether the claim set carries the given role name.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasScope reports whether the claim set carries the given scope.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// privateClaims are the non-registered claims embedded alongside the
// standard JWT claim names.
type privateClaims struct {
	UserID   *int64   `json:"user_id,omitempty"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes"`
}
