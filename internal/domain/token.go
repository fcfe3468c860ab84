package domain

import "time"

// TokenResponse is what the token endpoint returns the short-lived access
// token (JWE) and the opaque refresh token.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"` // always "Bearer"
	ExpiresIn    int64  `json:"expires_in"` // seconds until expiry
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"` // space-delimited
}

// AccessToken models the stored access token record in the DB.
type AccessToken struct {
	ID           int64
	TokenID      string // jti claim, unique
	TokenValue   string // full JWE compact serialization
	RefreshToken string
	UserID       *int64 // nil for client_credentials tokens
	ClientID     string
	Scopes       []string // comma-joined in storage
	ExpiresAt    time.Time
	CreatedAt    time.Time
	Revoked      bool
}

// Expired reports whether the record's expiry has passed.
func (t *AccessToken) Expired() bool {
	return time.Now().After(t.ExpiresAt)
}
