package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// PasswordGrant requests tokens using the resource owner's username and
// password.
func (c *SDKClient) PasswordGrant(
	ctx context.Context,
	username, password, clientID string,
	scopes []string,
) (*TokenResponse, error) {
	req := TokenRequest{
		GrantType: "password",
		Username:  username,
		Password:  password,
		ClientID:  clientID,
		Scope:     strings.Join(scopes, " "),
	}
	return c.requestToken(ctx, req)
}

// RefreshGrant requests new tokens using a refresh token. The server rotates
// the refresh token; the old one is revoked once this call succeeds.
func (c *SDKClient) RefreshGrant(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	req := TokenRequest{
		GrantType:    "refresh_token",
		RefreshToken: refreshToken,
	}
	return c.requestToken(ctx, req)
}

// ClientCredentialsGrant requests an access token for machine-to-machine
// authentication. No refresh token is returned for this grant on the wire,
// but the server still issues one; clients normally just re-authenticate.
func (c *SDKClient) ClientCredentialsGrant(
	ctx context.Context,
	clientID, clientSecret string,
	scopes []string,
) (*TokenResponse, error) {
	req := TokenRequest{
		GrantType:    "client_credentials",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scope:        strings.Join(scopes, " "),
	}
	return c.requestToken(ctx, req)
}

// Validate asks the server whether an access token is currently valid.
func (c *SDKClient) Validate(ctx context.Context, token string) (*ValidateResponse, error) {
	data := url.Values{"token": {token}}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/oauth2/validate",
		strings.NewReader(data.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
	)
	if err != nil {
		return nil, err
	}

	var out ValidateResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Revoke revokes a single token by its token ID (jti). Revoking an unknown
// token is not an error.
func (c *SDKClient) Revoke(ctx context.Context, tokenID string) error {
	return c.postForm(ctx, "/v1/oauth2/revoke", url.Values{"token_id": {tokenID}})
}

// Logout revokes every active token belonging to a user.
func (c *SDKClient) Logout(ctx context.Context, userID int64) error {
	return c.postForm(ctx, "/v1/oauth2/logout", url.Values{"user_id": {fmt.Sprint(userID)}})
}

func (c *SDKClient) postForm(ctx context.Context, path string, data url.Values) error {
	resp, err := c.doRequest(ctx, http.MethodPost, path,
		strings.NewReader(data.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
	)
	if err != nil {
		return err
	}

	var out map[string]any
	return decodeJSON(resp, &out, http.StatusOK)
}

func (c *SDKClient) requestToken(ctx context.Context, tokenReq TokenRequest) (*TokenResponse, error) {
	body, err := json.Marshal(tokenReq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/oauth2/token",
		bytes.NewReader(body),
		map[string]string{"Content-Type": "application/json"},
	)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}
