/*
Package authsdk provides a client SDK for interacting with the TokenForge
authorization service.

# Overview

The authsdk package implements an OAuth2-style client for the TokenForge
token endpoint and its protected resource API. It covers the three grant
types the server supports, token validation and revocation, and thin
bearer-authenticated helpers for arbitrary API paths.

# Obtaining Tokens

Create an SDKClient pointed at the server's base URL, then request tokens
with the grant that fits your situation:

	client := authsdk.NewSDKClient("https://auth.example.com")

	// Resource owner password grant
	tokens, err := client.PasswordGrant(ctx, "alice", "s3cret", "oauth2-client", []string{"read", "write"})

	// Rotate a refresh token
	tokens, err = client.RefreshGrant(ctx, tokens.RefreshToken)

	// Machine-to-machine
	tokens, err = client.ClientCredentialsGrant(ctx, "api-client", clientSecret, []string{"read"})

Refresh tokens are single use. Every successful RefreshGrant revokes the
token it consumed and returns a replacement, so callers must store the
RefreshToken from each response.

# Calling Protected Endpoints

Get and Post attach the access token as a Bearer credential and decode the
JSON response:

	var profile map[string]any
	err := client.Get(ctx, "/v1/api/profile", tokens.AccessToken, &profile)

	var created map[string]any
	err = client.Post(ctx, "/v1/api/data", tokens.AccessToken, payload, &created)

# Token Lifecycle

Validate asks the server whether a token is currently parseable and
unexpired. Revoke retires a single token by its token ID; Logout revokes
every token a user holds:

	info, err := client.Validate(ctx, tokens.AccessToken)
	err = client.Revoke(ctx, tokenID)
	err = client.Logout(ctx, userID)

# Error Handling

Failed requests surface as *OAuth2Error carrying the HTTP status, the
OAuth2 error code, and the server's description:

	_, err := client.PasswordGrant(ctx, "alice", "wrong", "", nil)
	var oauthErr *authsdk.OAuth2Error
	if errors.As(err, &oauthErr) {
		fmt.Println(oauthErr.Code, oauthErr.Description)
	}

The same OAuth2Error type is used server-side to write responses, so the
error codes round-trip exactly.
*/
package authsdk
