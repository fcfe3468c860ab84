package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Get performs a bearer-authenticated GET against the server, decoding the
// JSON response into out.
func (c *SDKClient) Get(ctx context.Context, path, accessToken string, out any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, out, http.StatusOK)
}

// Post performs a bearer-authenticated POST with a JSON body, decoding the
// JSON response into out.
func (c *SDKClient) Post(ctx context.Context, path, accessToken string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(payload), map[string]string{
		"Authorization": "Bearer " + accessToken,
		"Content-Type":  "application/json",
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, out, http.StatusOK)
}
