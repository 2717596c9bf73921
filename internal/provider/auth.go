package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/pquerna/otp/totp"
)

const tokenPath = "/v1/token/api/access"

type tokenRequest struct {
	APIKey string `json:"api_key"`
	Secret string `json:"secret,omitempty"`
	TOTP   string `json:"totp,omitempty"`
}

type tokenResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

// ensureToken returns the cached access token, acquiring one through the
// credential chain on first use.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}
	if c.cfg.AccessToken != "" {
		c.token = c.cfg.AccessToken
		return c.token, nil
	}

	token, err := c.acquireToken(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

// invalidateToken drops the cached token so the next request
// re-authenticates. Static tokens cannot be refreshed and are kept.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.AccessToken != "" {
		return
	}
	c.token = ""
}

// acquireToken walks the credential flows in order and returns the first
// token granted. Callers hold c.mu.
func (c *Client) acquireToken(ctx context.Context) (string, error) {
	type flow struct {
		label string
		req   func() (tokenRequest, error)
		ok    bool
	}

	flows := []flow{
		{
			label: "api key + secret",
			ok:    c.cfg.APIKey != "" && c.cfg.APISecret != "",
			req: func() (tokenRequest, error) {
				return tokenRequest{APIKey: c.cfg.APIKey, Secret: c.cfg.APISecret}, nil
			},
		},
		{
			label: "api key + totp secret",
			ok:    c.cfg.APIKey != "" && c.cfg.TOTPSecret != "",
			req: func() (tokenRequest, error) {
				code, err := totp.GenerateCode(c.cfg.TOTPSecret, time.Now())
				return tokenRequest{APIKey: c.cfg.APIKey, TOTP: code}, err
			},
		},
		{
			label: "api key + totp of api secret",
			ok:    c.cfg.APIKey != "" && c.cfg.APISecret != "",
			req: func() (tokenRequest, error) {
				code, err := totp.GenerateCode(c.cfg.APISecret, time.Now())
				return tokenRequest{APIKey: c.cfg.APIKey, TOTP: code}, err
			},
		},
		{
			label: "totp token + totp secret",
			ok:    c.cfg.TOTPToken != "" && c.cfg.TOTPSecret != "",
			req: func() (tokenRequest, error) {
				code, err := totp.GenerateCode(c.cfg.TOTPSecret, time.Now())
				return tokenRequest{APIKey: c.cfg.TOTPToken, TOTP: code}, err
			},
		},
	}

	var lastErr error
	for _, f := range flows {
		if !f.ok {
			continue
		}
		body, err := f.req()
		if err != nil {
			log.Printf("[provider] %s flow skipped: %v", f.label, err)
			lastErr = err
			continue
		}
		token, err := c.requestToken(ctx, body)
		if err != nil {
			log.Printf("[provider] %s auth failed: %v", f.label, err)
			lastErr = err
			continue
		}
		log.Printf("[provider] access token acquired (%s)", f.label)
		return token, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no usable credential flow")
	}
	return "", fmt.Errorf("groww auth: %w", lastErr)
}

func (c *Client) requestToken(ctx context.Context, body tokenRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+tokenPath, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token endpoint status %d: %s", resp.StatusCode, raw)
	}

	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("token decode: %w", err)
	}
	token := out.Token
	if token == "" {
		token = out.AccessToken
	}
	if token == "" {
		return "", errors.New("token endpoint returned empty token")
	}
	return token, nil
}
