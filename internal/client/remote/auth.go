package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mihailsb/docsync/internal/api"
	"github.com/mihailsb/docsync/internal/common"
)

// Ping probes server reachability.
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSONOnce(ctx, http.MethodGet, "/api/health", nil, nil)
}

// Register creates an account and establishes a session.
func (c *Client) Register(ctx context.Context, email, password string) error {
	var resp api.TokenResponse
	err := c.doJSONOnce(ctx, http.MethodPost, "/api/auth/register", api.RegisterRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return err
	}
	c.setSession(resp.UserID, resp.AccessToken, resp.RefreshToken)
	return nil
}

// Login establishes a session.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp api.TokenResponse
	err := c.doJSONOnce(ctx, http.MethodPost, "/api/auth/login", api.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return err
	}
	c.setSession(resp.UserID, resp.AccessToken, resp.RefreshToken)
	return nil
}

// RefreshCredentials exchanges the refresh token for a new token pair. The
// retry manager calls it once before retrying an auth-classified failure.
func (c *Client) RefreshCredentials(ctx context.Context) error {
	_, refresh := c.tokens()
	if refresh == "" {
		return fmt.Errorf("no refresh token: %w", common.ErrUnauthorized)
	}

	var resp api.TokenResponse
	err := c.doJSONOnce(ctx, http.MethodPost, "/api/auth/refresh", api.RefreshRequest{RefreshToken: refresh}, &resp)
	if err != nil {
		return err
	}
	c.setSession(resp.UserID, resp.AccessToken, resp.RefreshToken)
	return nil
}
