// Package remote implements the HTTP client for the sync server: the
// document store, the auth/session handling with automatic token refresh,
// and the websocket change subscription.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	gosync "sync"
	"time"

	"github.com/mihailsb/docsync/internal/common"
)

// Client talks to the sync server. It implements the engine's RemoteStore,
// Identity and Watcher contracts.
type Client struct {
	baseURL string
	http    *http.Client

	mu           gosync.Mutex
	userID       string
	accessToken  string
	refreshToken string
}

// New returns a Client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// IsAuthenticated reports whether a session is established.
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken != ""
}

// CurrentUserID returns the signed-in user id, or "".
func (c *Client) CurrentUserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// Logout drops the session tokens.
func (c *Client) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = ""
	c.accessToken = ""
	c.refreshToken = ""
}

func (c *Client) tokens() (access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

func (c *Client) setSession(userID, access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if userID != "" {
		c.userID = userID
	}
	c.accessToken = access
	c.refreshToken = refresh
}

// doJSON performs one authenticated request, decoding a JSON response into
// out when out is non-nil. On a token-expired response it refreshes the
// session once and repeats the request, mirroring what an interceptor would
// do on a long-lived connection.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	err := c.doJSONOnce(ctx, method, path, body, out)
	if err == nil {
		return nil
	}
	if !isTokenExpired(err) {
		return err
	}
	if rerr := c.RefreshCredentials(ctx); rerr != nil {
		return err
	}
	return c.doJSONOnce(ctx, method, path, body, out)
}

func (c *Client) doJSONOnce(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if access, _ := c.tokens(); access != "" {
		req.Header.Set(common.AccessTokenHeaderName, common.AccessTokenScheme+" "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrServerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return mapStatus(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// mapStatus converts an HTTP error response into the engine's error
// taxonomy so the retry manager can classify it.
func mapStatus(resp *http.Response) error {
	msg := readErrorMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s: %w", msg, common.ErrVersionConflict)
	case resp.StatusCode == http.StatusUnauthorized:
		if msg == common.ErrTokenExpired.Error() {
			return fmt.Errorf("%s: %w", msg, common.ErrTokenExpired)
		}
		return fmt.Errorf("%s: %w", msg, common.ErrUnauthorized)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, common.ErrSyncNotPermitted)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, common.ErrNotFound)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%s: %w", msg, common.ErrValidation)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s: %w", msg, common.ErrServerUnavailable)
	}
	return fmt.Errorf("%s (status %d): %w", msg, resp.StatusCode, common.ErrInternal)
}

func readErrorMessage(body io.Reader) string {
	var er struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || json.Unmarshal(data, &er) != nil || er.Error == "" {
		return "request failed"
	}
	return er.Error
}

func isTokenExpired(err error) bool {
	return errors.Is(err, common.ErrTokenExpired)
}
