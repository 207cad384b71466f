package hellio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	loginPath = "/api/auth/login"
	// Tokens are leased for a bounded window and refreshed proactively
	// instead of living in a process-wide cache until first rejection.
	tokenLease = 30 * time.Minute
)

// StatusError is returned for non-2xx backend responses.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hellio api: bad status: %s", e.Status)
}

// Client talks to the Hellio HR backend. Safe for sequential use by a single
// workflow engine; token refresh is guarded for the rare concurrent caller.
type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string

	email    string
	password string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a backend client. The token is acquired lazily on first use.
func New(apiURL, email, password string, logger *zap.Logger) *Client {
	return &Client{
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		APIURL:   apiURL,
		email:    email,
		password: password,
	}
}

func (c *Client) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	return c.loginLocked(ctx)
}

// forceLogin discards the current token and logs in again. Used for the one
// bounded retry after the backend rejects a request as unauthorized.
func (c *Client) forceLogin(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
	return c.loginLocked(ctx)
}

func (c *Client) loginLocked(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"email":    c.email,
		"password": c.password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding login response: %w", err)
	}
	if payload.Token == "" {
		return "", fmt.Errorf("login response contained no token")
	}

	c.token = payload.Token
	c.tokenExpiry = time.Now().Add(tokenLease)
	c.logger.Debug("acquired backend token", zap.Time("expiry", c.tokenExpiry))

	return c.token, nil
}

// doJSON performs an authenticated request with a JSON body (may be nil) and
// decodes the JSON response into target (may be nil). An unauthorized
// response triggers exactly one re-login and retry.
func (c *Client) doJSON(ctx context.Context, method, path string, q url.Values, body, target any) error {
	relogin := false
	for {
		var token string
		var err error
		if relogin {
			token, err = c.forceLogin(ctx)
		} else {
			token, err = c.authToken(ctx)
		}
		if err != nil {
			return fmt.Errorf("authenticating with backend: %w", err)
		}

		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return err
			}
			reader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.APIURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if q != nil {
			req.URL.RawQuery = q.Encode()
		}

		c.logger.Debug("backend request", zap.String("method", method), zap.String("url", req.URL.String()))

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("%s %s: reading response: %w", method, path, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && !relogin {
			relogin = true
			continue
		}

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return &StatusError{Code: resp.StatusCode, Status: resp.Status}
		}

		if target == nil {
			return nil
		}

		if err := json.Unmarshal(data, target); err != nil {
			return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
		}

		return nil
	}
}
