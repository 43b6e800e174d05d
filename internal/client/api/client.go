// Package api is a thin HTTP client for the usermanager authentication API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/common"
)

const basePath = "/api/authentication"

// Envelope mirrors the server's {status, message} reply.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Session is a successful login reply.
type Session struct {
	Token      string    `json:"token"`
	Expiration time.Time `json:"expiration"`
	ID         string    `json:"id"`
	Email      string    `json:"email"`
}

// Profile is the identity carried by a session token.
type Profile struct {
	Username   string    `json:"username"`
	Roles      []string  `json:"roles"`
	Expiration time.Time `json:"expiration"`
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient validates serverURL and returns a client with the given per-request timeout.
func NewClient(serverURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", serverURL)
	}
	return &Client{baseURL: u, httpClient: &http.Client{Timeout: timeout}}, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.baseURL
	u.Path += basePath + path
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, target, token string, body any) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func decodeEnvelope(resp *http.Response) (*Envelope, error) {
	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Status: env.Status, Message: env.Message}
	}
	return &env, nil
}

// Register creates an account with the given role. The server sends a
// confirmation link to email.
func (c *Client) Register(ctx context.Context, username, email, password, role string) (*Envelope, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	resp, err := c.do(ctx, http.MethodPost, c.endpoint("", url.Values{"role": {role}}), "", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeEnvelope(resp)
}

// ConfirmEmail redeems a confirmation token.
func (c *Client) ConfirmEmail(ctx context.Context, token, email string) (*Envelope, error) {
	q := url.Values{"token": {token}, "email": {email}}
	resp, err := c.do(ctx, http.MethodGet, c.endpoint("/ConfirmEmail", q), "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeEnvelope(resp)
}

// Login exchanges credentials for a session token. Wrong credentials yield ErrUnauthorized.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	resp, err := c.do(ctx, http.MethodPost, c.endpoint("/login", nil), "", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		_, err := decodeEnvelope(resp)
		if err == nil {
			err = &APIError{StatusCode: resp.StatusCode}
		}
		return nil, err
	}

	var s Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Me returns the identity behind token.
func (c *Client) Me(ctx context.Context, token string) (*Profile, error) {
	resp, err := c.do(ctx, http.MethodGet, c.endpoint("/me", nil), token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &p, nil
}
