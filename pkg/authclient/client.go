// Package authclient is an HTTP client for the admin API that keeps the
// session alive. A 401 from a protected endpoint triggers one shared token
// refresh, after which the request is replayed exactly once.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	LoginPath   = "/admin/login"
	RefreshPath = "/admin/refresh-token"
	LogoutPath  = "/admin/logout"
	VerifyPath  = "/admin/verify-token"
)

var (
	// ErrSessionExpired means the refresh token was rejected. Stored tokens
	// have been cleared and the caller must log in again.
	ErrSessionExpired = errors.New("session expired")
	ErrUnauthorized   = errors.New("unauthorized")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Role         string `json:"role"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	// OnSessionExpired runs once per failed refresh, after tokens are cleared.
	OnSessionExpired func()

	mu     sync.RWMutex
	tokens Tokens

	refreshes singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithSessionExpired(fn func()) Option {
	return func(c *Client) { c.OnSessionExpired = fn }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Tokens() Tokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

func (c *Client) SetTokens(t Tokens) {
	c.mu.Lock()
	c.tokens = t
	c.mu.Unlock()
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens.AccessToken
}

// NewRequest builds a request against the API with an optional JSON body
// that can be replayed.
func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// excluded endpoints answer 401 as a final verdict.
func excluded(path string) bool {
	for _, p := range []string{LoginPath, RefreshPath, VerifyPath} {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// Do sends req with the current access token. A 401 from a protected endpoint
// joins the shared refresh and replays req once with the new token; the
// replay's response is returned whatever its status. A cancelled request is
// never replayed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sent := c.accessToken()
	resp, err := c.send(req, req.Body, sent)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || excluded(req.URL.Path) || !replayable(req) {
		return resp, nil
	}
	drain(resp)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	token, err := c.refreshAfter(ctx, sent)
	if err != nil {
		return nil, err
	}

	body := req.Body
	if req.GetBody != nil {
		if body, err = req.GetBody(); err != nil {
			return nil, fmt.Errorf("rewind body: %w", err)
		}
	}
	return c.send(req, body, token)
}

func (c *Client) send(req *http.Request, body io.ReadCloser, token string) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Body = body
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	} else {
		r.Header.Del("Authorization")
	}
	return c.httpClient.Do(r)
}

// refreshAfter returns an access token newer than sent. If another request
// already rotated the session it returns that token without a network call.
func (c *Client) refreshAfter(ctx context.Context, sent string) (string, error) {
	if cur := c.accessToken(); cur != sent {
		if cur == "" {
			return "", ErrSessionExpired
		}
		return cur, nil
	}

	// The shared refresh outlives any single waiter's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.refreshes.DoChan("refresh", func() (any, error) {
		if cur := c.accessToken(); cur != sent {
			if cur == "" {
				return "", ErrSessionExpired
			}
			return cur, nil
		}
		return c.refresh(flightCtx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) refresh(ctx context.Context) (string, error) {
	rt := c.Tokens().RefreshToken
	if rt == "" {
		c.expire()
		return "", ErrSessionExpired
	}

	req, err := c.NewRequest(ctx, http.MethodPost, RefreshPath, map[string]string{"refreshToken": rt})
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.expire()
		return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.expire()
		return "", fmt.Errorf("%w: %w", ErrSessionExpired, decodeError(resp))
	}
	var t Tokens
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		c.expire()
		return "", fmt.Errorf("%w: decode response: %w", ErrSessionExpired, err)
	}
	if t.RefreshToken == "" {
		t.RefreshToken = rt
	}
	c.SetTokens(t)
	return t.AccessToken, nil
}

func (c *Client) expire() {
	c.SetTokens(Tokens{})
	if c.OnSessionExpired != nil {
		c.OnSessionExpired()
	}
}

// Login stores the returned tokens together with the role the server granted.
func (c *Client) Login(ctx context.Context, username, password, role string) (Tokens, error) {
	req, err := c.NewRequest(ctx, http.MethodPost, LoginPath, map[string]string{
		"username": username,
		"password": password,
		"role":     role,
	})
	if err != nil {
		return Tokens{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Tokens{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Tokens{}, decodeError(resp)
	}
	var t Tokens
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return Tokens{}, fmt.Errorf("decode response: %w", err)
	}
	c.SetTokens(t)
	return t, nil
}

// Logout clears local tokens even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	t := c.Tokens()
	c.SetTokens(Tokens{})

	req, err := c.NewRequest(ctx, http.MethodPost, LogoutPath, map[string]string{"refreshToken": t.RefreshToken})
	if err != nil {
		return err
	}
	if t.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.AccessToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

// VerifyToken asks the server which role the current access token carries.
// A 401 is reported as ErrUnauthorized and never triggers a refresh.
func (c *Client) VerifyToken(ctx context.Context) (string, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, VerifyPath, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return "", ErrUnauthorized
	default:
		return "", decodeError(resp)
	}
	var out struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Role, nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body)
	if body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: body.Message}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
}
