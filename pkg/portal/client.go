package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrSessionExpired is returned when a request could not be authenticated
// even after a refresh attempt. The stored credentials are cleared first.
var ErrSessionExpired = errors.New("session expired")

type Client struct {
	baseURL    string
	httpClient *http.Client
	store      TokenStore

	refreshMu  sync.Mutex
	onTeardown func()
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying transport, mainly for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithTeardown registers a hook fired when the session is forcibly torn
// down after a failed refresh.
func WithTeardown(fn func()) ClientOption {
	return func(c *Client) { c.onTeardown = fn }
}

func NewClient(baseURL string, store TokenStore, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		store:      store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues a JSON request. On a 401 it refreshes the session once and
// replays the original request once; a second 401 tears the session down.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = raw
	}

	send := func() (*http.Response, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		c.attachBearer(req)
		return c.httpClient.Do(req)
	}

	resp, err := send()
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && !isAuthPath(path) {
		drain(resp)
		if err := c.refresh(ctx); err != nil {
			return err
		}
		resp, err = send()
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			c.teardown()
			return ErrSessionExpired
		}
	}

	return parseResponse(resp, out)
}

// doMultipart sends a prebuilt multipart body with the same single
// refresh-and-retry behavior as do.
func (c *Client) doMultipart(ctx context.Context, path, contentType string, body []byte, out interface{}) error {
	send := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		c.attachBearer(req)
		return c.httpClient.Do(req)
	}

	resp, err := send()
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		if err := c.refresh(ctx); err != nil {
			return err
		}
		resp, err = send()
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			c.teardown()
			return ErrSessionExpired
		}
	}

	return parseResponse(resp, out)
}

func (c *Client) attachBearer(req *http.Request) {
	creds, err := c.store.Load()
	if err != nil || creds.Token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)
}

// refresh rotates the token pair through /api/auth/refresh. Failure of any
// kind tears the session down.
func (c *Client) refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	creds, err := c.store.Load()
	if err != nil || creds.RefreshToken == "" {
		c.teardown()
		return ErrSessionExpired
	}

	payload, err := json.Marshal(map[string]string{"refreshToken": creds.RefreshToken})
	if err != nil {
		c.teardown()
		return ErrSessionExpired
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/refresh", bytes.NewReader(payload))
	if err != nil {
		c.teardown()
		return ErrSessionExpired
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.teardown()
		return ErrSessionExpired
	}

	var auth AuthResponse
	if err := parseResponse(resp, &auth); err != nil {
		c.teardown()
		return ErrSessionExpired
	}

	return c.store.Save(Credentials{
		Token:        auth.AccessToken,
		RefreshToken: auth.RefreshToken,
		User:         &auth.User,
	})
}

func (c *Client) teardown() {
	_ = c.store.Clear()
	if c.onTeardown != nil {
		c.onTeardown()
	}
}

// isAuthPath marks endpoints whose 401s are credential failures, not
// expired sessions; they are never retried.
func isAuthPath(path string) bool {
	switch path {
	case "/api/auth/login", "/api/auth/register", "/api/auth/refresh":
		return true
	default:
		return false
	}
}

func parseResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	apiErr := &APIError{Status: resp.StatusCode}
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		apiErr.Code = envelope.Error
		apiErr.Message = envelope.Message
	}
	return apiErr
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
