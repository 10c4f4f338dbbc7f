// Package secure centralises bearer-token attachment and session-invalidating
// error handling for every backend call.
package secure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
	"github.com/scholarhub/scholarhub/internal/dashboard/tokenstore"
)

// SessionState is the slice of the session store the client reacts to.
type SessionState interface {
	Principal() *domain.Principal
	SignOut(ctx context.Context) error
}

// Redirect navigates the user to a screen, e.g. the login page after a
// forced sign-out.
type Redirect func(path string)

// LoginPath is where forced sign-outs land.
const LoginPath = "/login"

// binding ties the client to an active session. The sync.Once guarantees at
// most one forced sign-out per binding no matter how many in-flight requests
// observe a rejection concurrently.
type binding struct {
	session  SessionState
	redirect Redirect
	once     sync.Once
}

// Client is the configured HTTP client bound to the backend base address.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     tokenstore.Store
	logger     *slog.Logger

	mu      sync.Mutex
	binding *binding
}

// New creates a client for the backend at baseURL.
func New(baseURL string, tokens tokenstore.Store, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		tokens:     tokens,
		logger:     logger,
	}
}

// Bind installs the session-invalidation handling for an active session. Any
// previous binding is disposed first, so at most one is ever active.
func (c *Client) Bind(session SessionState, redirect Redirect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.binding = &binding{session: session, redirect: redirect}
}

// Unbind removes the active binding. While unbound the client never triggers
// sign-out, so anonymous/public calls cannot cause redirect loops.
func (c *Client) Unbind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.binding = nil
}

func (c *Client) currentBinding() *binding {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.binding
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

// Do performs a request against the backend. A persisted token is attached as
// a bearer header; absence of a token sends the request unmodified. A 401/403
// response to a request that carried a token while a principal is active
// forces exactly one sign-out and a redirect to the login screen, returning
// ErrSessionInvalidated. All other responses are returned to the caller.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		c.logger.Error("failed to read session token", "error", err)
		token = ""
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}

	// Only a rejection of a previously-valid credential invalidates the
	// session: the request must have carried a token and a principal must
	// still be active. Public 401/403s propagate unchanged.
	b := c.currentBinding()
	if token == "" || b == nil || b.session.Principal() == nil {
		return resp, nil
	}

	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()

	b.once.Do(func() {
		c.logger.Info("session invalidated by backend",
			"status", resp.StatusCode, "path", path)
		if err := b.session.SignOut(ctx); err != nil {
			c.logger.Warn("forced sign-out failed", "error", err)
		}
		if b.redirect != nil {
			b.redirect(LoginPath)
		}
	})

	return nil, domain.ErrSessionInvalidated
}

// JSON performs a request with a JSON body and decodes a JSON response.
// Non-2xx responses other than session invalidation surface as BackendError
// for the calling screen to handle locally.
func (c *Client) JSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.BackendError{
			Status: resp.StatusCode,
			Path:   path,
			Body:   strings.TrimSpace(string(raw)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Get is shorthand for JSON GET requests.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.JSON(ctx, http.MethodGet, path, nil, out)
}

// Post is shorthand for JSON POST requests.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.JSON(ctx, http.MethodPost, path, in, out)
}

// Patch is shorthand for JSON PATCH requests.
func (c *Client) Patch(ctx context.Context, path string, in, out any) error {
	return c.JSON(ctx, http.MethodPatch, path, in, out)
}

// Put is shorthand for JSON PUT requests.
func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.JSON(ctx, http.MethodPut, path, in, out)
}

// Delete is shorthand for JSON DELETE requests.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.JSON(ctx, http.MethodDelete, path, nil, out)
}
