// Package api wraps the ScholarHub backend's REST endpoints in typed
// clients. All protected calls go through the secure client; only the token
// issuance endpoint is called bare, since it runs before a token exists.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
	"github.com/scholarhub/scholarhub/internal/dashboard/secure"
)

// Client is the root backend client. It satisfies session.TokenExchanger and
// roles.Fetcher.
type Client struct {
	baseURL    string
	httpClient *http.Client
	secure     *secure.Client
}

func New(baseURL string, sc *secure.Client) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		secure:     sc,
	}
}

// ExchangeToken trades an observed principal for a bearer token via
// POST /getToken. Called once per principal change, outside the secure
// client so no stale token rides along.
func (c *Client) ExchangeToken(ctx context.Context, email string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/getToken", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("token endpoint returned empty token")
	}
	return out.Token, nil
}

// FetchRole queries GET /users/{email}/role. An absent role field maps to
// RoleNone so the resolver can apply its fallback.
func (c *Client) FetchRole(ctx context.Context, email string) (domain.Role, error) {
	var out struct {
		Role string `json:"role"`
	}
	path := "/users/" + url.PathEscape(email) + "/role"
	if err := c.secure.Get(ctx, path, &out); err != nil {
		return domain.RoleNone, err
	}
	if out.Role == "" {
		return domain.RoleNone, nil
	}
	return domain.Role(out.Role), nil
}

// Scholarships returns the scholarship resource client.
func (c *Client) Scholarships() *Scholarships { return &Scholarships{secure: c.secure} }

// Applications returns the application resource client.
func (c *Client) Applications() *Applications { return &Applications{secure: c.secure} }

// Reviews returns the review resource client.
func (c *Client) Reviews() *Reviews { return &Reviews{secure: c.secure} }

// Users returns the user resource client.
func (c *Client) Users() *Users { return &Users{secure: c.secure} }

// Payments returns the checkout client.
func (c *Client) Payments() *Payments { return &Payments{secure: c.secure} }

// ListParams covers the backend's shared search/sort/paging query surface.
type ListParams struct {
	Search string
	SortBy string
	Order  string // "asc" or "desc"
	Page   int
	Limit  int
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.SortBy != "" {
		v.Set("sortBy", p.SortBy)
	}
	if p.Order != "" {
		v.Set("order", p.Order)
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	return v
}

func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}
