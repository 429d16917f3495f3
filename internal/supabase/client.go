// Package supabase wraps the identity provider's auth and REST endpoints.
package supabase

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
)

const profileTable = "users_profile"

var (
	ErrUnauthorized = errors.New("access token rejected")
	ErrUpstream     = errors.New("identity provider request failed")
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Profile struct {
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name,omitempty"`
	Email     string    `json:"email,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

func NewClient(baseURL, serviceRoleKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceRoleKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// VerifyToken asks the provider who owns accessToken.
func (c *Client) VerifyToken(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var u User
	if err := c.do(req, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, ErrUnauthorized
	}
	return &u, nil
}

// FindAccountByEmail returns the account id whose profile carries email,
// or "" when none matches.
func (c *Client) FindAccountByEmail(ctx context.Context, email string) (string, error) {
	row, err := c.findProfile(ctx, "email", strings.ToLower(strings.TrimSpace(email)), "user_id")
	if err != nil || row == nil {
		return "", err
	}
	return row.UserID, nil
}

// EmailForAccount returns the profile email of accountID, or "" when the
// profile is missing or has none.
func (c *Client) EmailForAccount(ctx context.Context, accountID string) (string, error) {
	row, err := c.findProfile(ctx, "user_id", accountID, "email")
	if err != nil || row == nil {
		return "", err
	}
	return row.Email, nil
}

func (c *Client) findProfile(ctx context.Context, column, value, fields string) (*Profile, error) {
	q := url.Values{}
	q.Set(column, "eq."+value)
	q.Set("select", fields)
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/rest/v1/"+profileTable+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.serviceHeaders(req)

	var rows []Profile
	if err := c.do(req, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// UpsertProfile merges p into the profile row keyed by user_id.
func (c *Client) UpsertProfile(ctx context.Context, p Profile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	body, err := json.Marshal([]Profile{p})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/rest/v1/"+profileTable+"?on_conflict=user_id", bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.serviceHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	return c.do(req, nil)
}

func (c *Client) serviceHeaders(req *http.Request) {
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrUpstream, err)
	}
	return nil
}
