// Package square talks to the payment provider's Connect API.
package square

import (
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

const apiVersion = "2024-10-17"

var (
	ErrCustomerNotFound = errors.New("square customer not found")
	ErrUpstream         = errors.New("square request failed")
)

type Customer struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
	GivenName    string `json:"given_name"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, accessToken string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      accessToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v2/customers/"+url.PathEscape(customerID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Square-Version", apiVersion)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrCustomerNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Customer *Customer `json:"customer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode customer: %w", ErrUpstream, err)
	}
	if out.Customer == nil {
		return nil, ErrCustomerNotFound
	}
	return out.Customer, nil
}

// CustomerEmail returns the email on file for customerID, or "" when the
// customer has none.
func (c *Client) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	cust, err := c.GetCustomer(ctx, customerID)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(cust.EmailAddress), nil
}
