package billing

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

const maxResponseSizeBytes = 1 << 20

type Config struct {
	URL     string        `split_words:"true" required:"true"`
	Token   string        `split_words:"true" required:"true"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

// Client talks to the billing platform REST API on behalf of the
// billing agent's tools.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

type Refund struct {
	RefundID  string  `json:"refund_id"`
	SessionID string  `json:"session_id"`
	Amount    float64 `json:"amount,omitempty"`
	Status    string  `json:"status"`
	ETA       string  `json:"eta,omitempty"`
}

type Charge struct {
	ChargeID    string  `json:"charge_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	ChargedAt   string  `json:"charged_at,omitempty"`
}

type Subscription struct {
	Plan      string `json:"plan"`
	Status    string `json:"status"`
	Effective string `json:"effective,omitempty"`
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("billing api url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid billing api url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("billing api token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c, nil
}

func MustNew(cfg Config, opts ...Option) *Client {
	c, err := NewClient(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// CreateRefund issues a refund for the session's account.
func (c *Client) CreateRefund(ctx context.Context, sessionID, reason string) (*Refund, error) {
	payload := map[string]string{
		"session_id": strings.TrimSpace(sessionID),
		"reason":     strings.TrimSpace(reason),
	}

	var out Refund
	if err := c.exec(ctx, http.MethodPost, "/v1/refunds", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecentCharges lists the latest charges on the session's account.
func (c *Client) RecentCharges(ctx context.Context, sessionID string) ([]Charge, error) {
	path := "/v1/charges?session_id=" + url.QueryEscape(strings.TrimSpace(sessionID))

	var out []Charge
	if err := c.exec(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSubscription switches the account to the given plan.
func (c *Client) UpdateSubscription(ctx context.Context, sessionID, plan string) (*Subscription, error) {
	payload := map[string]string{
		"session_id": strings.TrimSpace(sessionID),
		"plan":       strings.TrimSpace(plan),
	}

	var out Subscription
	if err := c.exec(ctx, http.MethodPost, "/v1/subscriptions", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) exec(ctx context.Context, method, path string, payload any, out any) error {
	if c == nil {
		return errors.New("nil billing client")
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal billing payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build billing request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute billing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read billing response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("billing http status=%d body=%s", resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode billing response: %w", err)
	}
	return nil
}
