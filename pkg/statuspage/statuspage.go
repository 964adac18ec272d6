package statuspage

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

type Config struct {
	URL     string        `split_words:"true" required:"true"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

// Client reads the public service status page consumed by the
// technical agent's check_status tool.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Summary struct {
	Indicator   string     `json:"indicator"` // none | minor | major | critical
	Description string     `json:"description"`
	Incidents   []Incident `json:"incidents,omitempty"`
}

type Incident struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Operational reports whether the summary shows no active impact.
func (s Summary) Operational() bool {
	return s.Indicator == "" || s.Indicator == "none"
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("status page url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Client {
	c, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// CurrentSummary fetches the live status summary.
func (c *Client) CurrentSummary(ctx context.Context) (*Summary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/summary.json", nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute status request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status page http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var out Summary
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &out, nil
}
