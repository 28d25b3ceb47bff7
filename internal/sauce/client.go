// Package sauce updates Sauce Labs job records through the REST API.
package sauce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultAPIURL is the REST base the job API lives under.
const DefaultAPIURL = "https://saucelabs.com/rest/v1"

// Sauce allows a handful of REST calls per second per user; stay under it.
const (
	defaultRateLimit = rate.Limit(5)
	defaultBurst     = 5
)

// JobUpdate is the subset of job fields the suite reports.
type JobUpdate struct {
	Name   string `json:"name,omitempty"`
	Passed bool   `json:"passed"`
}

// APIError is a non-2xx answer from the REST API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sauce api: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client is a Sauce Labs REST client bound to one account.
type Client struct {
	BaseURL   string
	Username  string
	AccessKey string
	HTTP      *http.Client

	limiter *rate.Limiter
}

// NewClient creates a client. An empty baseURL means DefaultAPIURL.
func NewClient(baseURL, username, accessKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Username:  username,
		AccessKey: accessKey,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(defaultRateLimit, defaultBurst),
	}
}

// UpdateJob sets fields on the job whose ID is the grid session ID.
func (c *Client) UpdateJob(ctx context.Context, jobID string, update JobUpdate) error {
	if jobID == "" {
		return fmt.Errorf("updating job: empty job id")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("updating job %s: %w", jobID, err)
	}

	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshaling job update: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/jobs/%s", c.BaseURL, url.PathEscape(c.Username), url.PathEscape(jobID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.Username, c.AccessKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
