package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"weeklyreport/orchestrator"
	"weeklyreport/types"
)

// DefaultBaseURL is used when neither a flag nor WEEKLYREPORT_URL is set
const DefaultBaseURL = "http://localhost:8080"

// Client talks to a running `weeklyreport serve`
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = GetEnvOrDefault("WEEKLYREPORT_URL", DefaultBaseURL)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetEnvOrDefault returns the value of an environment variable or a default value
func GetEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Status fetches the server's run state
func (c *Client) Status(ctx context.Context) (*orchestrator.StatusResponse, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/status")
	if err != nil {
		return nil, err
	}
	var status orchestrator.StatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decoding status: %w", err)
	}
	return &status, nil
}

// Trigger asks the server to start stage. A 409 is reported as
// orchestrator.ErrBusy.
func (c *Client) Trigger(ctx context.Context, stage types.Stage) error {
	_, err := c.do(ctx, http.MethodPost, "/api/run/"+string(stage))
	return err
}

// LatestScript downloads the newest rendered report
func (c *Client) LatestScript(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/scripts/latest")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// do sends a bodyless request and returns the response body of any 2xx reply
func (c *Client) do(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json, text/markdown")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp.StatusCode, body)
	}
	return body, nil
}

// apiError prefers the server's {"error": ...} message over the raw body
func apiError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	if status == http.StatusConflict {
		return fmt.Errorf("%w: %s", orchestrator.ErrBusy, msg)
	}
	return fmt.Errorf("API returned %d: %s", status, msg)
}
