package walrus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// Client fetches content blobs from a Walrus aggregator.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes the Walrus client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient constructs a Walrus aggregator client.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// StatusError reports a non-success aggregator response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("walrus fetch: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Fetch retrieves the blob identified by blobID. The blob is immutable, so
// any successful response is authoritative.
func (c *Client) Fetch(ctx context.Context, blobID string) ([]byte, error) {
	blobID = strings.TrimSpace(blobID)
	if blobID == "" {
		return nil, errors.New("walrus fetch: blob id required")
	}
	if c.baseURL == "" {
		return nil, errors.New("walrus fetch: base url required")
	}
	endpoint, err := url.JoinPath(c.baseURL, "v1", "blobs", blobID)
	if err != nil {
		return nil, fmt.Errorf("walrus fetch: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("walrus fetch: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("walrus fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("walrus fetch: read body: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("walrus fetch: empty blob")
	}
	return data, nil
}
