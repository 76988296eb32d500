// Package remote is the HTTP client for the grocery item API. It performs one
// attempt per call; retrying is the offline client's job.
package remote

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

	"github.com/mesh-intelligence/grocery/pkg/types"
)

// DefaultBaseURL is the item collection URL used when none is configured.
const DefaultBaseURL = "http://localhost:5000/api/items"

const defaultTimeout = 10 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// Client calls the item API rooted at a collection URL such as
// http://localhost:5000/api/items.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient creates a Client for the provided collection URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("remote: base URL is required")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote: invalid base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("remote: base URL %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the collection URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// List returns all items, newest first.
func (c *Client) List(ctx context.Context) ([]types.Item, error) {
	var items []types.Item
	if _, err := c.do(ctx, http.MethodGet, c.baseURL.String(), nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []types.Item{}
	}
	return items, nil
}

// Get returns a single item.
func (c *Client) Get(ctx context.Context, id string) (*types.Item, error) {
	var item types.Item
	if _, err := c.do(ctx, http.MethodGet, c.itemURL(id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create posts a new item and returns the stored version.
func (c *Client) Create(ctx context.Context, text string) (*types.Item, error) {
	var item types.Item
	body := map[string]string{"text": text}
	if _, err := c.do(ctx, http.MethodPost, c.baseURL.String(), body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Update replaces an item's text and completion flag.
func (c *Client) Update(ctx context.Context, id, text string, completed bool) (*types.Item, error) {
	var item types.Item
	body := map[string]any{"text": text, "completed": completed}
	if _, err := c.do(ctx, http.MethodPut, c.itemURL(id), body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes an item and returns its last stored state.
func (c *Client) Delete(ctx context.Context, id string) (*types.Item, error) {
	var item types.Item
	if _, err := c.do(ctx, http.MethodDelete, c.itemURL(id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Ping checks that the API root answers with a 2xx status.
func (c *Client) Ping(ctx context.Context) error {
	root := c.baseURL.ResolveReference(&url.URL{Path: "/"})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: ping: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}

func (c *Client) itemURL(id string) string {
	return c.baseURL.JoinPath(id).String()
}

// do sends one request and decodes the envelope's data into out. Unsuccessful
// envelopes and non-2xx statuses become *APIError; transport failures are
// wrapped as-is.
func (c *Client) do(ctx context.Context, method, target string, body any, out any) (*types.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("remote: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote: read response: %w", err)
	}

	var env types.Response
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if !env.Success || resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &env, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &env, fmt.Errorf("remote: decode data: %w", err)
		}
	}
	return &env, nil
}
