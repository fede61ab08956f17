// Package backend is the HTTP client for the inventory REST API. One Client is
// shared by the whole process; the bearer token travels in the request context.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is the per-request timeout when Options.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration

	// ProfilePath is the endpoint returning the current user.
	// Deployments disagree between /auth/me and /users/me.
	ProfilePath string
	// InventoryPath is the stock collection endpoint used for create-or-replace
	// and the bulk listing.
	InventoryPath string

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to the backend API. It is safe for concurrent use.
type Client struct {
	base          *url.URL
	http          *http.Client
	header        http.Header
	profilePath   string
	inventoryPath string

	// OnUnauthorized is called with the request context whenever the backend
	// answers 401, before the error is returned to the caller.
	OnUnauthorized func(ctx context.Context)

	Auth      *AuthService
	Products  *ProductService
	Inventory *InventoryService
}

// New creates a Client for the API at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	hc.Timeout = timeout

	c := &Client{
		base:          base,
		http:          hc,
		profilePath:   defaultString(opts.ProfilePath, "/auth/me"),
		inventoryPath: defaultString(opts.InventoryPath, "/inventory/"),
		header: http.Header{
			"Content-Type": {"application/json"},
			"Accept":       {"application/json"},
		},
	}
	c.Auth = &AuthService{c: c}
	c.Products = &ProductService{c: c}
	c.Inventory = &InventoryService{c: c}
	return c, nil
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

type tokenKey struct{}

// WithToken returns a context whose backend requests carry token as bearer.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token stored in ctx, if any.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// request describes one backend call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

// Health reports whether the API root answers 200.
func (c *Client) Health(ctx context.Context) bool {
	resp, err := c.send(ctx, request{method: http.MethodGet, path: "/"})
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// doJSON sends in (if non-nil) as JSON and decodes the response into out
// (if non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req := request{method: method, path: path, query: query}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		req.body = bytes.NewReader(data)
	}
	return c.do(ctx, req, out)
}

// do performs a request, classifies failures and decodes a JSON response.
func (c *Client) do(ctx context.Context, req request, out any) error {
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fullURL := resp.Request.URL.String()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		herr := &HTTPError{
			Method: req.method,
			URL:    fullURL,
			Status: resp.StatusCode,
			Detail: extractDetail(body),
		}
		slog.Error("api request failed",
			"method", req.method, "url", fullURL, "status", herr.Status, "detail", herr.Detail)

		if herr.Status == http.StatusUnauthorized && c.OnUnauthorized != nil {
			c.OnUnauthorized(ctx)
		}
		return herr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decoding %s %s response: %w", req.method, fullURL, err)
	}
	return nil
}

// send builds and executes the HTTP request. Transport failures come back
// as *NetworkError; HTTP status is not inspected.
func (c *Client) send(ctx context.Context, req request) (*http.Response, error) {
	u := c.resolve(req.path)
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), req.body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, v := range c.header {
		httpReq.Header[k] = v
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if token := TokenFrom(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	slog.Info("api request", "method", req.method, "url", u.String())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		nerr := &NetworkError{Method: req.method, URL: u.String(), Timeout: isTimeout(err), Err: err}
		slog.Error("api request failed", "method", req.method, "url", u.String(), "timeout", nerr.Timeout, "error", err)
		return nil, nerr
	}
	return resp, nil
}

// resolve joins path onto the base URL, keeping the base path prefix
// (for example /api/v1).
func (c *Client) resolve(path string) *url.URL {
	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(path, "/")
	if path == "/" || path == "" {
		u.Path = c.base.Path + "/"
	}
	return &u
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
