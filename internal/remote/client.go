// Package remote talks to a deployed findash endpoint: one GET returning the
// whole dataset and a POST per mutation command.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"findash/internal/api"
	"findash/internal/sheets"
)

var ErrNotConfigured = errors.New("remote endpoint not configured")

// maxResponseBytes bounds a decoded response body.
const maxResponseBytes = 32 << 20

type Client struct {
	endpoint  string
	http      *http.Client
	userAgent string
	token     func() string
}

type Option func(*Client)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithToken sends the returned bearer token, when non-empty, on every
// request.
func WithToken(token func() string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a client for endpoint. An empty endpoint yields a client whose
// calls fail with ErrNotConfigured.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:  strings.TrimSpace(endpoint),
		http:      newPooledHTTPClient(),
		userAgent: "findash",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// newPooledHTTPClient bounds connection setup but not the request itself;
// callers set deadlines through the context.
func newPooledHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport}
}

func (c *Client) Configured() bool { return c.endpoint != "" }

// FetchAll reads every transaction and card. Non-2xx statuses, undecodable
// bodies and success:false payloads are errors.
func (c *Client) FetchAll(ctx context.Context) (sheets.Snapshot, error) {
	if !c.Configured() {
		return sheets.Snapshot{}, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return sheets.Snapshot{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var resp api.FetchResponse
	status, err := c.do(req, &resp)
	if err != nil {
		return sheets.Snapshot{}, err
	}
	if status < 200 || status > 299 {
		if resp.Error != "" {
			return sheets.Snapshot{}, fmt.Errorf("fetch: HTTP %d: %s", status, resp.Error)
		}
		return sheets.Snapshot{}, fmt.Errorf("fetch: HTTP %d", status)
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "unsuccessful response"
		}
		return sheets.Snapshot{}, fmt.Errorf("fetch: %s", msg)
	}
	return resp.Snapshot(), nil
}

// Submit posts cmd as text/plain JSON. A decoded body is returned as the
// result even when it reports failure; err covers transport and decoding.
func (c *Client) Submit(ctx context.Context, cmd api.Command) (api.Result, error) {
	if !c.Configured() {
		return api.Result{}, ErrNotConfigured
	}
	body, err := json.Marshal(cmd)
	if err != nil {
		return api.Result{}, fmt.Errorf("encode command: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return api.Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	req.Header.Set("Accept", "application/json")

	var res api.Result
	status, err := c.do(req, &res)
	if err != nil {
		return api.Result{}, err
	}
	if !res.Success && res.Error == "" && res.Message == "" {
		return api.Result{}, fmt.Errorf("submit: HTTP %d without result", status)
	}
	return res, nil
}

// do sends req and decodes the body into v. It returns the status code.
func (c *Client) do(req *http.Request, v any) (int, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != nil {
		if t := c.token(); t != "" {
			req.Header.Set("Authorization", "Bearer "+t)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
