// Package httpclient provides the HTTP client shared by the hosted services
// (face detection, language model judge, text-to-speech and camera snapshots).
//
// It adds per-request timeouts, User-Agent injection, bearer or OAuth2
// client-credentials authentication and observability hooks on top of the
// standard http.Client.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/k3a/html2text"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
)

const (
	maxErrorSnippet = 256

	// DefaultTimeout is the default timeout for HTTP requests if not specified.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps how much of a response body is read into memory.
	MaxResponseSize = 16 << 20

	defaultMaxIdleConnsPerHost   = 4
	defaultIdleConnTimeout       = 90 * time.Second
	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultResponseHeaderTimeout = 20 * time.Second
	defaultDialTimeout           = 15 * time.Second

	defaultUserAgent = "infant-guard"
)

// Client is an authenticated HTTP client for one hosted service.
// Safe for concurrent use.
type Client struct {
	client         *http.Client
	defaultTimeout time.Duration
	userAgent      string
	apiKey         string
	service        string

	hookMu        sync.RWMutex
	afterResponse func(service string, req *http.Request, resp *http.Response, err error, elapsed time.Duration)
}

// Config holds configuration for creating an HTTP client.
type Config struct {
	// Service names the remote service in errors, logs and metrics.
	Service string

	// DefaultTimeout is applied when the request context has no deadline.
	DefaultTimeout time.Duration

	// UserAgent is added to all requests.
	UserAgent string

	// APIKey is sent as a bearer token unless OAuth is configured.
	APIKey string

	// OAuth enables the client-credentials flow when non-nil.
	OAuth *clientcredentials.Config
}

// FromEndpoint builds a Config for a configured service endpoint.
func FromEndpoint(service string, ep conf.ServiceEndpoint) Config {
	cfg := Config{
		Service:        service,
		DefaultTimeout: ep.Timeout,
		APIKey:         ep.APIKey,
	}
	if ep.OAuth.Enabled() {
		cfg.OAuth = &clientcredentials.Config{
			ClientID:     ep.OAuth.ClientID,
			ClientSecret: ep.OAuth.ClientSecret,
			TokenURL:     ep.OAuth.TokenURL,
			Scopes:       ep.OAuth.Scopes,
		}
	}
	return cfg
}

// New creates a client. A nil cfg yields an unauthenticated client with defaults.
func New(cfg *Config) *Client {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Service == "" {
		c.Service = "http"
	}

	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
	}

	var transport http.RoundTripper = base
	if c.OAuth != nil {
		// Token requests go through the same tuned transport.
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
			Transport: base,
			Timeout:   c.DefaultTimeout,
		})
		transport = &oauth2.Transport{Source: c.OAuth.TokenSource(tokenCtx), Base: base}
		c.APIKey = ""
	}

	return &Client{
		client:         &http.Client{Transport: transport},
		defaultTimeout: c.DefaultTimeout,
		userAgent:      c.UserAgent,
		apiKey:         c.APIKey,
		service:        c.Service,
	}
}

// HTTPClient exposes the underlying client, mainly for transport mocking in tests.
func (c *Client) HTTPClient() *http.Client {
	return c.client
}

// Service returns the configured service name.
func (c *Client) Service() string {
	return c.service
}

// Do executes req, applying the default timeout when ctx has no deadline.
// The response body must be closed by the caller if err is nil.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.Newf("nil request").
			Component("httpclient").
			Category(errors.CategoryValidation).
			Build()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && c.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
		// The body may still be read after Do returns, so cancel on close.
		req = req.WithContext(ctx)
		resp, err := c.do(req)
		if err != nil {
			cancel()
			return nil, err
		}
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
	return c.do(req.WithContext(ctx))
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiKey != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)

	c.hookMu.RLock()
	hook := c.afterResponse
	c.hookMu.RUnlock()
	if hook != nil {
		hook(c.service, req, resp, err, time.Since(start))
	}
	return resp, err
}

// PostJSON marshals payload, posts it to url and returns the response body.
// Non-2xx responses are returned as errors carrying the status code.
func (c *Client) PostJSON(ctx context.Context, url string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.New(err).
			Component("httpclient").
			Category(errors.CategoryValidation).
			Context("service", c.service).
			Build()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, c.requestError(err, url)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.roundTrip(ctx, req)
}

// Get fetches url and returns the response body and its content type.
func (c *Client) Get(ctx context.Context, url string) (body []byte, contentType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, "", c.requestError(err, url)
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, "", c.networkError(err, url)
	}
	defer resp.Body.Close()

	body, err = readBody(resp)
	if err != nil {
		return nil, "", c.networkError(err, url)
	}
	if err := c.checkStatus(resp, body, url); err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) roundTrip(ctx context.Context, req *http.Request) ([]byte, error) {
	url := req.URL.String()
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, c.networkError(err, url)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, c.networkError(err, url)
	}
	if err := c.checkStatus(resp, body, url); err != nil {
		return nil, err
	}
	return body, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response body exceeds %d bytes", MaxResponseSize)
	}
	return body, nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.StatusCode, e.Body)
}

func (c *Client) checkStatus(resp *http.Response, body []byte, url string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet := errorSnippet(resp.Header.Get("Content-Type"), body)
	return errors.New(&StatusError{Service: c.service, StatusCode: resp.StatusCode, Body: snippet}).
		Component("httpclient").
		Category(errors.CategoryHTTP).
		Context("service", c.service).
		Context("status_code", resp.StatusCode).
		NetworkContext(url, c.defaultTimeout).
		Build()
}

// errorSnippet shortens an error body for logs. Proxies in front of the
// hosted services answer with HTML error pages, which are reduced to text.
func errorSnippet(contentType string, body []byte) string {
	snippet := string(body)
	if strings.HasPrefix(strings.ToLower(contentType), "text/html") {
		snippet = strings.Join(strings.Fields(html2text.HTML2Text(snippet)), " ")
	}
	if len(snippet) > maxErrorSnippet {
		snippet = snippet[:maxErrorSnippet]
	}
	return snippet
}

func (c *Client) networkError(err error, url string) error {
	category := errors.CategoryNetwork
	switch {
	case errors.Is(err, context.Canceled):
		category = errors.CategoryCancellation
	case errors.Is(err, context.DeadlineExceeded):
		category = errors.CategoryTimeout
	}
	return errors.New(err).
		Component("httpclient").
		Category(category).
		Context("service", c.service).
		NetworkContext(url, c.defaultTimeout).
		Build()
}

func (c *Client) requestError(err error, url string) error {
	return errors.New(err).
		Component("httpclient").
		Category(errors.CategoryValidation).
		Context("service", c.service).
		NetworkContext(url, c.defaultTimeout).
		Build()
}

// SetAfterResponseHook registers fn to observe every completed request.
func (c *Client) SetAfterResponseHook(fn func(service string, req *http.Request, resp *http.Response, err error, elapsed time.Duration)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.afterResponse = fn
}

// Close closes idle connections in the connection pool.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
