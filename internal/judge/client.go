package judge

import (
	"context"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"golang.org/x/time/rate"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/httpclient"
)

const componentName = "judge"

// Completer turns a prompt into model text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// completionRequest is the text completion request body.
type completionRequest struct {
	Prompt            string  `json:"prompt"`
	MaxTokensToSample int     `json:"max_tokens_to_sample"`
	Temperature       float64 `json:"temperature"`
}

// Client calls a hosted text completion endpoint.
type Client struct {
	http         *httpclient.Client
	endpoint     string
	responsePath []string
	maxTokens    int
	temperature  float64
	limiter      *rate.Limiter
}

// NewClient creates a model client from settings.
func NewClient(settings conf.JudgeSettings) (*Client, error) {
	if settings.Service.Endpoint == "" {
		return nil, errors.Newf("judge service endpoint is not configured").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	cfg := httpclient.FromEndpoint(componentName, settings.Service)
	return NewClientWithHTTP(httpclient.New(&cfg), settings), nil
}

// NewClientWithHTTP creates a model client around an existing HTTP client.
func NewClientWithHTTP(hc *httpclient.Client, settings conf.JudgeSettings) *Client {
	path := settings.ResponsePath
	if path == "" {
		path = conf.DefaultResponsePath
	}
	maxTokens := settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}

	limit := rate.Inf
	if settings.RateLimit > 0 {
		limit = rate.Limit(settings.RateLimit)
	}

	return &Client{
		http:         hc,
		endpoint:     settings.Service.Endpoint,
		responsePath: strings.Split(path, "."),
		maxTokens:    maxTokens,
		temperature:  settings.Temperature,
		limiter:      rate.NewLimiter(limit, 1),
	}
}

// HTTP returns the underlying HTTP client.
func (c *Client) HTTP() *httpclient.Client {
	return c.http
}

// Complete sends prompt in Human/Assistant turn format and returns the completion text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.New(err).
			Component(componentName).
			Category(errors.CategoryLimit).
			Build()
	}

	start := time.Now()
	body, err := c.http.PostJSON(ctx, c.endpoint, completionRequest{
		Prompt:            "\n\nHuman: " + prompt + "\n\nAssistant:",
		MaxTokensToSample: c.maxTokens,
		Temperature:       c.temperature,
	})
	if err != nil {
		return "", errors.New(err).
			Component(componentName).
			Category(errors.CategoryJudge).
			Timing("completion", time.Since(start)).
			Build()
	}

	root, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return "", errors.New(err).
			Component(componentName).
			Category(errors.CategoryJudge).
			Context("stage", "decode").
			Build()
	}
	text, err := root.GetString(c.responsePath...)
	if err != nil {
		return "", errors.Newf("completion text missing at %q: %w", strings.Join(c.responsePath, "."), err).
			Component(componentName).
			Category(errors.CategoryJudge).
			Build()
	}
	return text, nil
}
