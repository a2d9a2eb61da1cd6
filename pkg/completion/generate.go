package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kcaldas/copilot/pkg/askapi"
	"github.com/kcaldas/copilot/pkg/logging"
)

// Request is the input of one inline generation.
type Request struct {
	Prefix   string
	Suffix   string
	Path     string
	Language string
	Mode     Mode
}

// Generator produces the raw completion text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Token limits per mode.
const (
	lineMaxTokens  = 64
	blockMaxTokens = 256
)

type generateContext struct {
	Path   string `json:"path"`
	Prefix string `json:"prefix"`
	Suffix string `json:"suffix"`
	Lang   string `json:"lang"`
}

type generateBody struct {
	Context      generateContext `json:"context"`
	Model        string          `json:"model"`
	Locale       string          `json:"locale"`
	MaxNewTokens int             `json:"max_new_tokens"`
	Stop         []string        `json:"stop,omitempty"`
}

type generateResponse struct {
	InlineCompletions []struct {
		Text string `json:"text"`
	} `json:"inline_completions"`
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(client httpDoer) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger injects a custom logger implementation.
func WithLogger(logger logging.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client calls the non-streaming inline completion endpoint.
type Client struct {
	httpClient httpDoer
	url        string
	token      string
	model      func() string
	locale     func() string
	logger     logging.Logger
}

// NewClient creates a Client for url. model and locale are read on every call
// so a settings change applies to the next request.
func NewClient(url, token string, model, locale func() string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		url:        url,
		token:      token,
		model:      model,
		locale:     locale,
		logger:     logging.NewAPILogger("completion"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate returns the first completion of the response, or "" when there is none.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	body := generateBody{
		Context: generateContext{
			Path:   req.Path,
			Prefix: req.Prefix,
			Suffix: req.Suffix,
			Lang:   req.Language,
		},
		Model:        c.model(),
		Locale:       c.locale(),
		MaxNewTokens: blockMaxTokens,
	}
	if req.Mode == ModeLine {
		body.MaxNewTokens = lineMaxTokens
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return "", &askapi.TransportError{URL: c.url, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(askapi.CodeTokenHeader, c.token)

	c.logger.Debug("generate request", "url", c.url, "mode", req.Mode.String(), "prefix_len", len(req.Prefix))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &askapi.TransportError{URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &askapi.TransportError{URL: c.url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("generate failed", "status", resp.StatusCode)
		return "", &askapi.TransportError{URL: c.url, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var decoded generateResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		c.logger.Warn("invalid generate response", "error", err)
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(decoded.InlineCompletions) == 0 {
		return "", nil
	}
	return decoded.InlineCompletions[0].Text, nil
}
