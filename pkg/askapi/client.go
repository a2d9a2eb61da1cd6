package askapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/kcaldas/copilot/pkg/logging"
	"github.com/kcaldas/copilot/pkg/stream"
)

const readBufferSize = 16 * 1024

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures the chat Client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(client httpDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger injects a custom logger implementation.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to the streaming chat endpoint.
type Client struct {
	httpClient httpDoer
	assembler  *Assembler
	logger     logging.Logger
}

// NewClient creates a chat client that builds bodies with assembler. The
// response of a chat request is streamed, so the default HTTP client has no
// overall timeout; cancel the context or Stop the stream instead.
func NewClient(assembler *Assembler, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		assembler:  assembler,
		logger:     logging.NewAPILogger("askapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Assembler returns the assembler used for chat bodies.
func (c *Client) Assembler() *Assembler {
	return c.assembler
}

// PostSSEChat assembles the chat body in the background and streams the
// answer. An ErrAugmentationUnavailable or TransportError is delivered by Recv.
func (c *Client) PostSSEChat(ctx context.Context, url, token string, req ChatRequest) *ChatStream {
	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan streamResult, 1)

	go func() {
		defer close(ch)

		assembled, err := c.assembler.ChatBody(streamCtx, req)
		if err != nil {
			c.send(streamCtx, ch, streamResult{Err: err})
			return
		}
		c.run(streamCtx, ch, url, token, assembled.Body)
	}()

	return newChatStream(cancel, ch)
}

// Send posts an already assembled body and streams the answer.
func (c *Client) Send(ctx context.Context, url, token string, body []byte) *ChatStream {
	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan streamResult, 1)

	go func() {
		defer close(ch)
		c.run(streamCtx, ch, url, token, body)
	}()

	return newChatStream(cancel, ch)
}

func (c *Client) run(ctx context.Context, ch chan<- streamResult, url, token string, body []byte) {
	if err := c.readStream(ctx, ch, url, token, body); err != nil && ctx.Err() == nil {
		c.logger.Error("chat stream failed", "url", url, "error", err)
		c.send(ctx, ch, streamResult{Err: err})
	}
}

func (c *Client) send(ctx context.Context, ch chan<- streamResult, result streamResult) bool {
	select {
	case ch <- result:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) readStream(ctx context.Context, ch chan<- streamResult, url, token string, body []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(CodeTokenHeader, token)

	c.logger.Debug("chat request", "url", url, "body", string(body))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &TransportError{URL: url, StatusCode: resp.StatusCode, Body: truncate(strings.TrimSpace(string(data)), 512)}
	}

	decoder := stream.NewDecoder(c.logger)
	buf := make([]byte, readBufferSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if !c.emit(ctx, ch, decoder.Feed(buf[:n])) {
				return nil
			}
		}
		if errors.Is(readErr, io.EOF) {
			c.emit(ctx, ch, decoder.Flush())
			return nil
		}
		if readErr != nil {
			return &TransportError{URL: url, Err: readErr}
		}
	}
}

// emit forwards the entries of records. It returns false once the stream is stopped.
func (c *Client) emit(ctx context.Context, ch chan<- streamResult, records []stream.Record) bool {
	for _, record := range records {
		entry := stream.Decode(record)
		if entry.IsZero() {
			continue
		}
		if !c.send(ctx, ch, streamResult{Entry: &entry}) {
			return false
		}
	}
	return true
}
