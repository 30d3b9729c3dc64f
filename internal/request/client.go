package request

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxAttempts = 4
	defaultBackoffBase = 400 * time.Millisecond
)

// Result is the only shape a caller ever sees. Transport failures, exhausted
// retries and unparseable bodies all collapse into OK=false plus Err; the
// client never returns a Go error.
type Result struct {
	OK     bool
	Status int
	Data   any
	Err    string
}

// Client posts and gets JSON with a fixed per-attempt timeout and a bounded
// exponential backoff between attempts. A received HTTP response is terminal
// regardless of status; only transport errors are retried.
type Client struct {
	http        *http.Client
	maxAttempts int
	backoffBase time.Duration
	log         *zap.Logger
}

type Option func(*Client)

func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithBackoffBase(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoffBase = d
		}
	}
}

// WithHTTPClient swaps the underlying transport, used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func New(timeout time.Duration, log *zap.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		http:        &http.Client{Timeout: timeout},
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Get(ctx context.Context, url string) Result {
	return c.Do(ctx, http.MethodGet, url, nil)
}

func (c *Client) PostJSON(ctx context.Context, url string, body any) Result {
	return c.Do(ctx, http.MethodPost, url, body)
}

func (c *Client) Do(ctx context.Context, method, url string, body any) Result {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return Result{Err: "encode request body: " + err.Error()}
		}
		payload = encoded
	}
	if c.log != nil {
		c.log.Debug("outbound request", zap.String("method", method), zap.String("url", url), zap.ByteString("body", payload))
	}

	backoff := c.backoffBase
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		res, err := c.attempt(ctx, method, url, payload)
		if err == nil {
			return res
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return Result{Err: ctx.Err().Error()}
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return Result{Err: lastErr.Error()}
}

func (c *Client) attempt(ctx context.Context, method, url string, payload []byte) (Result, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return Result{}, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	if c.log != nil {
		c.log.Debug("response received", zap.String("url", url), zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
	}
	return Result{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
		Data:   decodeBody(raw),
	}, nil
}

// decodeBody keeps a non-JSON body verbatim under a "raw" key instead of
// discarding it.
func decodeBody(raw []byte) any {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var data any
		if err := json.Unmarshal(raw, &data); err == nil {
			return data
		}
	}
	return map[string]any{"raw": string(raw)}
}
