package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/rec-portal/pkg/errors"
	"github.com/noah-isme/rec-portal/pkg/middleware/requestid"
)

const maxErrorBody = 4 << 10

// Observer receives timing for every upstream call.
type Observer interface {
	ObserveUpstream(method, endpoint string, status int, duration time.Duration)
}

// Client performs calls described by Descriptor against the REST API.
type Client struct {
	baseURL  string
	http     *http.Client
	observer Observer
	logger   *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithObserver records upstream timings.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient constructs a client for baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenKey struct{}

// WithToken makes outbound calls made with ctx carry the viewer's bearer token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token carried by ctx.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Do executes d and returns the raw response body. Transport failures map to
// ErrUpstreamUnavailable and non-2xx responses to ErrUpstream.
func (c *Client) Do(ctx context.Context, d Descriptor) ([]byte, error) {
	method := d.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.baseURL + d.URL
	if q := d.Query().Encode(); q != "" {
		target += "?" + q
	}

	var body io.Reader
	if d.Data != nil {
		payload, err := json.Marshal(d.Data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode request body")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build backend request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if reqID := requestid.FromContext(ctx); reqID != "" {
		req.Header.Set(requestid.Header(), reqID)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.observe(method, d.URL, http.StatusServiceUnavailable, duration)
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status,
			fmt.Sprintf("%s %s failed", method, d.URL))
	}
	defer resp.Body.Close()
	c.observe(method, d.URL, resp.StatusCode, duration)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status,
			fmt.Sprintf("read %s %s response", method, d.URL))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := upstreamMessage(raw)
		c.logger.Debug("backend non-2xx response",
			zap.String("method", method),
			zap.String("url", d.URL),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail))
		return nil, &appErrors.Error{
			Code:    appErrors.ErrUpstream.Code,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("Request failed with status code %d", resp.StatusCode),
			Err:     fmt.Errorf("%s %s: %s", method, d.URL, detail),
		}
	}

	return raw, nil
}

func (c *Client) observe(method, endpoint string, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(method, endpoint, status, duration)
	}
}

// upstreamMessage extracts a readable message from an error body.
func upstreamMessage(raw []byte) string {
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
