package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/rec-portal/internal/backend"
	"github.com/noah-isme/rec-portal/internal/notify"
	appErrors "github.com/noah-isme/rec-portal/pkg/errors"
)

// Status is the render state of a fetch.
type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// QueryResult is what a page renders from. Defined is false when neither the
// backend nor a fallback produced a value, which pages must render distinctly
// from an empty fallback.
type QueryResult[T any] struct {
	Data    T
	Defined bool
	Err     error
	Status  Status
}

// Loading reports whether the backend had not answered within the render timeout.
func (r QueryResult[T]) Loading() bool { return r.Status == StatusLoading }

// Fetch reads key from the cache or performs the GET described by d and
// caches its body. fallback, when non-nil, is returned until a fetch succeeds.
// Failures are logged, surfaced as a notification and returned in Err.
func Fetch[T any](ctx context.Context, c *Client, key CacheKey, d backend.Descriptor, fallback *T) QueryResult[T] {
	if d.Method == "" {
		d.Method = http.MethodGet
	}

	if raw, ok := c.cached(ctx, key); ok {
		result, err := decode(raw, fallback)
		if err == nil {
			result.Status = StatusSuccess
			return result
		}
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", key.String()), zap.Error(err))
		_ = c.Invalidate(ctx, key)
	}

	ch := c.group.DoChan(key.String(), func() (interface{}, error) {
		since := c.gens.begin(key.String())
		defer c.gens.end(key.String())
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.FetchTimeout)
		defer cancel()
		raw, err := c.transport.Do(fetchCtx, d)
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			raw = []byte("null")
		}
		if !json.Valid(raw) {
			return nil, appErrors.Wrap(fmt.Errorf("invalid JSON from %s", d.URL), appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "backend returned malformed data")
		}
		c.store(fetchCtx, key, raw, since)
		return json.RawMessage(raw), nil
	})

	var timeout <-chan time.Time
	if c.cfg.RenderTimeout > 0 {
		timer := time.NewTimer(c.cfg.RenderTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return failed(ctx, c, d, res.Err, fallback)
		}
		result, err := decode(res.Val.(json.RawMessage), fallback)
		if err != nil {
			return failed(ctx, c, d, err, fallback)
		}
		result.Status = StatusSuccess
		return result
	case <-timeout:
		c.logger.Debug("backend fetch still in flight at render time", zap.String("key", key.String()))
		return withFallback(QueryResult[T]{Status: StatusLoading}, fallback)
	case <-ctx.Done():
		return withFallback(QueryResult[T]{Status: StatusLoading, Err: ctx.Err()}, fallback)
	}
}

func failed[T any](ctx context.Context, c *Client, d backend.Descriptor, err error, fallback *T) QueryResult[T] {
	message := fmt.Sprintf("Error communicating with backend via %s on %s", d.Method, d.URL)
	c.logger.Error(message, zap.Error(err))
	notify.Push(ctx, message)
	return withFallback(QueryResult[T]{Status: StatusError, Err: err}, fallback)
}

func decode[T any](raw json.RawMessage, fallback *T) (QueryResult[T], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return withFallback(QueryResult[T]{}, fallback), nil
	}
	var data T
	if err := json.Unmarshal(trimmed, &data); err != nil {
		return QueryResult[T]{}, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "backend returned malformed data")
	}
	return QueryResult[T]{Data: data, Defined: true}, nil
}

func withFallback[T any](r QueryResult[T], fallback *T) QueryResult[T] {
	if fallback != nil {
		r.Data = *fallback
		r.Defined = true
	}
	return r
}
