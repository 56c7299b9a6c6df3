package query

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/rec-portal/internal/backend"
	"github.com/noah-isme/rec-portal/internal/notify"
)

// Mutation describes a write call and the views it affects.
type Mutation[In any] struct {
	// ToDescriptor maps the domain input to the backend call.
	ToDescriptor func(In) backend.Descriptor
	// OnSuccess runs after a 2xx response with the raw body.
	OnSuccess func(ctx context.Context, in In, body json.RawMessage)
	// OnError runs after a failed call, after logging and notification.
	OnError func(ctx context.Context, in In, err error)
	// Invalidates lists the keys dropped once the call settles, whatever the outcome.
	Invalidates []CacheKey
	// SerializeBy, when set, makes mutations with the same name run one at a time.
	SerializeBy func(In) string
}

// Mutate performs m exactly once. There are no retries and no optimistic
// cache updates: consistency comes from invalidating m.Invalidates.
func Mutate[In any](ctx context.Context, c *Client, m Mutation[In], in In) (json.RawMessage, error) {
	if m.SerializeBy != nil {
		if name := m.SerializeBy(in); name != "" {
			unlock := c.lock("mutation|" + name)
			defer unlock()
		}
	}

	d := m.ToDescriptor(in)
	body, err := c.transport.Do(ctx, d)

	if c.recorder != nil {
		c.recorder.RecordMutation(err == nil)
	}

	if err != nil {
		c.logger.Error("backend mutation failed",
			zap.String("method", d.Method),
			zap.String("url", d.URL),
			zap.Error(err))
		notify.Push(ctx, err.Error())
		if m.OnError != nil {
			m.OnError(ctx, in, err)
		}
	} else if m.OnSuccess != nil {
		m.OnSuccess(ctx, in, json.RawMessage(body))
	}

	if invErr := c.Invalidate(context.WithoutCancel(ctx), m.Invalidates...); invErr != nil {
		c.logger.Warn("invalidation after mutation failed", zap.Error(invErr))
	}

	return body, err
}
