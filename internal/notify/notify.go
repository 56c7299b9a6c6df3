// Package notify carries transient viewer notifications ("toasts") across a
// request and, through signed session flashes, across the redirect that
// follows a form post.
package notify

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const (
	cookieName  = "portal_flash"
	flashMaxAge = 300
	maxStored   = 10
)

// Toasts is the per-request notification bucket. It is safe for concurrent use
// because reference lists are fetched in parallel.
type Toasts struct {
	mu       sync.Mutex
	messages []string
}

// Add appends a message. Empty messages are ignored.
func (t *Toasts) Add(message string) {
	if t == nil || message == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, message)
}

// Messages returns a snapshot of the queued messages.
func (t *Toasts) Messages() []string {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.messages))
	copy(out, t.messages)
	return out
}

// Drain returns and clears the queued messages.
func (t *Toasts) Drain() []string {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.messages
	t.messages = nil
	return out
}

type ctxKey struct{}

// WithToasts attaches a bucket to ctx.
func WithToasts(ctx context.Context, t *Toasts) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the bucket attached to ctx, or nil.
func FromContext(ctx context.Context) *Toasts {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(ctxKey{}).(*Toasts)
	return t
}

// Push adds message to the bucket carried by ctx, if any.
func Push(ctx context.Context, message string) {
	FromContext(ctx).Add(message)
}

// Sessions installs the signed cookie store that carries flashes between
// requests. It must run before Middleware.
func Sessions(secret []byte) gin.HandlerFunc {
	store := cookie.NewStore(secret)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(cookieName, store)
}

// Middleware attaches a bucket to every request, seeded from the flashes
// written by the previous response.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		toasts := &Toasts{}
		if session := flashSession(c); session != nil {
			if flashes := session.Flashes(); len(flashes) > 0 {
				for _, flash := range flashes {
					if message, ok := flash.(string); ok {
						toasts.Add(message)
					}
				}
				_ = session.Save()
			}
		}
		c.Request = c.Request.WithContext(WithToasts(c.Request.Context(), toasts))
		c.Next()
	}
}

// Persist stores the undisplayed messages as flashes. Call it before redirecting.
func Persist(c *gin.Context) {
	messages := FromContext(c.Request.Context()).Drain()
	if len(messages) == 0 {
		return
	}
	session := flashSession(c)
	if session == nil {
		return
	}
	if len(messages) > maxStored {
		messages = messages[len(messages)-maxStored:]
	}
	for _, message := range messages {
		session.AddFlash(message)
	}
	_ = session.Save()
}

func flashSession(c *gin.Context) sessions.Session {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return nil
	}
	return sessions.Default(c)
}
