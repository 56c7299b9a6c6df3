package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rec-portal/internal/models"
	appErrors "github.com/noah-isme/rec-portal/pkg/errors"
	"github.com/noah-isme/rec-portal/pkg/response"
)

// RequireCapability lets the request through when the viewer holds any of
// the allowed capabilities. Anonymous viewers get 401, others 403.
func RequireCapability(allowed ...models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := CurrentUser(c)
		if viewer.Anonymous() {
			response.HTMLError(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !models.HasAnyCapability(viewer, allowed...) {
			response.HTMLError(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
