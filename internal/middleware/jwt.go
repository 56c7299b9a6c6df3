package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/rec-portal/internal/backend"
	"github.com/noah-isme/rec-portal/internal/models"
	"github.com/noah-isme/rec-portal/pkg/config"
	appErrors "github.com/noah-isme/rec-portal/pkg/errors"
	"github.com/noah-isme/rec-portal/pkg/logger"
)

// ContextUserKey is the gin context key storing the viewer.
const ContextUserKey = "currentUser"

// SessionVerifier validates the session tokens minted by the authentication service.
type SessionVerifier struct {
	secret     []byte
	cookieName string
}

// NewSessionVerifier constructs a verifier for cfg.
func NewSessionVerifier(cfg config.SessionConfig) *SessionVerifier {
	return &SessionVerifier{secret: []byte(cfg.Secret), cookieName: cfg.CookieName}
}

// Verify parses an HS256 session token.
func (v *SessionVerifier) Verify(tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid session token")
	}
	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session token")
	}
	return claims, nil
}

// token reads the session from the cookie, falling back to a bearer header.
func (v *SessionVerifier) token(c *gin.Context) string {
	if v.cookieName != "" {
		if raw, err := c.Cookie(v.cookieName); err == nil && raw != "" {
			return raw
		}
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Session attaches the viewer when a valid token is present and forwards the
// token on backend calls. It never blocks: gating is left to RequireCapability.
func Session(v *SessionVerifier, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		tokenString := v.token(c)
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := v.Verify(tokenString)
		if err != nil {
			log.Debug("ignoring invalid session token", zap.Error(err))
			c.Next()
			return
		}

		viewer := claims.CurrentUser()
		c.Set(ContextUserKey, viewer)
		c.Set(logger.ViewerKey, viewer.ID)
		c.Request = c.Request.WithContext(backend.WithToken(c.Request.Context(), tokenString))
		c.Next()
	}
}

// CurrentUser returns the viewer attached by Session, or an anonymous viewer.
func CurrentUser(c *gin.Context) models.CurrentUser {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return models.CurrentUser{}
	}
	viewer, _ := value.(models.CurrentUser)
	return viewer
}
