package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rec-portal/internal/middleware"
	"github.com/noah-isme/rec-portal/internal/notify"
	"github.com/noah-isme/rec-portal/internal/query"
	"github.com/noah-isme/rec-portal/internal/web"
	appErrors "github.com/noah-isme/rec-portal/pkg/errors"
	"github.com/noah-isme/rec-portal/pkg/response"
)

// renderPage renders name inside the layout with the viewer and any pending notifications.
func renderPage(c *gin.Context, status int, name, title string, content any) {
	c.Header("Cache-Control", "no-store")
	c.HTML(status, name, web.Page{
		Title:   title,
		Viewer:  middleware.CurrentUser(c),
		Toasts:  notify.FromContext(c.Request.Context()).Drain(),
		Content: content,
	})
}

// redirect finishes a form post, carrying notifications over to the next page.
func redirect(c *gin.Context, location string) {
	notify.Persist(c)
	c.Redirect(http.StatusSeeOther, location)
}

// banners maps a fetch status onto the inline notices.
func banners(status query.Status, err error, loadingText, errorPrefix string) web.Banners {
	b := web.Banners{
		Loading:     status == query.StatusLoading,
		LoadingText: loadingText,
		ErrorPrefix: errorPrefix,
	}
	if err != nil && status == query.StatusError {
		b.Error = appErrors.FromError(err).Message
	}
	return b
}

// pathID reads the :id route parameter.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.HTMLError(c, appErrors.Clone(appErrors.ErrNotFound, "recommendation request not found"))
		return 0, false
	}
	return id, true
}

// localPath accepts only same-site paths so form fields cannot redirect off-site.
func localPath(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	return raw
}

// backPath is where Cancel leads: the referring page when it is on this site.
func backPath(c *gin.Context, fallback string) string {
	ref, err := url.Parse(c.GetHeader("Referer"))
	if err != nil || ref.Path == "" {
		return fallback
	}
	if ref.Host != "" && ref.Host != c.Request.Host {
		return fallback
	}
	if ref.Path == c.Request.URL.Path {
		return fallback
	}
	return localPath(ref.RequestURI(), fallback)
}
