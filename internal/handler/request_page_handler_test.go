package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rec-portal/internal/backend"
	"github.com/noah-isme/rec-portal/internal/middleware"
	"github.com/noah-isme/rec-portal/internal/models"
	"github.com/noah-isme/rec-portal/internal/notify"
	"github.com/noah-isme/rec-portal/internal/query"
	"github.com/noah-isme/rec-portal/internal/repository"
	"github.com/noah-isme/rec-portal/internal/service"
	"github.com/noah-isme/rec-portal/internal/web"
)

type upstreamCall struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type upstream struct {
	mu     sync.Mutex
	calls  []upstreamCall
	bodies map[string]string
	codes  map[string]int
}

func newUpstream(t *testing.T) (*upstream, *httptest.Server) {
	t.Helper()
	up := &upstream{bodies: map[string]string{}, codes: map[string]int{}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		route := r.Method + " " + r.URL.Path
		up.mu.Lock()
		up.calls = append(up.calls, upstreamCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(raw)})
		body, ok := up.bodies[route]
		code := up.codes[route]
		up.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		if code == 0 {
			code = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return up, server
}

func (u *upstream) respond(method, path string, code int, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.bodies[method+" "+path] = body
	u.codes[method+" "+path] = code
}

func (u *upstream) count(method, path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, c := range u.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (u *upstream) last(method, path string) (upstreamCall, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := len(u.calls) - 1; i >= 0; i-- {
		if u.calls[i].Method == method && u.calls[i].Path == path {
			return u.calls[i], true
		}
	}
	return upstreamCall{}, false
}

var (
	professorViewer = models.NewCurrentUser("2", "prof@ucsb.edu", "Phill Conrad", "ROLE_USER", "ROLE_PROFESSOR")
	studentViewer   = models.NewCurrentUser("7", "student@ucsb.edu", "Chris Gaucho", "ROLE_USER", "ROLE_STUDENT")
	adminViewer     = models.NewCurrentUser("1", "admin@ucsb.edu", "Admin", "ROLE_USER", "ROLE_ADMIN")
)

const professorList = `[
  {"id":1,"professor":{"id":2,"fullName":"Phill Conrad","email":"prof@ucsb.edu"},
   "requester":{"id":7,"fullName":"Chris Gaucho","email":"student@ucsb.edu"},
   "recommendationType":"PhD program","details":"Fall 2024","status":"PENDING",
   "submissionDate":"2023-01-15T10:30:05Z","dueDate":"2024-06-01T09:00:00Z"},
  {"id":2,"professor":{"id":2,"fullName":"Phill Conrad","email":"prof@ucsb.edu"},
   "requester":{"id":8,"fullName":"Pat Storke","email":"pat@ucsb.edu"},
   "recommendationType":"Masters program","details":"Spring","status":"DENIED"}
]`

// newTestRouter wires the page handler the way the server does, with the
// viewer injected instead of read from a session token.
func newTestRouter(t *testing.T, server *httptest.Server, viewer models.CurrentUser) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	transport := backend.NewClient(server.URL, 2*time.Second, nil)
	cache := service.NewCacheService(repository.NewMemoryCacheRepository(), nil, time.Minute, nil)
	q := query.NewClient(transport, cache, nil, nil, query.Config{CacheTTL: time.Minute})
	requests := service.NewRequestService(q, time.UTC, nil)
	references := service.NewReferenceService(transport, nil)
	pages := NewRequestPageHandler(requests, references)
	exports := NewExportHandler(requests, service.NewExportService(nil, nil, time.UTC, nil))

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	r := gin.New()
	r.HTMLRender = renderer
	r.Use(notify.Sessions([]byte("test-secret")), notify.Middleware())
	r.Use(func(c *gin.Context) {
		if !viewer.Anonymous() {
			c.Set(middleware.ContextUserKey, viewer)
		}
		c.Next()
	})

	user := r.Group("", middleware.RequireCapability(models.CapabilityUser))
	user.GET(PathProfile, pages.Profile)
	user.GET(PathCreate, pages.CreateForm)
	user.POST(PathCreate, pages.Create)
	user.GET("/student/recommendations/edit/:id", pages.EditForm)
	user.POST("/student/recommendations/edit/:id", pages.Edit)
	user.POST("/requests/:id/delete", pages.Delete)

	reviewers := r.Group("/requests", middleware.RequireCapability(models.CapabilityProfessor, models.CapabilityStudent))
	reviewers.GET("/pending", pages.Pending)
	reviewers.GET("/completed", pages.Completed)
	reviewers.GET("/statistics", pages.Statistics)
	reviewers.GET("/statistics/export", exports.Statistics)

	r.POST("/requests/:id/status", middleware.RequireCapability(models.CapabilityProfessor), pages.UpdateStatus)
	r.GET(PathAdmin, middleware.RequireCapability(models.CapabilityAdmin), pages.Admin)
	return r
}

func get(r http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProfessorChangesStatusFromPendingPage(t *testing.T) {
	up, server := newUpstream(t)
	up.respond(http.MethodGet, service.EndpointProfessorAll, http.StatusOK, professorList)
	up.respond(http.MethodPut, service.EndpointRequestStatus, http.StatusOK,
		`{"message":"RecommendationRequest with id 1 updated to COMPLETED"}`)
	r := newTestRouter(t, server, professorViewer)

	w := get(r, PathPending)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `data-testid="status-dropdown-1"`)
	assert.Contains(t, body, `action="/requests/1/status"`)
	assert.NotContains(t, body, `data-testid="RecommendationRequestTable-row-2"`)
	assert.Equal(t, 1, up.count(http.MethodGet, service.EndpointProfessorAll))

	// A second render is served from the cache.
	get(r, PathPending)
	assert.Equal(t, 1, up.count(http.MethodGet, service.EndpointProfessorAll))

	w = postForm(r, "/requests/1/status", url.Values{"status": {"COMPLETED"}, "return_to": {PathPending}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, PathPending, w.Header().Get("Location"))

	put, ok := up.last(http.MethodPut, service.EndpointRequestStatus)
	require.True(t, ok)
	assert.Equal(t, "id=1", put.Query)
	assert.JSONEq(t, `{"status":"COMPLETED"}`, put.Body)

	var flash *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "portal_flash" {
			flash = c
		}
	}
	require.NotNil(t, flash)

	w = get(r, PathPending, flash)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "RecommendationRequest with id 1 updated to COMPLETED")
	assert.Equal(t, 2, up.count(http.MethodGet, service.EndpointProfessorAll))
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	up, server := newUpstream(t)
	r := newTestRouter(t, server, professorViewer)

	w := postForm(r, "/requests/1/status", url.Values{"status": {"SUBMITTED"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, up.count(http.MethodPut, service.EndpointRequestStatus))
}

func TestStudentSeesNoStatusSelectors(t *testing.T) {
	up, server := newUpstream(t)
	up.respond(http.MethodGet, service.EndpointRequesterAll, http.StatusOK, professorList)
	r := newTestRouter(t, server, studentViewer)

	w := get(r, PathPending)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.NotContains(t, body, "status-dropdown-")
	assert.Contains(t, body, `data-testid="status-span-1"`)
	assert.Contains(t, body, "RecommendationRequestTable-cell-row-1-col-Edit-button")
	assert.Contains(t, body, "RecommendationRequestTable-cell-row-1-col-Delete-button")
}

func TestCompletedShowsClosedRequests(t *testing.T) {
	up, server := newUpstream(t)
	up.respond(http.MethodGet, service.EndpointProfessorAll, http.StatusOK, professorList)
	r := newTestRouter(t, server, professorViewer)

	w := get(r, PathCompleted)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `data-testid="RecommendationRequestTable-row-2"`)
	assert.NotContains(t, body, `data-testid="RecommendationRequestTable-row-1"`)
	assert.Contains(t, body, `data-testid="status-span-2"`)
}

func TestProfileFormatsDatesAndShowsFetchErrors(t *testing.T) {
	up, server := newUpstream(t)
	up.respond(http.MethodGet, service.EndpointRequesterAll, http.StatusOK, professorList)
	r := newTestRouter(t, server, studentViewer)

	w := get(r, PathProfile)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "01:15:2023 10:05")

	_, failing := newUpstream(t)
	r = newTestRouter(t, failing, studentViewer)

	w = get(r, PathProfile)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Error communicating with backend via GET on /api/recommendationrequest/requester/all")
	assert.Contains(t, body, "Error loading recommendation requests")
	assert.NotContains(t, body, "No requests data available")
}

func TestCreateValidatesBeforeCallingBackend(t *testing.T) {
	up, server := newUpstream(t)
	up.respond(http.MethodGet, service.EndpointProfessors, http.StatusOK, `[]`)
	up.respond(http.MethodGet, service.EndpointRequestTypesAll, http.StatusOK, `null`)
	r := newTestRouter(t, server, studentViewer)

	w := postForm(r, PathCreate, url.Values{"details": {"Masters"}, "dueDate": {"2024-06-01T09:00"}})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Please select a professor")
	assert.Contains(t, body, "Please select a recommendation type")
	assert.Contains(t, body, "No professors available")
	assert.Contains(t, body, "No recommendation types available, use Other in details")
	assert.Equal(t, 0, up.count(http.MethodPost, service.EndpointRequestCreate))
}

func TestCreateSubmitsAndRedirects(t *testing.T) {
	up, server := newUpstream(t)
	up.respond(http.MethodPost, service.EndpointRequestCreate, http.StatusOK, `{"id":9}`)
	r := newTestRouter(t, server, studentViewer)

	w := postForm(r, PathCreate, url.Values{
		"professor_id":       {"2"},
		"recommendationType": {"Other"},
		"details":            {"Masters"},
		"dueDate":            {"2024-06-01T09:00"},
	})

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, PathProfile, w.Header().Get("Location"))
	call, ok := up.last(http.MethodPost, service.EndpointRequestCreate)
	require.True(t, ok)
	assert.Equal(t, "details=Masters&dueDate=2024-06-01T09%3A00%3A00.000Z&professorId=2&recommendationType=Other", call.Query)
}

func TestEditKeepsLockedFieldsFromBackend(t *testing.T) {
	up, server := newUpstream(t)
	up.respond(http.MethodGet, service.EndpointRequest, http.StatusOK,
		`{"id":1,"professor":{"id":2,"fullName":"Phill Conrad"},"recommendationType":"PhD program","details":"old","status":"PENDING","dueDate":"2024-06-01T09:00:00Z"}`)
	up.respond(http.MethodPut, service.EndpointRequest, http.StatusOK, `{"id":1}`)
	r := newTestRouter(t, server, studentViewer)

	w := get(r, "/student/recommendations/edit/1")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `value="old"`)
	assert.Contains(t, body, "Phill Conrad")

	w = postForm(r, "/student/recommendations/edit/1", url.Values{
		"details":            {"new details"},
		"recommendationType": {"tampered"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)

	put, ok := up.last(http.MethodPut, service.EndpointRequest)
	require.True(t, ok)
	assert.Equal(t, "id=1", put.Query)
	assert.Contains(t, put.Body, `"details":"new details"`)
	assert.Contains(t, put.Body, `"recommendationType":"PhD program"`)
}

func TestEditShowsErrorBannerWhenRequestMissing(t *testing.T) {
	up, server := newUpstream(t)
	up.respond(http.MethodGet, service.EndpointRequest, http.StatusNotFound, `{"message":"not found"}`)
	r := newTestRouter(t, server, studentViewer)

	w := get(r, "/student/recommendations/edit/5")

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Error loading recommendation request: Request failed with status code 404")
	assert.NotContains(t, body, "RecommendationRequestForm-submit")
}

func TestAdminDeleteUsesAdminEndpoint(t *testing.T) {
	up, server := newUpstream(t)
	up.respond(http.MethodDelete, service.EndpointRequestAdmin, http.StatusOK, `{"message":"RecommendationRequest with id 3 deleted"}`)
	r := newTestRouter(t, server, adminViewer)

	w := postForm(r, "/requests/3/delete", url.Values{"return_to": {"//evil.example.com"}})

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, PathProfile, w.Header().Get("Location"))
	call, ok := up.last(http.MethodDelete, service.EndpointRequestAdmin)
	require.True(t, ok)
	assert.Equal(t, "id=3", call.Query)
	assert.Equal(t, 0, up.count(http.MethodDelete, service.EndpointRequest))
}

func TestRoleGating(t *testing.T) {
	_, server := newUpstream(t)

	w := get(newTestRouter(t, server, models.CurrentUser{}), PathProfile)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(newTestRouter(t, server, studentViewer), PathAdmin)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = postForm(newTestRouter(t, server, studentViewer), "/requests/1/status", url.Values{"status": {"COMPLETED"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStatisticsCountsAndExport(t *testing.T) {
	up, server := newUpstream(t)
	up.respond(http.MethodGet, service.EndpointProfessorAll, http.StatusOK, professorList)
	r := newTestRouter(t, server, professorViewer)

	w := get(r, "/requests/statistics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `data-testid="count-PENDING">1<`)
	assert.Contains(t, body, `data-testid="count-DENIED">1<`)
	assert.Contains(t, body, `data-testid="count-total">2<`)

	w = get(r, "/requests/statistics/export?format=csv")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "request_statistics_")
	assert.Contains(t, w.Body.String(), "PhD program")

	w = get(r, "/requests/statistics/export?format=xlsx")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
