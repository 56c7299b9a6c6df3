package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rec-portal/internal/middleware"
	"github.com/noah-isme/rec-portal/internal/models"
	"github.com/noah-isme/rec-portal/internal/query"
	"github.com/noah-isme/rec-portal/internal/service"
	"github.com/noah-isme/rec-portal/internal/view"
	"github.com/noah-isme/rec-portal/internal/web"
	appErrors "github.com/noah-isme/rec-portal/pkg/errors"
	"github.com/noah-isme/rec-portal/pkg/response"
)

// Page paths the handlers redirect to.
const (
	PathProfile   = "/student/profile"
	PathCreate    = "/student/recommendations/create"
	PathPending   = "/requests/pending"
	PathCompleted = "/requests/completed"
	PathAdmin     = "/admin/requests"
)

type requestService interface {
	Location() *time.Location
	ListOwn(ctx context.Context, viewer models.CurrentUser) service.RequestList
	ListForViewer(ctx context.Context, viewer models.CurrentUser) service.RequestList
	ListAll(ctx context.Context, viewer models.CurrentUser) service.RequestList
	Get(ctx context.Context, viewer models.CurrentUser, id int64) query.QueryResult[models.RecommendationRequest]
	Create(ctx context.Context, viewer models.CurrentUser, draft models.RequestDraft) error
	Update(ctx context.Context, viewer models.CurrentUser, existing models.RecommendationRequest, draft models.RequestDraft) error
	Delete(ctx context.Context, viewer models.CurrentUser, id int64) error
	UpdateStatus(ctx context.Context, viewer models.CurrentUser, id int64, status models.RequestStatus) error
}

type referenceService interface {
	Load(ctx context.Context) service.References
}

// RequestPageHandler renders the recommendation request pages and handles their form posts.
type RequestPageHandler struct {
	requests   requestService
	references referenceService
}

// NewRequestPageHandler constructs the page handler.
func NewRequestPageHandler(requests requestService, references referenceService) *RequestPageHandler {
	return &RequestPageHandler{requests: requests, references: references}
}

// Profile godoc
// @Summary Viewer's own requests
// @Tags Pages
// @Produce html
// @Success 200 {string} string "HTML page"
// @Router /student/profile [get]
func (h *RequestPageHandler) Profile(c *gin.Context) {
	viewer := middleware.CurrentUser(c)
	list := h.requests.ListOwn(c.Request.Context(), viewer)

	content := web.ProfileContent{
		Banners: banners(list.Status, list.Err, "Loading recommendation requests...", "Error loading recommendation requests"),
		Defined: list.Defined,
	}
	if list.Defined {
		content.Table = view.BuildTable(list.Data, viewer, view.TableOptions{
			Location: h.requests.Location(),
			ReturnTo: PathProfile,
		})
	}
	renderPage(c, http.StatusOK, web.PageProfile, "My Requests", content)
}

// CreateForm godoc
// @Summary Request creation form
// @Tags Pages
// @Produce html
// @Success 200 {string} string "HTML page"
// @Router /student/recommendations/create [get]
func (h *RequestPageHandler) CreateForm(c *gin.Context) {
	h.renderCreate(c, http.StatusOK, view.FormState{}, nil)
}

// Create godoc
// @Summary Submit a new request
// @Tags Pages
// @Accept x-www-form-urlencoded
// @Produce html
// @Success 303 {string} string "Redirect to the profile page"
// @Failure 422 {string} string "Form with field errors"
// @Router /student/recommendations/create [post]
func (h *RequestPageHandler) Create(c *gin.Context) {
	var state view.FormState
	if err := c.ShouldBind(&state); err != nil {
		h.renderCreate(c, http.StatusBadRequest, state, nil)
		return
	}
	if errs := view.ValidateForm(state, nil); len(errs) > 0 {
		h.renderCreate(c, http.StatusUnprocessableEntity, state, errs)
		return
	}

	err := h.requests.Create(c.Request.Context(), middleware.CurrentUser(c), state.Draft())
	if err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Code == appErrors.ErrValidation.Code {
			h.renderCreate(c, http.StatusUnprocessableEntity, state, map[string]string{view.FieldDueDate: appErr.Message})
			return
		}
		h.renderCreate(c, appErr.Status, state, nil)
		return
	}
	redirect(c, PathProfile)
}

func (h *RequestPageHandler) renderCreate(c *gin.Context, status int, state view.FormState, errs map[string]string) {
	refs := h.references.Load(c.Request.Context())
	form := view.BuildForm(view.FormOptions{
		Action:       PathCreate,
		ButtonLabel:  "Create",
		CancelURL:    backPath(c, PathProfile),
		State:        state,
		Errors:       errs,
		Professors:   refs.Professors,
		RequestTypes: refs.RequestTypes,
	})
	renderPage(c, status, web.PageRequestForm, "Create Request", web.FormContent{
		Heading: "Create New Recommendation Request",
		Defined: true,
		Form:    form,
	})
}

// EditForm godoc
// @Summary Request edit form
// @Tags Pages
// @Produce html
// @Param id path int true "Request ID"
// @Success 200 {string} string "HTML page"
// @Router /student/recommendations/edit/{id} [get]
func (h *RequestPageHandler) EditForm(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	existing, refs := h.loadForEdit(c, id)
	state := view.FormState{}
	if existing.Defined {
		state = view.FormStateFromRequest(existing.Data, h.requests.Location())
	}
	h.renderEdit(c, http.StatusOK, id, existing, refs, state, nil)
}

// Edit godoc
// @Summary Save request details
// @Tags Pages
// @Accept x-www-form-urlencoded
// @Produce html
// @Param id path int true "Request ID"
// @Success 303 {string} string "Redirect to the profile page"
// @Failure 422 {string} string "Form with field errors"
// @Router /student/recommendations/edit/{id} [post]
func (h *RequestPageHandler) Edit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	viewer := middleware.CurrentUser(c)
	existing, refs := h.loadForEdit(c, id)
	if !existing.Defined {
		status := http.StatusOK
		if existing.Err != nil {
			status = appErrors.FromError(existing.Err).Status
		}
		h.renderEdit(c, status, id, existing, refs, view.FormState{}, nil)
		return
	}

	var posted view.FormState
	_ = c.ShouldBind(&posted)
	state := view.FormStateFromRequest(existing.Data, h.requests.Location())
	state.Details = posted.Details

	if errs := view.ValidateForm(state, view.EditReadOnlyFields); len(errs) > 0 {
		h.renderEdit(c, http.StatusUnprocessableEntity, id, existing, refs, state, errs)
		return
	}

	if err := h.requests.Update(c.Request.Context(), viewer, existing.Data, state.Draft()); err != nil {
		h.renderEdit(c, appErrors.FromError(err).Status, id, existing, refs, state, nil)
		return
	}
	redirect(c, PathProfile)
}

// loadForEdit fetches the request and the reference lists side by side.
func (h *RequestPageHandler) loadForEdit(c *gin.Context, id int64) (query.QueryResult[models.RecommendationRequest], service.References) {
	ctx := c.Request.Context()
	var (
		existing query.QueryResult[models.RecommendationRequest]
		refs     service.References
		wg       sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		refs = h.references.Load(ctx)
	}()
	existing = h.requests.Get(ctx, middleware.CurrentUser(c), id)
	wg.Wait()
	return existing, refs
}

func (h *RequestPageHandler) renderEdit(c *gin.Context, status int, id int64, existing query.QueryResult[models.RecommendationRequest], refs service.References, state view.FormState, errs map[string]string) {
	content := web.FormContent{
		Heading: "Edit Recommendation Request",
		Banners: banners(existing.Status, existing.Err, "Loading recommendation request...", "Error loading recommendation request"),
		Defined: existing.Defined,
	}
	if existing.Defined {
		content.Form = view.BuildForm(view.FormOptions{
			Action:       view.EditURL(id),
			ButtonLabel:  "Update",
			CancelURL:    backPath(c, PathProfile),
			Editing:      true,
			State:        state,
			ReadOnly:     view.EditReadOnlyFields,
			Errors:       errs,
			Professors:   refs.Professors,
			RequestTypes: refs.RequestTypes,
		})
	}
	renderPage(c, status, web.PageRequestForm, "Edit Request", content)
}

// Pending godoc
// @Summary Open requests
// @Description Professors get a status selector on every row.
// @Tags Pages
// @Produce html
// @Success 200 {string} string "HTML page"
// @Router /requests/pending [get]
func (h *RequestPageHandler) Pending(c *gin.Context) {
	h.renderFiltered(c, "Pending Requests", "Requests that are still awaiting a decision.", PathPending, true,
		func(r models.RecommendationRequest) bool { return r.Status.IsOpen() })
}

// Completed godoc
// @Summary Closed requests
// @Tags Pages
// @Produce html
// @Success 200 {string} string "HTML page"
// @Router /requests/completed [get]
func (h *RequestPageHandler) Completed(c *gin.Context) {
	h.renderFiltered(c, "Completed Requests", "Requests that were completed or denied.", PathCompleted, false,
		func(r models.RecommendationRequest) bool { return r.Status.IsClosed() })
}

func (h *RequestPageHandler) renderFiltered(c *gin.Context, heading, description, path string, pending bool, keep func(models.RecommendationRequest) bool) {
	viewer := middleware.CurrentUser(c)
	list := h.requests.ListForViewer(c.Request.Context(), viewer)

	renderPage(c, http.StatusOK, web.PageRequestList, heading, web.ListContent{
		Heading:     heading,
		Description: description,
		Banners:     banners(list.Status, list.Err, "Loading recommendation requests...", "Error loading recommendation requests"),
		Table: view.BuildTable(models.FilterRequests(list.Data, keep), viewer, view.TableOptions{
			Pending:  pending,
			Location: h.requests.Location(),
			ReturnTo: path,
		}),
	})
}

// Admin godoc
// @Summary Every request
// @Tags Pages
// @Produce html
// @Success 200 {string} string "HTML page"
// @Router /admin/requests [get]
func (h *RequestPageHandler) Admin(c *gin.Context) {
	viewer := middleware.CurrentUser(c)
	list := h.requests.ListAll(c.Request.Context(), viewer)

	renderPage(c, http.StatusOK, web.PageRequestList, "All Requests", web.ListContent{
		Heading: "All Recommendation Requests",
		Banners: banners(list.Status, list.Err, "Loading recommendation requests...", "Error loading recommendation requests"),
		Table: view.BuildTable(list.Data, viewer, view.TableOptions{
			Location: h.requests.Location(),
			ReturnTo: PathAdmin,
		}),
	})
}

// Statistics godoc
// @Summary Request counts per status
// @Tags Pages
// @Produce html
// @Success 200 {string} string "HTML page"
// @Router /requests/statistics [get]
func (h *RequestPageHandler) Statistics(c *gin.Context) {
	list := h.requests.ListForViewer(c.Request.Context(), middleware.CurrentUser(c))

	renderPage(c, http.StatusOK, web.PageStatistics, "Statistics", web.StatisticsContent{
		Banners: banners(list.Status, list.Err, "Loading recommendation requests...", "Error loading recommendation requests"),
		Stats:   models.SummarizeRequests(list.Data),
	})
}

// UpdateStatus godoc
// @Summary Propose a new status
// @Tags Pages
// @Accept x-www-form-urlencoded
// @Param id path int true "Request ID"
// @Param status formData string true "PENDING, COMPLETED or DENIED"
// @Success 303 {string} string "Redirect back to the list"
// @Router /requests/{id}/status [post]
func (h *RequestPageHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	status := models.RequestStatus(c.PostForm("status"))
	if !isProfessorChoice(status) {
		response.HTMLError(c, appErrors.Clone(appErrors.ErrValidation, "unsupported status "+string(status)))
		return
	}

	// Failures are already logged and queued as notifications.
	_ = h.requests.UpdateStatus(c.Request.Context(), middleware.CurrentUser(c), id, status)
	redirect(c, localPath(c.PostForm("return_to"), PathPending))
}

// Delete godoc
// @Summary Delete a request
// @Tags Pages
// @Accept x-www-form-urlencoded
// @Param id path int true "Request ID"
// @Success 303 {string} string "Redirect back to the list"
// @Router /requests/{id}/delete [post]
func (h *RequestPageHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	_ = h.requests.Delete(c.Request.Context(), middleware.CurrentUser(c), id)
	redirect(c, localPath(c.PostForm("return_to"), PathProfile))
}

func isProfessorChoice(status models.RequestStatus) bool {
	for _, s := range models.ProfessorStatusChoices {
		if s == status {
			return true
		}
	}
	return false
}
