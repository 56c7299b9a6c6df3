package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/rec-portal/internal/backend"
	"github.com/noah-isme/rec-portal/internal/models"
	"github.com/noah-isme/rec-portal/internal/notify"
	"github.com/noah-isme/rec-portal/internal/query"
)

// Notification texts shown after successful writes.
const (
	MessageCreated = "Recommendation request created successfully!"
	MessageUpdated = "Recommendation request updated successfully"
)

// RequestList is the fetch result pages render a table from.
type RequestList = query.QueryResult[[]models.RecommendationRequest]

// RequestService reads and writes recommendation requests on behalf of a viewer.
type RequestService struct {
	query  *query.Client
	loc    *time.Location
	logger *zap.Logger
}

// NewRequestService constructs a request service. loc is the zone due dates are entered in.
func NewRequestService(q *query.Client, loc *time.Location, logger *zap.Logger) *RequestService {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{query: q, loc: loc, logger: logger}
}

// Location returns the display and entry time zone.
func (s *RequestService) Location() *time.Location {
	return s.loc
}

// OwningListEndpoint is the list a viewer's table is loaded from: professors
// review the requests addressed to them, everyone else sees their own.
func OwningListEndpoint(viewer models.CurrentUser) string {
	if models.HasCapability(viewer, models.CapabilityProfessor) {
		return EndpointProfessorAll
	}
	return EndpointRequesterAll
}

// ListOwn loads the viewer's own requests with an empty-list fallback.
func (s *RequestService) ListOwn(ctx context.Context, viewer models.CurrentUser) RequestList {
	return s.list(ctx, viewer, EndpointRequesterAll)
}

// ListForViewer loads the viewer's owning list.
func (s *RequestService) ListForViewer(ctx context.Context, viewer models.CurrentUser) RequestList {
	return s.list(ctx, viewer, OwningListEndpoint(viewer))
}

// ListAll loads every request. The backend only answers admins.
func (s *RequestService) ListAll(ctx context.Context, viewer models.CurrentUser) RequestList {
	return s.list(ctx, viewer, EndpointAdminAll)
}

func (s *RequestService) list(ctx context.Context, viewer models.CurrentUser, endpoint string) RequestList {
	fallback := []models.RecommendationRequest{}
	return query.Fetch(ctx, s.query,
		query.Key(endpoint, query.ForViewer(viewerKey(viewer))),
		backend.Descriptor{URL: endpoint, Method: http.MethodGet},
		&fallback)
}

// Get loads one request without fallback, so an unanswered fetch leaves it undefined.
func (s *RequestService) Get(ctx context.Context, viewer models.CurrentUser, id int64) query.QueryResult[models.RecommendationRequest] {
	return query.Fetch[models.RecommendationRequest](ctx, s.query,
		query.Key(EndpointRequest, query.WithParam("id", id), query.ForViewer(viewerKey(viewer))),
		backend.Descriptor{URL: EndpointRequest, Method: http.MethodGet, Params: map[string]any{"id": id}},
		nil)
}

// Create submits a new request.
func (s *RequestService) Create(ctx context.Context, viewer models.CurrentUser, draft models.RequestDraft) error {
	d, err := CreateParams(draft, s.loc)
	if err != nil {
		return err
	}
	_, err = query.Mutate(ctx, s.query, query.Mutation[models.RequestDraft]{
		ToDescriptor: func(models.RequestDraft) backend.Descriptor { return d },
		OnSuccess: func(ctx context.Context, _ models.RequestDraft, _ json.RawMessage) {
			s.logger.Info("recommendation request created", zap.String("viewer", viewer.ID))
			notify.Push(ctx, MessageCreated)
		},
		Invalidates: listKeys(),
	}, draft)
	return err
}

// Update saves the editable fields of existing.
func (s *RequestService) Update(ctx context.Context, viewer models.CurrentUser, existing models.RecommendationRequest, draft models.RequestDraft) error {
	_, err := query.Mutate(ctx, s.query, query.Mutation[models.RequestDraft]{
		ToDescriptor: func(d models.RequestDraft) backend.Descriptor { return UpdateParams(existing, d) },
		OnSuccess: func(ctx context.Context, _ models.RequestDraft, _ json.RawMessage) {
			s.logger.Info("recommendation request updated", zap.Int64("id", existing.ID), zap.String("viewer", viewer.ID))
			notify.Push(ctx, MessageUpdated)
		},
		Invalidates: rowKeys(existing.ID),
		SerializeBy: func(models.RequestDraft) string { return rowLock(existing.ID) },
	}, draft)
	return err
}

// Delete removes a request. Admins go through the admin endpoint.
func (s *RequestService) Delete(ctx context.Context, viewer models.CurrentUser, id int64) error {
	isAdmin := models.HasCapability(viewer, models.CapabilityAdmin)
	_, err := query.Mutate(ctx, s.query, query.Mutation[models.RecommendationRequest]{
		ToDescriptor: func(row models.RecommendationRequest) backend.Descriptor { return DeleteParams(row, isAdmin) },
		OnSuccess: func(ctx context.Context, row models.RecommendationRequest, body json.RawMessage) {
			OnDeleteSuccess(ctx, s.logger, backendMessage(body, fmt.Sprintf("RecommendationRequest with id %d deleted", row.ID)))
		},
		Invalidates: rowKeys(id),
		SerializeBy: func(row models.RecommendationRequest) string { return rowLock(row.ID) },
	}, models.RecommendationRequest{ID: id})
	return err
}

// UpdateStatus proposes a new status for a request. Changes to one row are
// sent one at a time in the order they were issued.
func (s *RequestService) UpdateStatus(ctx context.Context, viewer models.CurrentUser, id int64, status models.RequestStatus) error {
	type change struct {
		row    models.RecommendationRequest
		status models.RequestStatus
	}
	_, err := query.Mutate(ctx, s.query, query.Mutation[change]{
		ToDescriptor: func(c change) backend.Descriptor { return UpdateStatusParams(c.row, c.status) },
		OnSuccess: func(ctx context.Context, c change, body json.RawMessage) {
			OnUpdateStatusSuccess(ctx, s.logger,
				backendMessage(body, fmt.Sprintf("RecommendationRequest with id %d updated to %s", c.row.ID, c.status)))
		},
		Invalidates: rowKeys(id),
		SerializeBy: func(c change) string { return rowLock(c.row.ID) },
	}, change{row: models.RecommendationRequest{ID: id}, status: status})
	if err == nil {
		s.logger.Debug("status change accepted", zap.Int64("id", id), zap.String("status", string(status)), zap.String("viewer", viewer.ID))
	}
	return err
}

// listKeys covers every list view. The cache is shared by all viewers, so a
// write by one viewer must refresh what the others see.
func listKeys() []query.CacheKey {
	return []query.CacheKey{
		query.Key(EndpointRequesterAll),
		query.Key(EndpointProfessorAll),
		query.Key(EndpointAdminAll),
	}
}

func rowKeys(id int64) []query.CacheKey {
	return append(listKeys(), query.Key(EndpointRequest, query.WithParam("id", id)))
}

func rowLock(id int64) string {
	return "request-" + strconv.FormatInt(id, 10)
}

func viewerKey(viewer models.CurrentUser) string {
	if viewer.ID != "" {
		return viewer.ID
	}
	return viewer.Email
}
