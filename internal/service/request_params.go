package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/rec-portal/internal/backend"
	"github.com/noah-isme/rec-portal/internal/models"
	"github.com/noah-isme/rec-portal/internal/notify"
	"github.com/noah-isme/rec-portal/pkg/datefmt"
	appErrors "github.com/noah-isme/rec-portal/pkg/errors"
)

// REST endpoints of the recommendation API.
const (
	EndpointRequest         = "/api/recommendationrequest"
	EndpointRequestAdmin    = "/api/recommendationrequest/admin"
	EndpointRequestCreate   = "/api/recommendationrequest/post"
	EndpointRequestStatus   = "/api/recommendationrequest/professor"
	EndpointRequesterAll    = "/api/recommendationrequest/requester/all"
	EndpointProfessorAll    = "/api/recommendationrequest/professor/all"
	EndpointAdminAll        = "/api/recommendationrequest/admin/all"
	EndpointProfessors      = "/api/admin/users/professors"
	EndpointRequestTypesAll = "/api/requesttypes/all"
)

const backendTimestampLayout = "2006-01-02T15:04:05.000Z"

// DeleteParams describes the delete call for row. Admins use the admin endpoint.
func DeleteParams(row models.RecommendationRequest, isAdmin bool) backend.Descriptor {
	url := EndpointRequest
	if isAdmin {
		url = EndpointRequestAdmin
	}
	return backend.Descriptor{
		URL:    url,
		Method: http.MethodDelete,
		Params: map[string]any{"id": row.ID},
	}
}

// UpdateStatusParams describes a professor's status change for row.
func UpdateStatusParams(row models.RecommendationRequest, status models.RequestStatus) backend.Descriptor {
	return backend.Descriptor{
		URL:    EndpointRequestStatus,
		Method: http.MethodPut,
		Params: map[string]any{"id": row.ID},
		Data:   models.StatusUpdate{Status: status},
	}
}

// CreateParams describes the create call. The due date is read in loc and
// sent to the backend as a UTC ISO timestamp.
func CreateParams(draft models.RequestDraft, loc *time.Location) (backend.Descriptor, error) {
	due, err := ParseDueDate(draft.DueDate, loc)
	if err != nil {
		return backend.Descriptor{}, err
	}
	return backend.Descriptor{
		URL:    EndpointRequestCreate,
		Method: http.MethodPost,
		Params: map[string]any{
			"professorId":        draft.ProfessorID,
			"recommendationType": draft.RecommendationType,
			"details":            draft.Details,
			"dueDate":            due.UTC().Format(backendTimestampLayout),
		},
	}, nil
}

type updatePayload struct {
	ID                 int64                `json:"id"`
	Details            string               `json:"details"`
	RecommendationType string               `json:"recommendationType"`
	DueDate            string               `json:"dueDate,omitempty"`
	Status             models.RequestStatus `json:"status"`
	Professor          models.UserRef       `json:"professor"`
	Requester          models.UserRef       `json:"requester"`
}

// UpdateParams describes the edit call. Only details come from the form; every
// other field is sent back as the backend returned it.
func UpdateParams(existing models.RecommendationRequest, draft models.RequestDraft) backend.Descriptor {
	return backend.Descriptor{
		URL:    EndpointRequest,
		Method: http.MethodPut,
		Params: map[string]any{"id": existing.ID},
		Data: updatePayload{
			ID:                 existing.ID,
			Details:            draft.Details,
			RecommendationType: existing.RecommendationType,
			DueDate:            existing.DueDate,
			Status:             existing.Status,
			Professor:          existing.Professor,
			Requester:          existing.Requester,
		},
	}
}

// ParseDueDate reads a datetime-local value in loc.
func ParseDueDate(value string, loc *time.Location) (time.Time, error) {
	if t, ok := datefmt.ParseInput(value, loc); ok {
		return t, nil
	}
	return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "Please provide a valid due date")
}

// OnDeleteSuccess logs message and shows it to the viewer.
func OnDeleteSuccess(ctx context.Context, logger *zap.Logger, message string) {
	announce(ctx, logger, "recommendation request deleted", message)
}

// OnUpdateStatusSuccess logs message and shows it to the viewer.
func OnUpdateStatusSuccess(ctx context.Context, logger *zap.Logger, message string) {
	announce(ctx, logger, "recommendation request status updated", message)
}

func announce(ctx context.Context, logger *zap.Logger, event, message string) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info(event, zap.String("message", message))
	notify.Push(ctx, message)
}

// backendMessage returns the "message" field of body, or fallback when absent.
func backendMessage(body json.RawMessage, fallback string) string {
	var ack models.BackendMessage
	if err := json.Unmarshal(body, &ack); err == nil && strings.TrimSpace(ack.Message) != "" {
		return ack.Message
	}
	return fallback
}
