package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/rec-portal/internal/models"
	"github.com/noah-isme/rec-portal/internal/notify"
	appErrors "github.com/noah-isme/rec-portal/pkg/errors"
)

func TestDeleteParams(t *testing.T) {
	row := models.RecommendationRequest{ID: 17}

	own := DeleteParams(row, false)
	assert.Equal(t, "/api/recommendationrequest", own.URL)
	assert.Equal(t, http.MethodDelete, own.Method)
	assert.Equal(t, map[string]any{"id": int64(17)}, own.Params)
	assert.Nil(t, own.Data)

	admin := DeleteParams(row, true)
	assert.Equal(t, "/api/recommendationrequest/admin", admin.URL)
	assert.Equal(t, http.MethodDelete, admin.Method)
	assert.Equal(t, map[string]any{"id": int64(17)}, admin.Params)
}

func TestUpdateStatusParams(t *testing.T) {
	d := UpdateStatusParams(models.RecommendationRequest{ID: 17}, models.StatusCompleted)

	assert.Equal(t, "/api/recommendationrequest/professor", d.URL)
	assert.Equal(t, http.MethodPut, d.Method)
	assert.Equal(t, map[string]any{"id": int64(17)}, d.Params)
	assert.Equal(t, models.StatusUpdate{Status: "COMPLETED"}, d.Data)
}

func TestCreateParamsConvertsDueDateToUTC(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*60*60)
	d, err := CreateParams(models.RequestDraft{
		ProfessorID:        "3",
		RecommendationType: "PhD program",
		Details:            "Fall intake",
		DueDate:            "2024-03-01T17:30",
	}, loc)
	require.NoError(t, err)

	assert.Equal(t, "/api/recommendationrequest/post", d.URL)
	assert.Equal(t, http.MethodPost, d.Method)
	assert.Equal(t, "2024-03-02T01:30:00.000Z", d.Params["dueDate"])
	assert.Equal(t, "3", d.Params["professorId"])
	assert.Equal(t, "PhD program", d.Params["recommendationType"])
	assert.Equal(t, "Fall intake", d.Params["details"])
	assert.Nil(t, d.Data)
}

func TestCreateParamsRejectsInvalidDueDate(t *testing.T) {
	_, err := CreateParams(models.RequestDraft{ProfessorID: "1", RecommendationType: "Other", DueDate: "soon"}, time.UTC)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCreateParamsAcceptsSecondsFromSteppedInput(t *testing.T) {
	d, err := CreateParams(models.RequestDraft{ProfessorID: "1", RecommendationType: "Other", DueDate: "2024-03-01T17:30:45"}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T17:30:45.000Z", d.Params["dueDate"])
}

func TestUpdateParamsTakesOnlyDetailsFromForm(t *testing.T) {
	existing := models.RecommendationRequest{
		ID:                 9,
		Professor:          models.UserRef{ID: 2, FullName: "Prof Two", Email: "two@ucsb.edu"},
		Requester:          models.UserRef{ID: 5, FullName: "Student Five", Email: "five@ucsb.edu"},
		RecommendationType: "Internship",
		Details:            "old",
		Status:             models.StatusPending,
		DueDate:            "2024-05-01T00:00:00",
	}

	d := UpdateParams(existing, models.RequestDraft{
		ProfessorID:        "99",
		RecommendationType: "Other",
		Details:            "new details",
		DueDate:            "2030-01-01T00:00",
	})

	assert.Equal(t, "/api/recommendationrequest", d.URL)
	assert.Equal(t, http.MethodPut, d.Method)
	assert.Equal(t, map[string]any{"id": int64(9)}, d.Params)
	payload, ok := d.Data.(updatePayload)
	require.True(t, ok)
	assert.Equal(t, "new details", payload.Details)
	assert.Equal(t, "Internship", payload.RecommendationType)
	assert.Equal(t, "2024-05-01T00:00:00", payload.DueDate)
	assert.Equal(t, existing.Professor, payload.Professor)
	assert.Equal(t, existing.Requester, payload.Requester)
	assert.Equal(t, models.StatusPending, payload.Status)
}

func TestSuccessNotifiersLogAndNotify(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	toasts := &notify.Toasts{}
	ctx := notify.WithToasts(context.Background(), toasts)

	OnDeleteSuccess(ctx, zap.New(core), "abc")
	OnUpdateStatusSuccess(ctx, zap.New(core), "def")

	assert.Equal(t, []string{"abc", "def"}, toasts.Messages())
	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "abc", entries[0].ContextMap()["message"])
	assert.Equal(t, "def", entries[1].ContextMap()["message"])
}

func TestBackendMessage(t *testing.T) {
	assert.Equal(t, "RecommendationRequest with id 15 deleted",
		backendMessage([]byte(`{"message":"RecommendationRequest with id 15 deleted"}`), "fallback"))
	assert.Equal(t, "fallback", backendMessage([]byte(`{"id":15,"status":"COMPLETED"}`), "fallback"))
	assert.Equal(t, "fallback", backendMessage(nil, "fallback"))
}
