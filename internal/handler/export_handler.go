package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rec-portal/internal/middleware"
	"github.com/noah-isme/rec-portal/internal/models"
	"github.com/noah-isme/rec-portal/internal/service"
	appErrors "github.com/noah-isme/rec-portal/pkg/errors"
	"github.com/noah-isme/rec-portal/pkg/export"
	"github.com/noah-isme/rec-portal/pkg/response"
)

type requestLister interface {
	ListForViewer(ctx context.Context, viewer models.CurrentUser) service.RequestList
}

type statisticsExporter interface {
	Statistics(requests []models.RecommendationRequest, format export.Format) (*service.ExportFile, error)
}

// ExportHandler serves statistics downloads.
type ExportHandler struct {
	requests requestLister
	exporter statisticsExporter
}

// NewExportHandler constructs an export handler.
func NewExportHandler(requests requestLister, exporter statisticsExporter) *ExportHandler {
	return &ExportHandler{requests: requests, exporter: exporter}
}

// Statistics godoc
// @Summary Download request statistics
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /requests/statistics/export [get]
func (h *ExportHandler) Statistics(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.HTMLError(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	list := h.requests.ListForViewer(c.Request.Context(), middleware.CurrentUser(c))
	if list.Err != nil {
		response.HTMLError(c, list.Err)
		return
	}
	if list.Loading() {
		response.HTMLError(c, appErrors.Clone(appErrors.ErrUpstreamUnavailable, "requests are still loading, try again shortly"))
		return
	}

	file, err := h.exporter.Statistics(list.Data, format)
	if err != nil {
		response.HTMLError(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Body)
}
