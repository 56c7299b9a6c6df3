package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rec-portal/internal/models"
	"github.com/noah-isme/rec-portal/pkg/export"
)

type capturingRenderer struct {
	dataset export.Dataset
	err     error
}

func (r *capturingRenderer) Render(data export.Dataset) ([]byte, error) {
	r.dataset = data
	if r.err != nil {
		return nil, r.err
	}
	return []byte("rendered"), nil
}

func TestExportServiceStatisticsCSV(t *testing.T) {
	csv := &capturingRenderer{}
	svc := NewExportService(csv, nil, time.UTC, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	file, err := svc.Statistics([]models.RecommendationRequest{
		{ID: 1, Status: models.StatusPending, SubmissionDate: "2023-01-15T10:30:05Z"},
		{ID: 2, Status: models.StatusDenied},
	}, export.FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "request_statistics_20240506_070809.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.Equal(t, []byte("rendered"), file.Body)

	require.Len(t, csv.dataset.Sections, 2)
	summary := csv.dataset.Sections[0]
	assert.Equal(t, []string{"PENDING", "1"}, summary.Rows[0])
	assert.Equal(t, []string{"DENIED", "1"}, summary.Rows[3])
	assert.Equal(t, []string{"Total", "2"}, summary.Rows[len(summary.Rows)-1])

	list := csv.dataset.Sections[1]
	require.Len(t, list.Rows, 2)
	assert.Equal(t, "01:15:2023 10:05", list.Rows[0][8])
}

func TestExportServicePropagatesRendererErrors(t *testing.T) {
	svc := NewExportService(nil, &capturingRenderer{err: errors.New("boom")}, time.UTC, nil)

	_, err := svc.Statistics(nil, export.FormatPDF)
	assert.EqualError(t, err, "boom")

	_, err = svc.Statistics(nil, export.Format("xlsx"))
	assert.Error(t, err)
}
