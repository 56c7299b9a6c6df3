package service

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/rec-portal/internal/models"
	"github.com/noah-isme/rec-portal/pkg/datefmt"
	"github.com/noah-isme/rec-portal/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders request statistics as CSV or PDF downloads.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(csv csvRenderer, pdf pdfRenderer, loc *time.Location, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if loc == nil {
		loc = time.Local
	}
	return &ExportService{csv: csv, pdf: pdf, loc: loc, logger: logger, now: time.Now}
}

var requestExportHeaders = []string{
	"id", "Professor Name", "Professor Email", "Requester Name", "Requester Email",
	"Recommendation Type", "Details", "Status",
	"Submission Date", "Last Modified Date", "Completion Date", "Due Date",
}

// Statistics renders the status summary followed by the requests it counts.
func (s *ExportService) Statistics(requests []models.RecommendationRequest, format export.Format) (*ExportFile, error) {
	dataset := s.statisticsDataset(requests)

	var (
		body []byte
		err  error
	)
	switch format {
	case export.FormatCSV:
		body, err = s.csv.Render(dataset)
	case export.FormatPDF:
		body, err = s.pdf.Render(dataset)
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		s.logger.Error("statistics export failed", zap.String("format", string(format)), zap.Error(err))
		return nil, err
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("request_statistics_%s.%s", s.now().UTC().Format("20060102_150405"), format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

func (s *ExportService) statisticsDataset(requests []models.RecommendationRequest) export.Dataset {
	stats := models.SummarizeRequests(requests)
	summary := export.Section{Title: "By status", Headers: []string{"Status", "Requests"}}
	for _, c := range stats.Counts {
		summary.Rows = append(summary.Rows, []string{string(c.Status), strconv.Itoa(c.Count)})
	}
	summary.Rows = append(summary.Rows,
		[]string{"Open", strconv.Itoa(stats.Open)},
		[]string{"Closed", strconv.Itoa(stats.Closed)},
		[]string{"Total", strconv.Itoa(stats.Total)},
	)

	list := export.Section{Title: "Requests", Headers: requestExportHeaders}
	for _, r := range requests {
		list.Rows = append(list.Rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.Professor.FullName,
			r.Professor.Email,
			r.Requester.FullName,
			r.Requester.Email,
			r.RecommendationType,
			r.Details,
			string(r.Status),
			datefmt.Format(r.SubmissionDate, s.loc),
			datefmt.Format(r.LastModifiedDate, s.loc),
			datefmt.Format(r.CompletionDate, s.loc),
			datefmt.Format(r.DueDate, s.loc),
		})
	}

	return export.Dataset{Title: "Recommendation Request Statistics", Sections: []export.Section{summary, list}}
}
