package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth = 277.0
	pdfMinColumn = 12.0
)

// PDFExporter renders datasets into landscape tabular PDFs.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with the dataset title and one table per section.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Sections) == 0 {
		return nil, fmt.Errorf("pdf requires at least one section")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	for _, section := range data.Sections {
		if len(section.Headers) == 0 {
			return nil, fmt.Errorf("pdf section %q requires at least one header", section.Title)
		}
		if section.Title != "" {
			pdf.SetFont("Arial", "B", 11)
			pdf.CellFormat(0, 8, tr(section.Title), "", 1, "L", false, 0, "")
		}
		widths := columnWidths(pdf, section)

		pdf.SetFont("Arial", "B", 8)
		for i, header := range section.Headers {
			pdf.CellFormat(widths[i], 7, tr(header), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 7)
		for _, row := range section.Rows {
			for i := range section.Headers {
				value := ""
				if i < len(row) {
					value = row[i]
				}
				pdf.CellFormat(widths[i], 6, tr(fit(pdf, value, widths[i])), "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths shares the page width in proportion to each column's widest header or cell.
func columnWidths(pdf *gofpdf.Fpdf, section Section) []float64 {
	pdf.SetFont("Arial", "", 7)
	want := make([]float64, len(section.Headers))
	total := 0.0
	for i, header := range section.Headers {
		w := pdf.GetStringWidth(header) + 4
		for _, row := range section.Rows {
			if i < len(row) {
				if cw := pdf.GetStringWidth(row[i]) + 4; cw > w {
					w = cw
				}
			}
		}
		if w < pdfMinColumn {
			w = pdfMinColumn
		}
		want[i] = w
		total += w
	}
	if total <= pdfPageWidth {
		return want
	}
	for i := range want {
		want[i] = want[i] * pdfPageWidth / total
	}
	return want
}

// fit truncates value so it stays inside a cell of width w.
func fit(pdf *gofpdf.Fpdf, value string, w float64) string {
	if pdf.GetStringWidth(value)+2 <= w {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...")+2 > w {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
