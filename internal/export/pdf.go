package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
)

// maxPDFFindings bounds the detail section; the CSV and JSON exports carry everything.
const maxPDFFindings = 200

func writeReportPDF(w io.Writer, report *finding.Report) error {
	data := newMarkdownData(report)
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("%s report: %s", data.Tool, data.Target), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Report ID: %s", data.ID), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Started: %s", data.StartedAt.UTC().Format("2006-01-02 15:04:05 MST")), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Completed: %s", data.CompletedAt.UTC().Format("2006-01-02 15:04:05 MST")), "", 1, "", false, 0, "")
	pdf.Ln(5)

	// Summary
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Overall risk: %s | Tests: %d | Positive findings: %d",
		data.Risk.Title(), data.TotalTests, data.Positive), "", 1, "", false, 0, "")
	if len(data.Counts) > 0 {
		parts := make([]string, 0, len(data.Counts))
		for _, c := range data.Counts {
			parts = append(parts, fmt.Sprintf("%s: %d", c.Severity.Title(), c.Count))
		}
		pdf.CellFormat(0, 6, strings.Join(parts, " | "), "", 1, "", false, 0, "")
	}
	for _, attr := range data.SortedAttribute {
		pdf.CellFormat(0, 6, fmt.Sprintf("%s: %s", attr.Key, attr.Value), "", 1, "", false, 0, "")
	}
	pdf.Ln(5)

	// Findings
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Findings", "", 1, "", false, 0, "")
	pdf.Ln(2)
	if len(data.Findings) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 6, "No findings", "", 1, "", false, 0, "")
	}
	for i, f := range data.Findings {
		if i >= maxPDFFindings {
			pdf.SetFont("Arial", "I", 9)
			pdf.CellFormat(0, 6, fmt.Sprintf("... %d additional findings omitted ...", len(data.Findings)-maxPDFFindings), "", 1, "", false, 0, "")
			break
		}
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(0, 7, fmt.Sprintf("[%s] %s (%s)", f.Severity.Title(), f.Subject, f.Outcome), "", 1, "", true, 0, "")
		pdf.SetFont("Arial", "", 9)
		if f.Category != "" {
			pdf.CellFormat(0, 5, fmt.Sprintf("Category: %s", f.Category), "", 1, "", false, 0, "")
		}
		if f.Evidence != "" {
			pdf.MultiCell(0, 5, fmt.Sprintf("Evidence: %s", f.Evidence), "", "", false)
		}
		if f.Remediation != "" {
			pdf.MultiCell(0, 5, fmt.Sprintf("Remediation: %s", f.Remediation), "", "", false)
		}
		pdf.Ln(2)
	}

	if len(data.Recommendations) > 0 {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Recommendations", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, rec := range data.Recommendations {
			pdf.MultiCell(0, 5, "- "+rec, "", "", false)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render PDF report: %w", err)
	}
	return nil
}
