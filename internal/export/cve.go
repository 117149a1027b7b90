package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/cve"
)

// CVEHeader is the first row of the CVE report
var CVEHeader = []string{"CVE ID", "Severity", "CVSS Score", "Vendor", "Product", "Published Date", "Description"}

const cveDateLayout = "2006-01-02"

// CVEReportCSV renders the feed as CSV text. Rows are separated by "\n".
// The description is always quoted; other fields only when they need it.
func CVEReportCSV(records []cve.Record) string {
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(CVEHeader, ","))

	for _, r := range records {
		fields := []string{
			escapeField(r.ID),
			escapeField(r.Severity.Title()),
			strconv.FormatFloat(r.Score, 'f', -1, 64),
			escapeField(r.Vendor),
			escapeField(r.Product),
			r.PublishedDate.Format(cveDateLayout),
			quoteField(r.Description),
		}
		lines = append(lines, strings.Join(fields, ","))
	}
	return strings.Join(lines, "\n")
}

// CVEReportFileName names the export after the day it was produced
func CVEReportFileName(now time.Time) string {
	return "cve-report-" + now.Format(cveDateLayout) + ".csv"
}

func escapeField(value string) string {
	if strings.ContainsAny(value, ",\"\n\r") {
		return quoteField(value)
	}
	return value
}

func quoteField(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
