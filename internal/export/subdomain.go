package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	"github.com/khanhnv2901/seca-suite/internal/shared/security"
)

// SubdomainRow is one line of the subdomain list
type SubdomainRow struct {
	Subdomain string
	IP        string
	Status    string
}

// SubdomainRows flattens a subdomain report. Findings without an address
// keep an empty IP, written as N/A.
func SubdomainRows(report *finding.Report) []SubdomainRow {
	findings := report.Findings()
	rows := make([]SubdomainRow, 0, len(findings))
	for _, f := range findings {
		name := f.Attribute("fqdn")
		if name == "" {
			name = f.Subject + "." + report.Target()
		}
		rows = append(rows, SubdomainRow{
			Subdomain: name,
			IP:        f.Attribute("ip"),
			Status:    string(f.Outcome),
		})
	}
	return rows
}

// WriteSubdomainCSV writes the header and rows with standard CSV quoting
func WriteSubdomainCSV(w io.Writer, rows []SubdomainRow) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"Subdomain", "IP Address", "Status"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		ip := row.IP
		if ip == "" {
			ip = "N/A"
		}
		if err := writer.Write([]string{row.Subdomain, ip, row.Status}); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// SubdomainFileName returns "<domain>_subdomains.csv"
func SubdomainFileName(domain string) string {
	return security.SanitizeFileName(domain) + "_subdomains.csv"
}
