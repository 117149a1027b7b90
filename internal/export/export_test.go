package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/cve"
	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	"github.com/khanhnv2901/seca-suite/internal/shared/security"
)

func TestCVEReportCSV_QuotesDescription(t *testing.T) {
	records := []cve.Record{{
		ID:            "CVE-2024-0001",
		Severity:      finding.SeverityCritical,
		Score:         9.8,
		Vendor:        "Apache",
		Product:       "HTTP Server",
		PublishedDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Description:   `contains "quotes"`,
	}}

	got := CVEReportCSV(records)
	want := "CVE ID,Severity,CVSS Score,Vendor,Product,Published Date,Description\n" +
		`CVE-2024-0001,Critical,9.8,Apache,HTTP Server,2024-01-01,"contains ""quotes"""`
	if got != want {
		t.Fatalf("CSV mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestCVEReportCSV_EscapesOtherFieldsOnlyWhenNeeded(t *testing.T) {
	records := []cve.Record{{
		ID:            "CVE-2024-0002",
		Severity:      finding.SeverityHigh,
		Score:         7,
		Vendor:        "Acme, Inc.",
		Product:       "Widget",
		PublishedDate: time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC),
		Description:   "plain",
	}}

	lines := strings.Split(CVEReportCSV(records), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	want := `CVE-2024-0002,High,7,"Acme, Inc.",Widget,2024-02-03,"plain"`
	if lines[1] != want {
		t.Fatalf("row = %q, want %q", lines[1], want)
	}
}

func TestCVEReportCSV_EmptyFeedIsHeaderOnly(t *testing.T) {
	if got := CVEReportCSV(nil); got != strings.Join(CVEHeader, ",") {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestCVEReportFileName(t *testing.T) {
	now := time.Date(2024, 7, 9, 23, 0, 0, 0, time.UTC)
	if got := CVEReportFileName(now); got != "cve-report-2024-07-09.csv" {
		t.Fatalf("file name = %q", got)
	}
}

func subdomainReport(t *testing.T) *finding.Report {
	t.Helper()
	report, err := finding.NewReport("subdomain", "example.com", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewReport: %v", err)
	}
	add := func(f finding.Finding) {
		if err := report.AddFinding(f); err != nil {
			t.Fatalf("AddFinding: %v", err)
		}
	}
	add(finding.Finding{
		Subject:    "www",
		Severity:   finding.SeverityInfo,
		Outcome:    finding.OutcomeActive,
		Attributes: map[string]string{"fqdn": "www.example.com", "ip": "93.184.216.34"},
	})
	add(finding.Finding{
		Subject:  "legacy",
		Severity: finding.SeverityInfo,
		Outcome:  finding.OutcomeInactive,
	})
	return report
}

func TestWriteSubdomainCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSubdomainCSV(&buf, SubdomainRows(subdomainReport(t))); err != nil {
		t.Fatalf("WriteSubdomainCSV: %v", err)
	}

	want := "Subdomain,IP Address,Status\n" +
		"www.example.com,93.184.216.34,active\n" +
		"legacy.example.com,N/A,inactive\n"
	if buf.String() != want {
		t.Fatalf("CSV mismatch\n got: %q\nwant: %q", buf.String(), want)
	}
}

func TestSubdomainFileName(t *testing.T) {
	if got := SubdomainFileName("example.com"); got != "example.com_subdomains.csv" {
		t.Fatalf("file name = %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "csv", want: FormatCSV},
		{in: "JSON", want: FormatJSON},
		{in: "markdown", want: FormatMarkdown},
		{in: " md ", want: FormatMarkdown},
		{in: "PDF", want: FormatPDF},
		{in: "html", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseFormat(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func finalizedReport(t *testing.T) *finding.Report {
	t.Helper()
	started := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	report, err := finding.NewReport("headers", "https://example.com", started)
	if err != nil {
		t.Fatalf("NewReport: %v", err)
	}
	_ = report.AddFinding(finding.Finding{
		Subject:     "Content-Security-Policy",
		Category:    "header",
		Severity:    finding.SeverityHigh,
		Outcome:     finding.OutcomeMissing,
		Evidence:    "header not set",
		Remediation: "Define a restrictive Content-Security-Policy",
	})
	_ = report.AddFinding(finding.Finding{
		Subject:  "X-Frame-Options",
		Category: "header",
		Severity: finding.SeverityInfo,
		Outcome:  finding.OutcomePresent,
		Evidence: "DENY",
	})
	report.SetTotalTests(2)
	report.SetAttribute("grade", "C")
	if err := report.Finalize(started.Add(1500 * time.Millisecond)); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return report
}

func TestWriteReport_CSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, finalizedReport(t), FormatCSV); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(lines))
	}
	if lines[0] != "Subject,Category,Severity,Outcome,Evidence,Remediation" {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Content-Security-Policy,header,high,missing,") {
		t.Fatalf("row = %q", lines[1])
	}
}

func TestWriteReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, finalizedReport(t), FormatJSON); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc["risk"] != "high" {
		t.Fatalf("risk = %v", doc["risk"])
	}
	if doc["duration_ms"] != float64(1500) {
		t.Fatalf("duration_ms = %v", doc["duration_ms"])
	}
}

func TestWriteReport_Markdown(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, finalizedReport(t), FormatMarkdown); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# headers report: https://example.com",
		"**Overall risk:** High",
		"| Content-Security-Policy | header | High | missing | header not set |",
		"- Define a restrictive Content-Security-Policy",
		"- **grade:** C",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReport_PDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, finalizedReport(t), FormatPDF); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected PDF header, got %q", buf.Bytes()[:min(8, buf.Len())])
	}
	if FormatPDF.ContentType() != "application/pdf" {
		t.Fatalf("content type = %q", FormatPDF.ContentType())
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteFile(dir, "out.csv", []byte("a,b\n"))
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if filepath.Dir(path) != dir {
		abs, _ := filepath.Abs(dir)
		if filepath.Dir(path) != abs {
			t.Fatalf("written outside dir: %s", path)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "a,b\n" {
		t.Fatalf("read back %q, %v", data, err)
	}

	if _, err := WriteFile(dir, "../escape.csv", nil); !errors.Is(err, security.ErrInvalidFileName) {
		t.Fatalf("expected ErrInvalidFileName, got %v", err)
	}
}
