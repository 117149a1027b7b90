package export

import (
	"embed"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	"github.com/khanhnv2901/seca-suite/internal/shared/constants"
	"github.com/khanhnv2901/seca-suite/internal/shared/security"
)

// Format selects the report encoding
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
)

const (
	jsonPrefix = ""
	jsonIndent = "  "
)

//go:embed templates/report.md
var templateFS embed.FS

var markdownTemplate = template.Must(
	template.New("report.md").Funcs(template.FuncMap{
		"title":      func(s finding.Severity) string { return s.Title() },
		"formatTime": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
		"cell":       markdownCell,
	}).ParseFS(templateFS, "templates/report.md"),
)

// ParseFormat accepts csv, json, md, markdown and pdf
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (use csv, json, md or pdf)", value)
	}
}

// ContentType returns the MIME type served for the format
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// ReportDocument is the JSON shape of an exported report
type ReportDocument struct {
	ID              string            `json:"id"`
	Tool            string            `json:"tool"`
	Target          string            `json:"target"`
	Risk            finding.Severity  `json:"risk"`
	TotalTests      int               `json:"total_tests"`
	Findings        []finding.Finding `json:"findings"`
	Recommendations []string          `json:"recommendations"`
	Attributes      map[string]string `json:"attributes,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	CompletedAt     time.Time         `json:"completed_at"`
	DurationMS      int64             `json:"duration_ms"`
}

// Document builds the serializable view of a report
func Document(report *finding.Report) ReportDocument {
	return ReportDocument{
		ID:              report.ID(),
		Tool:            report.Tool(),
		Target:          report.Target(),
		Risk:            report.Risk(),
		TotalTests:      report.TotalTests(),
		Findings:        report.Findings(),
		Recommendations: report.Recommendations(),
		Attributes:      report.Attributes(),
		StartedAt:       report.StartedAt(),
		CompletedAt:     report.CompletedAt(),
		DurationMS:      report.Duration().Milliseconds(),
	}
}

// WriteReport encodes the report in the requested format
func WriteReport(w io.Writer, report *finding.Report, format Format) error {
	switch format {
	case FormatCSV:
		return writeReportCSV(w, report)
	case FormatJSON:
		data, err := json.MarshalIndent(Document(report), jsonPrefix, jsonIndent)
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatMarkdown:
		if err := markdownTemplate.Execute(w, newMarkdownData(report)); err != nil {
			return fmt.Errorf("failed to execute %s template: %w", markdownTemplate.Name(), err)
		}
		return nil
	case FormatPDF:
		return writeReportPDF(w, report)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// ReportFileName derives "<tool>_<target>_<id>.<ext>"
func ReportFileName(report *finding.Report, format Format) string {
	return fmt.Sprintf("%s_%s_%s.%s", report.Tool(), security.SanitizeFileName(report.Target()), report.ID(), format)
}

// WriteFile stores data as name inside dir, refusing names that escape it
func WriteFile(dir, name string, data []byte) (string, error) {
	if err := security.ValidateFileName(name); err != nil {
		return "", err
	}
	path, err := security.ResolveWithin(dir, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(path, data, constants.DefaultFilePerm); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

func writeReportCSV(w io.Writer, report *finding.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Subject", "Category", "Severity", "Outcome", "Evidence", "Remediation"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, f := range report.Findings() {
		record := []string{f.Subject, f.Category, f.Severity.String(), string(f.Outcome), f.Evidence, f.Remediation}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

type attributeEntry struct {
	Key   string
	Value string
}

type markdownData struct {
	ReportDocument
	Positive        int
	Counts          []severityCount
	SortedAttribute []attributeEntry
}

type severityCount struct {
	Severity finding.Severity
	Count    int
}

func newMarkdownData(report *finding.Report) markdownData {
	data := markdownData{
		ReportDocument: Document(report),
		Positive:       report.PositiveCount(),
	}

	counts := report.CountBySeverity()
	for sev := finding.SeverityCritical; sev >= finding.SeverityInfo; sev-- {
		if n := counts[sev]; n > 0 {
			data.Counts = append(data.Counts, severityCount{Severity: sev, Count: n})
		}
	}

	keys := make([]string, 0, len(data.Attributes))
	for k := range data.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data.SortedAttribute = append(data.SortedAttribute, attributeEntry{Key: k, Value: data.Attributes[k]})
	}
	return data
}

func markdownCell(value string) string {
	value = strings.ReplaceAll(value, "|", `\|`)
	return strings.ReplaceAll(value, "\n", " ")
}
