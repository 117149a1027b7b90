package cmd

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	"github.com/khanhnv2901/seca-suite/internal/export"
)

const telemetryBarWidth = 40

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Browse and export stored scan reports",
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getAppContext(cmd).Container(commandContext(cmd))
		if err != nil {
			return err
		}
		if _, err := currentSession(cmd, c, "report list"); err != nil {
			return err
		}

		tool, _ := cmd.Flags().GetString("tool")
		reports, err := c.ScanService.ListReports(commandContext(cmd), strings.ToLower(tool))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(reports) == 0 {
			fmt.Fprintf(out, "%s reports stored\n", colorWarn("No"))
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTOOL\tTARGET\tRISK\tFINDINGS\tCOMPLETED")
		for _, r := range reports {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
				r.ID(), r.Tool(), r.Target(), formatSeverityWithColor(r.Risk()),
				r.PositiveCount(), r.TotalTests(), r.CompletedAt().Local().Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := loadReport(cmd, args[0], "report show")
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if err := validateOutputFormat(format); err != nil {
			return err
		}
		includeNegative, _ := cmd.Flags().GetBool("include-negative")
		return printReport(cmd.OutOrStdout(), report, format, includeNegative)
	},
}

var reportExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a report as CSV, JSON, Markdown or PDF",
	Long: `Export a report as CSV, JSON, Markdown or PDF.

Subdomain reports exported as CSV list Subdomain, IP Address and Status.
Without --out the file is written under <data_dir>/exports.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		report, err := loadReport(cmd, args[0], "report export")
		if err != nil {
			return err
		}

		formatValue, _ := cmd.Flags().GetString("format")
		format, err := export.ParseFormat(formatValue)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")

		data, name, err := renderReportExport(report, format)
		if err != nil {
			return err
		}
		path, err := writeExport(appCtx, out, name, data)
		if err != nil {
			return err
		}

		appCtx.Logger.Infow("report exported", "report_id", report.ID(), "format", string(format), "path", path)
		fmt.Fprintf(cmd.OutOrStdout(), "%s Exported %s to %s\n", colorSuccess("✓"), report.ID(), path)
		return nil
	},
}

var reportDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getAppContext(cmd).Container(commandContext(cmd))
		if err != nil {
			return err
		}
		if _, err := currentSession(cmd, c, "report delete"); err != nil {
			return err
		}
		if err := c.ScanService.DeleteReport(commandContext(cmd), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", colorSuccess("✓"), args[0])
		return nil
	},
}

var reportTelemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "Graph recent finding counts from telemetry.jsonl",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		tool, _ := cmd.Flags().GetString("tool")
		format, _ := cmd.Flags().GetString("format")
		limit, _ := cmd.Flags().GetInt("limit")

		history, err := loadTelemetryHistory(appCtx.DataDir, strings.ToLower(tool), limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(history) == 0 {
			fmt.Fprintf(out, "%s telemetry records found (enable with --telemetry)\n", colorWarn("No"))
			return nil
		}

		switch strings.ToLower(format) {
		case "json":
			return encodeJSON(out, history)
		case "ascii":
			printTelemetryASCII(out, history)
			return nil
		default:
			return &UnsupportedFormatError{Format: format, Allowed: []string{"ascii", "json"}}
		}
	},
}

// loadReport fetches a report after checking the session
func loadReport(cmd *cobra.Command, id, action string) (*finding.Report, error) {
	c, err := getAppContext(cmd).Container(commandContext(cmd))
	if err != nil {
		return nil, err
	}
	if _, err := currentSession(cmd, c, action); err != nil {
		return nil, err
	}
	return c.ScanService.GetReport(commandContext(cmd), id)
}

// renderReportExport returns the export bytes and the default file name
func renderReportExport(report *finding.Report, format export.Format) ([]byte, string, error) {
	var buf bytes.Buffer
	if format == export.FormatCSV && report.Tool() == "subdomain" {
		if err := export.WriteSubdomainCSV(&buf, export.SubdomainRows(report)); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), export.SubdomainFileName(report.Target()), nil
	}

	if err := export.WriteReport(&buf, report, format); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), export.ReportFileName(report, format), nil
}

// printTelemetryASCII draws the positive share of each run as a bar
func printTelemetryASCII(w io.Writer, records []telemetryRecord) {
	fmt.Fprintln(w, colorInfo("Finding Rate Trend"))
	for _, rec := range records {
		rate := 0.0
		if rec.TotalTests > 0 {
			rate = float64(rec.FindingCount) / float64(rec.TotalTests) * 100
		}
		barLen := int(math.Round(rate / 100.0 * telemetryBarWidth))
		if barLen > telemetryBarWidth {
			barLen = telemetryBarWidth
		}
		if barLen == 0 && rate > 0 {
			barLen = 1
		}
		fmt.Fprintf(w, "%s | %6.2f%% | %-*s | %s %s (%s)\n",
			rec.Timestamp.Local().Format("2006-01-02 15:04"),
			rate,
			telemetryBarWidth,
			strings.Repeat("#", barLen),
			rec.Tool,
			rec.Target,
			rec.Risk,
		)
	}
}

func init() {
	reportListCmd.Flags().String("tool", "", "Only reports from this tool")
	reportShowCmd.Flags().String("format", outputFormatTable, "Output format (table or json)")
	reportShowCmd.Flags().Bool("include-negative", false, "Also list negative results")
	reportExportCmd.Flags().String("format", string(export.FormatCSV), "Export format: csv|json|md|pdf")
	reportExportCmd.Flags().String("out", "", "Output file or directory (default <data_dir>/exports)")
	reportTelemetryCmd.Flags().String("tool", "", "Only runs of this tool")
	reportTelemetryCmd.Flags().String("format", "ascii", "Output format: ascii|json")
	reportTelemetryCmd.Flags().Int("limit", 10, "Number of recent runs to display")

	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportExportCmd)
	reportCmd.AddCommand(reportDeleteCmd)
	reportCmd.AddCommand(reportTelemetryCmd)
}
