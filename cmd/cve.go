package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-suite/internal/domain/cve"
	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	"github.com/khanhnv2901/seca-suite/internal/export"
)

const maxDescriptionWidth = 60

var cveCmd = &cobra.Command{
	Use:   "cve",
	Short: "Browse the vulnerability feed",
}

var cveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List feed entries, optionally filtered",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		c, err := appCtx.Container(commandContext(cmd))
		if err != nil {
			return err
		}
		if _, err := currentSession(cmd, c, "cve list"); err != nil {
			return err
		}

		search, _ := cmd.Flags().GetString("search")
		vendor, _ := cmd.Flags().GetString("vendor")
		severityValue, _ := cmd.Flags().GetString("severity")
		format, _ := cmd.Flags().GetString("format")
		doExport, _ := cmd.Flags().GetBool("export")
		out, _ := cmd.Flags().GetString("out")

		severity, err := finding.ParseSeverity(severityValue)
		if err != nil {
			return err
		}
		if err := validateOutputFormat(format); err != nil {
			return err
		}

		records := c.ScanService.CVEFeed(cve.Filter{Search: search, Severity: severity, Vendor: vendor})

		if doExport {
			path, err := writeExport(appCtx, out, export.CVEReportFileName(time.Now()), []byte(export.CVEReportCSV(records)))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Exported %d CVE(s) to %s\n", colorSuccess("✓"), len(records), path)
			return nil
		}

		if format == outputFormatJSON {
			return encodeJSON(cmd.OutOrStdout(), records)
		}
		return printCVETable(cmd, records)
	},
}

func printCVETable(cmd *cobra.Command, records []cve.Record) error {
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintf(out, "%s matching CVEs\n", colorWarn("No"))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CVE\tSEVERITY\tSCORE\tVENDOR\tPRODUCT\tPUBLISHED\tFLAGS\tDESCRIPTION")
	for _, rec := range records {
		var flags []string
		if rec.ExploitAvailable {
			flags = append(flags, "exploit")
		}
		if rec.Trending {
			flags = append(flags, "trending")
		}
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID, formatSeverityWithColor(rec.Severity), rec.Score, rec.Vendor, rec.Product,
			rec.PublishedDate.Format("2006-01-02"), strings.Join(flags, ","), truncate(rec.Description, maxDescriptionWidth))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d CVE(s)\n", len(records))
	return nil
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

func init() {
	cveListCmd.Flags().String("search", "", "Match ID, description, vendor or product")
	cveListCmd.Flags().String("severity", "", "Only this severity (critical, high, medium, low)")
	cveListCmd.Flags().String("vendor", "", "Only this vendor")
	cveListCmd.Flags().String("format", outputFormatTable, "Output format (table or json)")
	cveListCmd.Flags().Bool("export", false, "Write the filtered feed as CSV")
	cveListCmd.Flags().String("out", "", "Export file or directory (default <data_dir>/exports)")

	cveCmd.AddCommand(cveListCmd)
}
