package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	scanapp "github.com/khanhnv2901/seca-suite/internal/application/scan"
	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	"github.com/khanhnv2901/seca-suite/internal/export"
	"github.com/khanhnv2901/seca-suite/internal/scanner"
)

const (
	outputFormatTable = "table"
	outputFormatJSON  = "json"
)

var scanOutputFormats = []string{outputFormatTable, outputFormatJSON}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the mock security tool panels",
}

var scanListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getAppContext(cmd).Container(commandContext(cmd))
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TOOL\tINPUT\tDELAY\tDESCRIPTION")
		for _, tool := range c.ScanService.Tools() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", tool.Name, tool.Input, tool.DefaultDelay, tool.Description)
		}
		return w.Flush()
	},
}

var scanRunCmd = &cobra.Command{
	Use:   "run <tool> <target>",
	Short: "Run one tool against a target",
	Long: `Run one tool against a target and store the report.

Targets are validated per tool: URLs for headers/ssl/sqli/xss/cors, a domain
for subdomain, a host for ports, a CIDR for network, text for hash and an
optional search term for cve.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runScan,
}

var scanBatchCmd = &cobra.Command{
	Use:   "batch <target>",
	Short: "Run several tools against the same target",
	Args:  cobra.ExactArgs(1),
	RunE:  runScanBatch,
}

func runScan(cmd *cobra.Command, args []string) error {
	appCtx := getAppContext(cmd)
	runtimeCfg := appCtx.Config.Scan
	if err := validateOutputFormat(runtimeCfg.Format); err != nil {
		return err
	}

	c, err := appCtx.Container(commandContext(cmd))
	if err != nil {
		return err
	}
	if _, err := currentSession(cmd, c, "scan run"); err != nil {
		return err
	}

	toolName := strings.ToLower(args[0])
	target := ""
	if len(args) > 1 {
		target = args[1]
	}

	tool, err := c.Registry.Get(toolName)
	if err != nil {
		return err
	}
	opts, err := scanOptionsFromFlags(cmd, runtimeCfg)
	if err != nil {
		return err
	}
	if opts.FileMode {
		// the operator's own file: report its size, the target stays the name
		if info, err := os.Stat(target); err == nil && !info.IsDir() {
			opts.FileSize = info.Size()
		}
	}

	req := scanapp.Request{Tool: tool.Name, Target: target, Options: opts}
	catalog := tool.Catalog(opts)
	if path, _ := cmd.Flags().GetString("catalog"); path != "" {
		loaded, err := scanner.LoadCatalog(path, catalog)
		if err != nil {
			return err
		}
		catalog = loaded
		req.Catalog = &loaded
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	var progress *progressPrinter
	if runtimeCfg.ProgressEnabled && runtimeCfg.Format == outputFormatTable {
		progress = newProgressPrinter(catalog.Size(), tool.Name)
		progress.out = cmd.ErrOrStderr()
		progress.Start()
		req.OnResult = func(res scanner.Result) {
			progress.Increment(catalog.Outcome(res.Status).Positive(), res.Duration.Seconds())
		}
	}

	report, err := c.ScanService.Run(ctx, req)
	if progress != nil {
		progress.Stop()
	}
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s Scan cancelled, no report stored\n", colorWarn("!"))
		}
		return err
	}

	appCtx.Logger.Debugw("scan stored", "tool", report.Tool(), "report_id", report.ID())
	return printReport(cmd.OutOrStdout(), report, runtimeCfg.Format, runtimeCfg.IncludeNegative)
}

func runScanBatch(cmd *cobra.Command, args []string) error {
	appCtx := getAppContext(cmd)
	runtimeCfg := appCtx.Config.Scan
	if err := validateOutputFormat(runtimeCfg.Format); err != nil {
		return err
	}

	c, err := appCtx.Container(commandContext(cmd))
	if err != nil {
		return err
	}
	if _, err := currentSession(cmd, c, "scan batch"); err != nil {
		return err
	}

	tools, _ := cmd.Flags().GetStringSlice("tools")
	if len(tools) == 0 {
		return fmt.Errorf("--tools is required")
	}
	for i := range tools {
		tools[i] = strings.ToLower(strings.TrimSpace(tools[i]))
		if _, err := c.Registry.Get(tools[i]); err != nil {
			return err
		}
	}

	opts, err := scanOptionsFromFlags(cmd, runtimeCfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	results := c.ScanService.RunBatch(ctx, args[0], tools, opts)

	out := cmd.OutOrStdout()
	if runtimeCfg.Format == outputFormatJSON {
		return printBatchJSON(out, results)
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(out, "%s %s: %v\n\n", colorError("✗"), res.Tool, res.Err)
			continue
		}
		if err := printReport(out, res.Report, outputFormatTable, runtimeCfg.IncludeNegative); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scan(s) failed", failed, len(results))
	}
	return nil
}

func scanOptionsFromFlags(cmd *cobra.Command, runtimeCfg ScanRuntimeConfig) (scanner.Options, error) {
	opts := scanner.Options{
		IncludeNegative: runtimeCfg.IncludeNegative,
		Offline:         runtimeCfg.Offline,
	}
	if runtimeCfg.DelaySet || scanCmd.PersistentFlags().Changed("delay") {
		if runtimeCfg.Delay < 0 {
			return opts, fmt.Errorf("--delay cannot be negative")
		}
		delay := runtimeCfg.Delay
		opts.Delay = &delay
	}

	flags := cmd.Flags()
	opts.Seed, _ = flags.GetUint32("seed")
	if flags.Lookup("full") != nil {
		opts.Full, _ = flags.GetBool("full")
		opts.Compare, _ = flags.GetString("compare")
		opts.FileMode, _ = flags.GetBool("file-mode")
		opts.Vendor, _ = flags.GetString("vendor")
		severity, _ := flags.GetString("severity")
		sev, err := finding.ParseSeverity(severity)
		if err != nil {
			return opts, err
		}
		opts.Severity = sev
	}
	return opts, nil
}

// signalContext cancels on SIGINT/SIGTERM so the panel is released.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(commandContext(cmd))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.ErrOrStderr(), "\n%s Received %s, cancelling scan...\n", colorWarn("!"), sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

func validateOutputFormat(format string) error {
	switch format {
	case outputFormatTable, outputFormatJSON:
		return nil
	}
	return &UnsupportedFormatError{Format: format, Allowed: scanOutputFormats}
}

func printReport(w io.Writer, report *finding.Report, format string, includeNegative bool) error {
	if format == outputFormatJSON {
		return encodeJSON(w, export.Document(report))
	}

	fmt.Fprintf(w, "%s %s on %s\n", colorInfo("Report"), report.Tool(), report.Target())
	fmt.Fprintf(w, "ID:        %s\n", report.ID())
	fmt.Fprintf(w, "Risk:      %s\n", formatSeverityWithColor(report.Risk()))
	fmt.Fprintf(w, "Tests:     %d (%d finding(s)) in %s\n", report.TotalTests(), report.PositiveCount(), report.Duration().Round(time.Millisecond))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nSEVERITY\tOUTCOME\tCATEGORY\tSUBJECT\tEVIDENCE")
	shown := 0
	for _, f := range report.Findings() {
		if !f.Positive() && !includeNegative {
			continue
		}
		shown++
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			formatSeverityWithColor(f.Severity), formatOutcomeWithColor(f.Outcome), f.Category, f.Subject, f.Evidence)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if shown == 0 {
		fmt.Fprintf(w, "%s No findings\n", colorSuccess("✓"))
	}

	if recs := report.Recommendations(); len(recs) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, rec := range recs {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
	}
	return nil
}

type batchEntry struct {
	Tool   string                 `json:"tool"`
	Report *export.ReportDocument `json:"report,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

func printBatchJSON(w io.Writer, results []scanapp.BatchResult) error {
	entries := make([]batchEntry, 0, len(results))
	for _, res := range results {
		entry := batchEntry{Tool: res.Tool}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		} else {
			doc := export.Document(res.Report)
			entry.Report = &doc
		}
		entries = append(entries, entry)
	}
	return encodeJSON(w, entries)
}

func init() {
	flags := scanCmd.PersistentFlags()
	flags.IntVar(&cliConfig.Scan.Concurrency, "concurrency", cliConfig.Scan.Concurrency, "Maximum concurrent probes")
	flags.IntVar(&cliConfig.Scan.RateLimit, "rate-limit", cliConfig.Scan.RateLimit, "Probes per second (0 for unlimited)")
	flags.IntVar(&cliConfig.Scan.TimeoutSecs, "timeout", cliConfig.Scan.TimeoutSecs, "Per-probe timeout in seconds (0 for none)")
	flags.DurationVar(&cliConfig.Scan.Delay, "delay", cliConfig.Scan.Delay, "Override the tool's simulated delay")
	flags.BoolVar(&cliConfig.Scan.TelemetryEnabled, "telemetry", cliConfig.Scan.TelemetryEnabled, "Append scan telemetry to telemetry.jsonl")
	flags.BoolVar(&cliConfig.Scan.ProgressEnabled, "progress", cliConfig.Scan.ProgressEnabled, "Display live progress")
	flags.BoolVar(&cliConfig.Scan.Offline, "offline", cliConfig.Scan.Offline, "Skip DNS-over-HTTPS lookups (subdomain uses demo data)")
	flags.BoolVar(&cliConfig.Scan.IncludeNegative, "include-negative", cliConfig.Scan.IncludeNegative, "Also list negative results")
	flags.StringVar(&cliConfig.Scan.Format, "format", cliConfig.Scan.Format, "Output format (table or json)")

	scanRunCmd.Flags().Uint32("seed", 0, "Deterministic seed (0 picks a random one)")
	scanRunCmd.Flags().String("catalog", "", "YAML catalog overriding the built-in vectors")
	scanRunCmd.Flags().Bool("full", false, "ports: scan the extended port list")
	scanRunCmd.Flags().String("compare", "", "hash: digest to compare against")
	scanRunCmd.Flags().Bool("file-mode", false, "hash: treat the input as file contents")
	scanRunCmd.Flags().String("severity", "", "cve: only this severity")
	scanRunCmd.Flags().String("vendor", "", "cve: only this vendor")

	scanBatchCmd.Flags().StringSlice("tools", nil, "Comma-separated tools to run")
	scanBatchCmd.Flags().Uint32("seed", 0, "Deterministic seed shared by every tool")

	scanCmd.AddCommand(scanListCmd)
	scanCmd.AddCommand(scanRunCmd)
	scanCmd.AddCommand(scanBatchCmd)
}
