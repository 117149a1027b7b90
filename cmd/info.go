package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/seca-suite/internal/scanner"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show data locations, configuration and registered tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := appCtx.Config
		if cfg == nil {
			cfg = cliConfig
		}

		configFile := viper.ConfigFileUsed()
		if configFile == "" {
			configFile = "(none, using defaults)"
		}

		blogStore := "in-memory"
		if cfg.Blog.Driver != "memory" {
			blogStore = cfg.Blog.Path
			if blogStore == "" {
				blogStore = filepath.Join(appCtx.DataDir, "blog.db")
			}
		}

		resolver := cfg.Scan.DoHEndpoint
		if cfg.Scan.Offline {
			resolver = "offline (demo data)"
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "SECA-Suite System Information")
		fmt.Fprintln(out, "=============================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Platform:           %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Configuration File: %s\n", configFile)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Data Locations:")
		fmt.Fprintf(out, "  Data Directory:    %s %s\n", appCtx.DataDir, existsMarker(appCtx.DataDir))
		fmt.Fprintf(out, "  Results Directory: %s %s\n", appCtx.ResultsDir, existsMarker(appCtx.ResultsDir))
		fmt.Fprintf(out, "  Gate State:        %s %s\n", filepath.Join(appCtx.DataDir, "gate_state.json"), existsMarker(filepath.Join(appCtx.DataDir, "gate_state.json")))
		fmt.Fprintf(out, "  Blog Store:        %s\n", blogStore)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Gate Users:         %d configured\n", len(cfg.Gate.Users))
		fmt.Fprintf(out, "Subdomain Resolver: %s\n", resolver)
		fmt.Fprintf(out, "Tools:              %d registered\n", len(scanner.DefaultRegistry().List()))
		return nil
	},
}

func existsMarker(path string) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err == nil {
		return colorSuccess("✓")
	}
	return colorWarn("✗ (not created yet)")
}
