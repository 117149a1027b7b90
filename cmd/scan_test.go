package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/khanhnv2901/seca-suite/internal/export"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

func runJSONScan(t *testing.T, args []string, flags map[string]string) export.ReportDocument {
	t.Helper()
	merged := map[string]string{"format": "json", "delay": "0s", "seed": "7"}
	for k, v := range flags {
		merged[k] = v
	}
	output, err := runCmd(t, scanRunCmd, args, merged)
	if err != nil {
		t.Fatalf("scan run %v failed: %v", args, err)
	}
	var doc export.ReportDocument
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("failed to decode report: %v\n%s", err, output)
	}
	return doc
}

func TestScanList(t *testing.T) {
	setupTestAppContext(t)

	output, err := runCmd(t, scanListCmd, nil, nil)
	if err != nil {
		t.Fatalf("scan list failed: %v", err)
	}
	for _, tool := range []string{"subdomain", "ports", "headers", "cors", "ssl", "sqli", "xss", "cve", "hash", "network"} {
		if !strings.Contains(output, tool) {
			t.Errorf("expected %s in tool list:\n%s", tool, output)
		}
	}
}

func TestScanRunRequiresSession(t *testing.T) {
	setupTestAppContext(t)

	_, err := runCmd(t, scanRunCmd, []string{"headers", "example.com"}, map[string]string{"delay": "0s"})
	var notAuth *NotAuthenticatedError
	if !errors.As(err, &notAuth) {
		t.Fatalf("expected NotAuthenticatedError, got %v", err)
	}
}

func TestScanRunIsDeterministic(t *testing.T) {
	setupTestAppContext(t)
	loginForTest(t, testAdminUser, testAdminPassword)

	first := runJSONScan(t, []string{"headers", "example.com"}, nil)
	second := runJSONScan(t, []string{"headers", "example.com"}, nil)

	if first.Tool != "headers" || first.TotalTests == 0 {
		t.Fatalf("unexpected report: %+v", first)
	}
	if first.ID == second.ID {
		t.Fatal("expected distinct report IDs")
	}
	if first.Risk != second.Risk || len(first.Findings) != len(second.Findings) {
		t.Fatalf("same seed produced different reports: %s/%d vs %s/%d",
			first.Risk, len(first.Findings), second.Risk, len(second.Findings))
	}
	for i := range first.Findings {
		if first.Findings[i].Outcome != second.Findings[i].Outcome {
			t.Fatalf("finding %d differs between runs", i)
		}
	}
}

func TestScanRunTableOutput(t *testing.T) {
	setupTestAppContext(t)
	loginForTest(t, testAdminUser, testAdminPassword)

	output, err := runCmd(t, scanRunCmd, []string{"ports", "10.0.0.1"},
		map[string]string{"delay": "0s", "seed": "42", "include-negative": "true"})
	if err != nil {
		t.Fatalf("scan run failed: %v", err)
	}
	for _, want := range []string{"Report ports on 10.0.0.1", "Risk:", "SEVERITY", "OUTCOME"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestScanRunRejectsInvalidInput(t *testing.T) {
	setupTestAppContext(t)
	loginForTest(t, testAdminUser, testAdminPassword)

	tests := []struct {
		name  string
		args  []string
		flags map[string]string
		want  error
	}{
		{"unknown tool", []string{"nmap", "10.0.0.1"}, nil, sharedErrors.ErrUnknownTool},
		{"bad cidr", []string{"network", "10.0.0.0"}, nil, sharedErrors.ErrInvalidTarget},
		{"empty url", []string{"headers", "  "}, nil, sharedErrors.ErrEmptyTarget},
		{"bad severity", []string{"cve", "*"}, map[string]string{"severity": "urgent"}, sharedErrors.ErrInvalidSeverity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := map[string]string{"delay": "0s"}
			for k, v := range tt.flags {
				flags[k] = v
			}
			_, err := runCmd(t, scanRunCmd, tt.args, flags)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestScanRunRejectsUnknownFormat(t *testing.T) {
	setupTestAppContext(t)

	_, err := runCmd(t, scanRunCmd, []string{"headers", "example.com"}, map[string]string{"format": "xml"})
	var formatErr *UnsupportedFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
}

func TestScanRunWithCustomCatalog(t *testing.T) {
	setupTestAppContext(t)
	loginForTest(t, testAdminUser, testAdminPassword)

	path := filepath.Join(t.TempDir(), "ports.yaml")
	catalog := `tool: ports
vectors:
  - id: "8443"
    subject: "8443"
    category: https-alt
    severity: medium
  - id: "9200"
    subject: "9200"
    category: elasticsearch
    severity: high
`
	if err := os.WriteFile(path, []byte(catalog), 0o600); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	doc := runJSONScan(t, []string{"ports", "10.0.0.1"}, map[string]string{"catalog": path, "include-negative": "true"})
	if doc.TotalTests != 2 {
		t.Fatalf("expected 2 tests from the custom catalog, got %d", doc.TotalTests)
	}
}

func TestScanRunTelemetry(t *testing.T) {
	appCtx := setupTestAppContext(t)
	cliConfig.Scan.TelemetryEnabled = true
	loginForTest(t, testAdminUser, testAdminPassword)

	runJSONScan(t, []string{"hash", "hello"}, nil)

	records, err := loadTelemetryHistory(appCtx.DataDir, "hash", 0)
	if err != nil {
		t.Fatalf("loadTelemetryHistory returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one telemetry record, got %d", len(records))
	}
}

func TestScanBatch(t *testing.T) {
	setupTestAppContext(t)
	loginForTest(t, testAdminUser, testAdminPassword)

	output, err := runCmd(t, scanBatchCmd, []string{"example.com"},
		map[string]string{"tools": "headers,cors,ssl", "format": "json", "delay": "0s", "seed": "3"})
	if err != nil {
		t.Fatalf("scan batch failed: %v", err)
	}

	var entries []batchEntry
	if err := json.Unmarshal([]byte(output), &entries); err != nil {
		t.Fatalf("failed to decode batch output: %v\n%s", err, output)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, tool := range []string{"headers", "cors", "ssl"} {
		if entries[i].Tool != tool || entries[i].Report == nil || entries[i].Error != "" {
			t.Errorf("unexpected entry %d: %+v", i, entries[i])
		}
	}
}

func TestScanBatchRejectsUnknownTool(t *testing.T) {
	setupTestAppContext(t)
	loginForTest(t, testAdminUser, testAdminPassword)

	_, err := runCmd(t, scanBatchCmd, []string{"example.com"}, map[string]string{"tools": "headers,telnet"})
	if !errors.Is(err, sharedErrors.ErrUnknownTool) {
		t.Fatalf("expected unknown tool, got %v", err)
	}
}
