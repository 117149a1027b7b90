package cmd

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
)

func TestRecordTelemetry_WritesMetrics(t *testing.T) {
	dataDir := t.TempDir()
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	report := finding.Reconstruct("r1", "ports", "10.0.0.1", []finding.Finding{
		{Subject: "22", Category: "port", Severity: finding.SeverityHigh, Outcome: finding.OutcomeOpen},
		{Subject: "80", Category: "port", Severity: finding.SeverityLow, Outcome: finding.OutcomeOpen},
		{Subject: "443", Category: "port", Severity: finding.SeverityLow, Outcome: finding.OutcomeClosed},
	}, finding.SeverityHigh, nil, 3, nil, start, start.Add(3*time.Second))

	for i := 0; i < 2; i++ {
		if err := recordTelemetry(dataDir, report); err != nil {
			t.Fatalf("recordTelemetry returned error: %v", err)
		}
	}

	f, err := os.Open(filepath.Join(dataDir, telemetryFileName))
	if err != nil {
		t.Fatalf("failed to open telemetry file: %v", err)
	}
	defer f.Close()

	var records []telemetryRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec telemetryRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("failed to unmarshal record: %v", err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 appended records, got %d", len(records))
	}

	rec := records[0]
	if rec.Tool != "ports" || rec.ReportID != "r1" || rec.Risk != "high" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.FindingCount != 2 || rec.TotalTests != 3 {
		t.Errorf("unexpected counts: %+v", rec)
	}
	if rec.BySeverity["high"] != 1 || rec.BySeverity["low"] != 1 {
		t.Errorf("unexpected severity tally: %v", rec.BySeverity)
	}
	if rec.DurationSeconds != 3 {
		t.Errorf("expected duration 3s, got %f", rec.DurationSeconds)
	}
}

func TestLoadTelemetryHistory(t *testing.T) {
	dataDir := t.TempDir()
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	for i, tool := range []string{"ports", "xss", "ports", "ports"} {
		report := finding.Reconstruct(string(rune('a'+i)), tool, "example.com", nil,
			finding.SeverityNone, nil, 1, nil, start, start.Add(time.Second))
		if err := recordTelemetry(dataDir, report); err != nil {
			t.Fatalf("recordTelemetry returned error: %v", err)
		}
	}

	f, err := os.OpenFile(filepath.Join(dataDir, telemetryFileName), os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("failed to reopen telemetry file: %v", err)
	}
	_, _ = f.WriteString(`{"tool":"ports","report_`)
	f.Close()

	records, err := loadTelemetryHistory(dataDir, "ports", 2)
	if err != nil {
		t.Fatalf("loadTelemetryHistory returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ReportID != "c" || records[1].ReportID != "d" {
		t.Errorf("expected the newest ports records in order, got %s, %s", records[0].ReportID, records[1].ReportID)
	}

	all, err := loadTelemetryHistory(dataDir, "", 0)
	if err != nil {
		t.Fatalf("loadTelemetryHistory returned error: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 records, got %d", len(all))
	}

	missing, err := loadTelemetryHistory(t.TempDir(), "", 0)
	if err != nil || missing != nil {
		t.Errorf("expected no records and no error for a missing file, got %v, %v", missing, err)
	}
}
