package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	consts "github.com/khanhnv2901/seca-suite/internal/shared/constants"
)

const telemetryFileName = "telemetry.jsonl"

type telemetryRecord struct {
	Timestamp       time.Time      `json:"timestamp"`
	Tool            string         `json:"tool"`
	Target          string         `json:"target"`
	ReportID        string         `json:"report_id"`
	TotalTests      int            `json:"total_tests"`
	FindingCount    int            `json:"finding_count"`
	BySeverity      map[string]int `json:"by_severity,omitempty"`
	Risk            string         `json:"risk"`
	DurationSeconds float64        `json:"duration_seconds"`
}

// recordTelemetry appends one line per completed scan to <dataDir>/telemetry.jsonl
func recordTelemetry(dataDir string, report *finding.Report) error {
	bySeverity := make(map[string]int)
	for sev, count := range report.CountBySeverity() {
		bySeverity[sev.String()] = count
	}

	record := telemetryRecord{
		Timestamp:       time.Now().UTC(),
		Tool:            report.Tool(),
		Target:          report.Target(),
		ReportID:        report.ID(),
		TotalTests:      report.TotalTests(),
		FindingCount:    report.PositiveCount(),
		BySeverity:      bySeverity,
		Risk:            report.Risk().String(),
		DurationSeconds: report.Duration().Seconds(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	if err := os.MkdirAll(dataDir, consts.DefaultDirPerm); err != nil {
		return fmt.Errorf("create telemetry directory: %w", err)
	}
	telemetryPath := filepath.Join(dataDir, telemetryFileName)
	f, err := os.OpenFile(telemetryPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}

	return nil
}

// loadTelemetryHistory returns the most recent records, oldest first. An
// empty tool matches every tool; limit <= 0 keeps everything.
func loadTelemetryHistory(dataDir, tool string, limit int) ([]telemetryRecord, error) {
	f, err := os.Open(filepath.Join(dataDir, telemetryFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	var records []telemetryRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec telemetryRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			// a torn final line from an interrupted append
			continue
		}
		if tool != "" && rec.Tool != tool {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read telemetry: %w", err)
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}
