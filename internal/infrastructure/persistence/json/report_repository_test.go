package json

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

func newFinalizedReport(t *testing.T, tool string, startedAt time.Time) *finding.Report {
	t.Helper()
	report, err := finding.NewReport(tool, "https://example.com", startedAt)
	if err != nil {
		t.Fatalf("NewReport: %v", err)
	}
	if err := report.AddFinding(finding.Finding{
		Subject:     "id",
		Category:    "union",
		Severity:    finding.SeverityHigh,
		Outcome:     finding.OutcomeVulnerable,
		Evidence:    "column count leaked",
		Remediation: "Use parameterized queries",
		Attributes:  map[string]string{"parameter": "id"},
	}); err != nil {
		t.Fatalf("AddFinding: %v", err)
	}
	report.SetTotalTests(30)
	report.SetAttribute("vulnerable_params", "1")
	if err := report.Finalize(startedAt.Add(4 * time.Second)); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return report
}

func TestReportRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo, err := NewReportRepository(dir)
	if err != nil {
		t.Fatalf("NewReportRepository: %v", err)
	}

	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	report := newFinalizedReport(t, "sqli", started)
	if err := repo.Save(ctx, report); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "sqli", report.ID()+".json")); err != nil {
		t.Fatalf("expected report file: %v", err)
	}

	loaded, err := repo.FindByID(ctx, report.ID())
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if loaded.Risk() != finding.SeverityHigh {
		t.Fatalf("risk = %s, want high", loaded.Risk())
	}
	if loaded.TotalTests() != 30 {
		t.Fatalf("total tests = %d, want 30", loaded.TotalTests())
	}
	if got := loaded.Attribute("vulnerable_params"); got != "1" {
		t.Fatalf("vulnerable_params = %q", got)
	}
	if !loaded.IsFinalized() || loaded.Duration() != 4*time.Second {
		t.Fatalf("unexpected completion: finalized=%v duration=%v", loaded.IsFinalized(), loaded.Duration())
	}
	findings := loaded.Findings()
	if len(findings) != 1 || findings[0].Attribute("parameter") != "id" {
		t.Fatalf("unexpected findings: %+v", findings)
	}
	recs := loaded.Recommendations()
	if len(recs) != 1 || recs[0] != "Use parameterized queries" {
		t.Fatalf("unexpected recommendations: %v", recs)
	}
}

func TestReportRepository_ListingOrder(t *testing.T) {
	ctx := context.Background()
	repo, err := NewReportRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewReportRepository: %v", err)
	}

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	older := newFinalizedReport(t, "sqli", base)
	newer := newFinalizedReport(t, "xss", base.Add(time.Hour))
	newest := newFinalizedReport(t, "sqli", base.Add(2*time.Hour))
	for _, r := range []*finding.Report{older, newer, newest} {
		if err := repo.Save(ctx, r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("FindAll returned %d reports, want 3", len(all))
	}
	if all[0].ID() != newest.ID() || all[2].ID() != older.ID() {
		t.Fatalf("FindAll not newest first: %s, %s, %s", all[0].ID(), all[1].ID(), all[2].ID())
	}

	sqli, err := repo.FindByTool(ctx, "sqli")
	if err != nil {
		t.Fatalf("FindByTool: %v", err)
	}
	if len(sqli) != 2 || sqli[0].ID() != newest.ID() {
		t.Fatalf("unexpected sqli reports: %d", len(sqli))
	}

	none, err := repo.FindByTool(ctx, "ports")
	if err != nil {
		t.Fatalf("FindByTool(ports): %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no ports reports, got %d", len(none))
	}
}

func TestReportRepository_DeleteAndNotFound(t *testing.T) {
	ctx := context.Background()
	repo, err := NewReportRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewReportRepository: %v", err)
	}

	report := newFinalizedReport(t, "headers", time.Now().UTC())
	if err := repo.Save(ctx, report); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Delete(ctx, report.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for _, id := range []string{report.ID(), "../escape", ""} {
		if _, err := repo.FindByID(ctx, id); !errors.Is(err, sharedErrors.ErrReportNotFound) {
			t.Fatalf("FindByID(%q) error = %v, want ErrReportNotFound", id, err)
		}
	}
	if err := repo.Delete(ctx, report.ID()); !errors.Is(err, sharedErrors.ErrReportNotFound) {
		t.Fatalf("second Delete error = %v, want ErrReportNotFound", err)
	}
}

func TestReportRepository_SkipsForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo, err := NewReportRepository(dir)
	if err != nil {
		t.Fatalf("NewReportRepository: %v", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "ports"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ports", "broken.json"), []byte("nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := repo.Save(ctx, newFinalizedReport(t, "ports", time.Now().UTC())); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reports, err := repo.FindByTool(ctx, "ports")
	if err != nil {
		t.Fatalf("FindByTool: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 readable report, got %d", len(reports))
	}
}
