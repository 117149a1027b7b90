package finding

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
	"gopkg.in/yaml.v2"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input   string
		want    Severity
		wantErr bool
	}{
		{"critical", SeverityCritical, false},
		{"Critical/High", SeverityCritical, false},
		{"HIGH", SeverityHigh, false},
		{" medium ", SeverityMedium, false},
		{"low", SeverityLow, false},
		{"info", SeverityInfo, false},
		{"", SeverityNone, false},
		{"severe", SeverityNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSeverity(tt.input)
			if tt.wantErr {
				if !errors.Is(err, sharedErrors.ErrInvalidSeverity) {
					t.Fatalf("expected ErrInvalidSeverity, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSeverityOrdering(t *testing.T) {
	if got := MaxSeverity(SeverityLow, SeverityCritical, SeverityMedium); got != SeverityCritical {
		t.Errorf("expected critical, got %s", got)
	}
	if got := MaxSeverity(); got != SeverityNone {
		t.Errorf("expected none for empty input, got %s", got)
	}
	if !SeverityHigh.AtLeast(SeverityMedium) {
		t.Error("high should rank at least medium")
	}
	if SeverityHigh.Title() != "High" {
		t.Errorf("unexpected title %q", SeverityHigh.Title())
	}
}

func TestSeverityEncoding(t *testing.T) {
	data, err := json.Marshal(Finding{Subject: "x", Severity: SeverityHigh, Outcome: OutcomeVulnerable})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Finding
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Severity != SeverityHigh {
		t.Errorf("expected high after round trip, got %s", decoded.Severity)
	}

	var fromYAML struct {
		Severity Severity `yaml:"severity"`
	}
	if err := yaml.Unmarshal([]byte("severity: Medium\n"), &fromYAML); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if fromYAML.Severity != SeverityMedium {
		t.Errorf("expected medium from yaml, got %s", fromYAML.Severity)
	}
}

func TestOutcomePositive(t *testing.T) {
	positive := []Outcome{OutcomeVulnerable, OutcomeOpen, OutcomeMissing, OutcomeActive, OutcomeMatch}
	for _, o := range positive {
		if !o.Positive() {
			t.Errorf("%s should be positive", o)
		}
	}
	negative := []Outcome{OutcomeNotVulnerable, OutcomeClosed, OutcomeFiltered, OutcomeError, OutcomeInactive}
	for _, o := range negative {
		if o.Positive() {
			t.Errorf("%s should not be positive", o)
		}
	}
}

func TestFingerprintIgnoresOutcome(t *testing.T) {
	a := Finding{Subject: "id", Category: "Union-based", Outcome: OutcomeVulnerable,
		Attributes: map[string]string{"parameter": "id", "payload": "' UNION SELECT NULL--", "evidence": "x"}}
	b := a
	b.Outcome = OutcomeNotVulnerable
	b.Attributes = map[string]string{"payload": "' UNION SELECT NULL--", "parameter": "id"}

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("fingerprint should depend only on what was tested")
	}

	c := a
	c.Attributes = map[string]string{"parameter": "user", "payload": "' UNION SELECT NULL--"}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different parameters should produce different fingerprints")
	}
	if len(a.Fingerprint()) != 16 {
		t.Errorf("expected 16 hex chars, got %q", a.Fingerprint())
	}
}

func TestNewReport(t *testing.T) {
	if _, err := NewReport("", "example.com", time.Now()); err == nil {
		t.Error("expected error for empty tool")
	}
	if _, err := NewReport("ports", "", time.Now()); err == nil {
		t.Error("expected error for empty target")
	}

	r, err := NewReport("ports", "example.com", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID() == "" {
		t.Error("expected generated ID")
	}
	if r.IsFinalized() {
		t.Error("new report should not be finalized")
	}
	if r.Risk() != SeverityNone {
		t.Errorf("expected none risk, got %s", r.Risk())
	}
}

func TestReportFinalize(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r, _ := NewReport("sqli", "https://example.com", start)
	r.AddRecommendation("Regularly audit your configuration")

	findings := []Finding{
		{Subject: "id", Severity: SeverityMedium, Outcome: OutcomeVulnerable, Remediation: "Use parameterized queries"},
		{Subject: "user", Severity: SeverityCritical, Outcome: OutcomeNotVulnerable, Remediation: "ignored"},
		{Subject: "page", Severity: SeverityHigh, Outcome: OutcomeVulnerable, Remediation: "Use parameterized queries"},
	}
	for _, f := range findings {
		if err := r.AddFinding(f); err != nil {
			t.Fatalf("add finding: %v", err)
		}
	}

	if err := r.Finalize(start.Add(2 * time.Second)); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if r.Risk() != SeverityHigh {
		t.Errorf("risk should ignore negative findings, got %s", r.Risk())
	}
	recs := r.Recommendations()
	if len(recs) != 2 {
		t.Fatalf("expected 2 deduplicated recommendations, got %v", recs)
	}
	if recs[0] != "Use parameterized queries" || recs[1] != "Regularly audit your configuration" {
		t.Errorf("unexpected recommendation order: %v", recs)
	}
	if r.PositiveCount() != 2 {
		t.Errorf("expected 2 positive findings, got %d", r.PositiveCount())
	}
	if r.Duration() != 2*time.Second {
		t.Errorf("unexpected duration %v", r.Duration())
	}
	if err := r.AddFinding(Finding{Subject: "late"}); err == nil {
		t.Error("expected error adding to a finalized report")
	}
	if err := r.Finalize(time.Now()); err == nil {
		t.Error("expected error finalizing twice")
	}
}

func TestReportFindingsAreCopied(t *testing.T) {
	r, _ := NewReport("ports", "example.com", time.Now())
	attrs := map[string]string{"port": "22"}
	_ = r.AddFinding(Finding{Subject: "22", Outcome: OutcomeOpen, Attributes: attrs})

	attrs["port"] = "23"
	got := r.Findings()
	if got[0].Attribute("port") != "22" {
		t.Error("report should not alias caller attribute maps")
	}
	got[0].Subject = "mutated"
	if r.Findings()[0].Subject != "22" {
		t.Error("Findings should return a copy")
	}
}
