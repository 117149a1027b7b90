package finding

import (
	"errors"
	"time"

	"github.com/rs/xid"
)

// Report is the ordered collection of findings for one scan invocation
// against one target. It is the aggregate root for scan results.
type Report struct {
	id              string
	tool            string
	target          string
	findings        []Finding
	risk            Severity
	recommendations []string
	totalTests      int
	attributes      map[string]string
	startedAt       time.Time
	completedAt     time.Time
}

// NewReport creates an empty report for a tool run
func NewReport(tool, target string, startedAt time.Time) (*Report, error) {
	if tool == "" {
		return nil, errors.New("report tool cannot be empty")
	}
	if target == "" {
		return nil, errors.New("report target cannot be empty")
	}

	return &Report{
		id:         xid.New().String(),
		tool:       tool,
		target:     target,
		findings:   make([]Finding, 0),
		attributes: make(map[string]string),
		startedAt:  startedAt,
	}, nil
}

// Reconstruct creates a report from persisted data
func Reconstruct(id, tool, target string, findings []Finding, risk Severity, recommendations []string,
	totalTests int, attributes map[string]string, startedAt, completedAt time.Time) *Report {
	if attributes == nil {
		attributes = make(map[string]string)
	}
	return &Report{
		id:              id,
		tool:            tool,
		target:          target,
		findings:        findings,
		risk:            risk,
		recommendations: recommendations,
		totalTests:      totalTests,
		attributes:      attributes,
		startedAt:       startedAt,
		completedAt:     completedAt,
	}
}

// Business methods

// AddFinding appends a finding. Findings keep insertion order.
func (r *Report) AddFinding(f Finding) error {
	if r.IsFinalized() {
		return errors.New("cannot add findings to a finalized report")
	}
	f.Attributes = cloneAttributes(f.Attributes)
	r.findings = append(r.findings, f)
	return nil
}

// AddRecommendation appends advice unless the same text is already listed.
func (r *Report) AddRecommendation(text string) {
	if text == "" {
		return
	}
	for _, existing := range r.recommendations {
		if existing == text {
			return
		}
	}
	r.recommendations = append(r.recommendations, text)
}

// SetTotalTests records how many catalog entries were evaluated.
func (r *Report) SetTotalTests(n int) {
	r.totalTests = n
}

// SetAttribute stores a tool-specific summary value (score, grade, open port count, ...).
func (r *Report) SetAttribute(key, value string) {
	r.attributes[key] = value
}

// Finalize derives the aggregate risk and closes the report. Remediation
// text of positive findings is merged into the recommendations ahead of any
// advice added earlier.
func (r *Report) Finalize(completedAt time.Time) error {
	if r.IsFinalized() {
		return errors.New("report already finalized")
	}

	risk := SeverityNone
	advice := make([]string, 0, len(r.findings)+len(r.recommendations))
	for _, f := range r.findings {
		if !f.Positive() {
			continue
		}
		risk = MaxSeverity(risk, f.Severity)
		if f.Remediation != "" {
			advice = append(advice, f.Remediation)
		}
	}

	baseline := r.recommendations
	r.recommendations = nil
	for _, text := range advice {
		r.AddRecommendation(text)
	}
	for _, text := range baseline {
		r.AddRecommendation(text)
	}

	r.risk = risk
	r.completedAt = completedAt
	return nil
}

// IsFinalized reports whether Finalize has run
func (r *Report) IsFinalized() bool {
	return !r.completedAt.IsZero()
}

// PositiveCount returns the number of findings that count toward risk
func (r *Report) PositiveCount() int {
	count := 0
	for _, f := range r.findings {
		if f.Positive() {
			count++
		}
	}
	return count
}

// CountBySeverity tallies positive findings per severity
func (r *Report) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range r.findings {
		if f.Positive() {
			counts[f.Severity]++
		}
	}
	return counts
}

// Getters

func (r *Report) ID() string {
	return r.id
}

func (r *Report) Tool() string {
	return r.tool
}

func (r *Report) Target() string {
	return r.target
}

func (r *Report) Findings() []Finding {
	findingsCopy := make([]Finding, len(r.findings))
	copy(findingsCopy, r.findings)
	return findingsCopy
}

func (r *Report) Risk() Severity {
	return r.risk
}

func (r *Report) Recommendations() []string {
	recsCopy := make([]string, len(r.recommendations))
	copy(recsCopy, r.recommendations)
	return recsCopy
}

func (r *Report) TotalTests() int {
	return r.totalTests
}

func (r *Report) Attributes() map[string]string {
	return cloneAttributes(r.attributes)
}

func (r *Report) Attribute(key string) string {
	return r.attributes[key]
}

func (r *Report) StartedAt() time.Time {
	return r.startedAt
}

func (r *Report) CompletedAt() time.Time {
	return r.completedAt
}

// Duration is the wall time between start and finalization
func (r *Report) Duration() time.Duration {
	if r.completedAt.IsZero() {
		return 0
	}
	return r.completedAt.Sub(r.startedAt)
}
