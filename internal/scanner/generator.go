package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	"go.uber.org/zap"
)

// Summary is handed to a policy's Summarize hook after all probes finished
// and before the report is finalized.
type Summary struct {
	Report  *finding.Report
	Results []Result
	Target  string
	Seed    uint32
	Elapsed time.Duration
}

// Policy controls how a catalog is run
type Policy struct {
	// Probability is the default chance of a positive draw for RandomProbe
	Probability float64
	// Delay is waited before probing starts
	Delay time.Duration
	// IncludeNegative keeps negative results as findings
	IncludeNegative bool
	// Validate normalizes the target. Nil accepts the target unchanged.
	Validate Validator
	// Probe overrides the default RandomProbe
	Probe Probe
	// Summarize derives tool-specific report attributes and recommendations
	Summarize func(s Summary)
	// Seed drives every mock draw of the scan
	Seed uint32
}

// Generator runs catalogs and builds reports
type Generator struct {
	runner   *Runner
	logger   *zap.Logger
	now      func() time.Time
	onResult ResultFunc
}

// GeneratorOption configures a Generator
type GeneratorOption func(*Generator)

// WithClock overrides time.Now
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// WithResultCallback receives each probe result as it completes
func WithResultCallback(fn ResultFunc) GeneratorOption {
	return func(g *Generator) {
		g.onResult = fn
	}
}

// NewGenerator creates a generator executing through runner
func NewGenerator(runner *Runner, logger *zap.Logger, opts ...GeneratorOption) *Generator {
	if runner == nil {
		runner = &Runner{Concurrency: 10}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Generator{runner: runner, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RunScan validates target, waits for the policy delay, probes every task
// of the catalog and returns the finalized report. Cancelling ctx aborts the
// scan; tasks that did not run are not reported.
func (g *Generator) RunScan(ctx context.Context, target string, catalog Catalog, policy Policy) (*finding.Report, error) {
	normalized := target
	if policy.Validate != nil {
		var err error
		normalized, err = policy.Validate(target)
		if err != nil {
			if verr, ok := err.(*ValidationError); ok && verr.Tool == "" {
				verr.Tool = catalog.Tool
			}
			return nil, err
		}
	}

	if err := catalog.Validate(); err != nil {
		return nil, err
	}

	if err := sleep(ctx, policy.Delay); err != nil {
		return nil, err
	}

	started := g.now()
	report, err := finding.NewReport(catalog.Tool, normalized, started)
	if err != nil {
		return nil, err
	}

	probe := policy.Probe
	if probe == nil {
		probe = &RandomProbe{
			Probability:   policy.Probability,
			SplitNegative: catalog.SplitNegative,
			Choices:       catalog.Choices,
		}
	}

	tasks := catalog.Tasks(normalized, policy.Seed)
	g.logger.Debug("starting scan",
		zap.String("tool", catalog.Tool),
		zap.String("target", normalized),
		zap.Int("tasks", len(tasks)),
		zap.Uint32("seed", policy.Seed))

	results, err := g.runner.Run(ctx, tasks, probe, g.onResult)
	if err != nil {
		return nil, fmt.Errorf("scan %s aborted: %w", catalog.Tool, err)
	}

	for _, res := range results {
		f := g.toFinding(&catalog, res)
		if !f.Positive() && !policy.IncludeNegative {
			continue
		}
		if err := report.AddFinding(f); err != nil {
			return nil, err
		}
	}
	report.SetTotalTests(len(tasks))

	if policy.Summarize != nil {
		policy.Summarize(Summary{
			Report:  report,
			Results: results,
			Target:  normalized,
			Seed:    policy.Seed,
			Elapsed: g.now().Sub(started),
		})
	}
	for _, rec := range catalog.Recommendations {
		report.AddRecommendation(rec)
	}

	if err := report.Finalize(g.now()); err != nil {
		return nil, err
	}

	g.logger.Info("scan completed",
		zap.String("tool", catalog.Tool),
		zap.String("target", normalized),
		zap.Int("findings", len(report.Findings())),
		zap.String("risk", report.Risk().String()))
	return report, nil
}

func (g *Generator) toFinding(catalog *Catalog, res Result) finding.Finding {
	v := res.Task.Vector
	outcome := catalog.Outcome(res.Status)

	severity := res.Severity
	if outcome.Positive() && severity == finding.SeverityNone {
		severity = finding.SeverityInfo
	}

	attrs := make(map[string]string, len(v.Attributes)+len(res.Attributes)+3)
	for k, val := range v.Attributes {
		attrs[k] = val
	}
	if res.Task.Parameter != "" {
		attrs["parameter"] = res.Task.Parameter
	}
	if v.Payload != "" {
		attrs["payload"] = v.Payload
	}
	if v.Description != "" {
		attrs["description"] = v.Description
	}
	for k, val := range res.Attributes {
		attrs[k] = val
	}
	if res.Err != nil {
		attrs["error"] = res.Err.Error()
	}

	f := finding.Finding{
		Subject:    res.Task.subject(),
		Category:   v.Category,
		Severity:   severity,
		Outcome:    outcome,
		Evidence:   res.Evidence,
		Attributes: attrs,
	}
	if outcome.Positive() && severity == v.Severity {
		f.Remediation = v.Remediation
	}
	return f
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
