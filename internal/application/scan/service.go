package scan

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/remeh/sizedwaitgroup"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-suite/internal/domain/cve"
	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	"github.com/khanhnv2901/seca-suite/internal/domain/panel"
	"github.com/khanhnv2901/seca-suite/internal/scanner"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

// Config holds execution settings shared by every scan
type Config struct {
	Runner           scanner.Runner
	BatchConcurrency int
	// Lookup resolves subdomains; nil means demo data only
	Lookup scanner.Lookuper
	// FeedSeed fixes the mock CVE feed so listings are stable
	FeedSeed uint32
	// OnComplete is invoked for every persisted report
	OnComplete func(report *finding.Report)
}

// Request describes one scan
type Request struct {
	Tool    string
	Target  string
	Options scanner.Options
	// Catalog replaces the built-in catalog when set
	Catalog *scanner.Catalog
	// OnResult receives each probe result as it completes
	OnResult scanner.ResultFunc
}

// BatchResult is the outcome of one tool in a batch
type BatchResult struct {
	Tool   string
	Report *finding.Report
	Err    error
}

// Service runs scans, tracks one panel per tool and keeps report history
type Service struct {
	registry *scanner.Registry
	reports  finding.Repository
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
	seed     func() uint32

	mu      sync.Mutex
	panels  map[string]*panel.Panel
	cancels map[string]context.CancelFunc
}

// Option customizes the service
type Option func(*Service)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithSeedSource replaces the random seed used when a request has none
func WithSeedSource(seed func() uint32) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// NewService creates a scan service
func NewService(registry *scanner.Registry, reports finding.Repository, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 4
	}

	s := &Service{
		registry: registry,
		reports:  reports,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		seed:     randomSeed,
		panels:   make(map[string]*panel.Panel),
		cancels:  make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, tool := range registry.List() {
		s.panels[tool.Name] = panel.New(tool.Name)
	}
	return s
}

// Tools lists the registered tools
func (s *Service) Tools() []*scanner.Tool {
	return s.registry.List()
}

// Run executes a scan, records it on the tool's panel and persists the
// report. A scan cancelled through Cancel returns ErrScanCancelled.
func (s *Service) Run(ctx context.Context, req Request) (*finding.Report, error) {
	tool, err := s.registry.Get(req.Tool)
	if err != nil {
		return nil, err
	}

	opts := s.resolveOptions(req.Options)
	catalog := tool.Catalog(opts)
	if req.Catalog != nil {
		catalog = *req.Catalog
		catalog.Tool = tool.Name
	}
	policy := tool.Policy(opts)

	if policy.Validate != nil {
		if _, err := policy.Validate(req.Target); err != nil {
			var verr *scanner.ValidationError
			if errors.As(err, &verr) && verr.Tool == "" {
				verr.Tool = tool.Name
			}
			s.mu.Lock()
			_ = s.panelLocked(tool.Name).Reject(err.Error())
			s.mu.Unlock()
			return nil, err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	p := s.panelLocked(tool.Name)
	ticket, err := p.Begin()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.cancels[tool.Name] = cancel
	s.mu.Unlock()

	genOpts := []scanner.GeneratorOption{scanner.WithClock(s.now)}
	if req.OnResult != nil {
		genOpts = append(genOpts, scanner.WithResultCallback(req.OnResult))
	}
	runner := s.cfg.Runner
	generator := scanner.NewGenerator(&runner, s.logger, genOpts...)

	report, runErr := generator.RunScan(runCtx, req.Target, catalog, policy)

	s.mu.Lock()
	delete(s.cancels, tool.Name)
	var current bool
	switch {
	case runErr != nil && (errors.Is(runErr, context.Canceled) || ctx.Err() != nil):
		// the caller went away (SIGINT, server shutdown): same as Cancel
		p.Abandon(ticket)
	case runErr != nil:
		current = p.Fail(ticket, runErr.Error())
	default:
		current = p.Complete(ticket, report)
	}
	s.mu.Unlock()

	if !current {
		return nil, sharedErrors.ErrScanCancelled
	}
	if runErr != nil {
		return nil, runErr
	}

	if s.reports != nil {
		if err := s.reports.Save(ctx, report); err != nil {
			return nil, fmt.Errorf("failed to save report: %w", err)
		}
	}
	if s.cfg.OnComplete != nil {
		s.cfg.OnComplete(report)
	}

	s.logger.Info("scan completed",
		zap.String("tool", report.Tool()),
		zap.String("target", report.Target()),
		zap.String("report_id", report.ID()),
		zap.Uint32("seed", opts.Seed),
		zap.String("risk", report.Risk().String()),
		zap.Int("findings", len(report.Findings())))
	return report, nil
}

// RunBatch scans one target with several tools concurrently. Results keep
// the order of tools.
func (s *Service) RunBatch(ctx context.Context, target string, tools []string, opts scanner.Options) []BatchResult {
	results := make([]BatchResult, len(tools))
	swg := sizedwaitgroup.New(s.cfg.BatchConcurrency)

	for i, name := range tools {
		results[i].Tool = name
		if err := swg.AddWithContext(ctx); err != nil {
			results[i].Err = err
			continue
		}
		go func(i int, name string) {
			defer swg.Done()
			report, err := s.Run(ctx, Request{Tool: name, Target: target, Options: opts})
			results[i].Report = report
			results[i].Err = err
		}(i, name)
	}

	swg.Wait()
	return results
}

// Cancel abandons the outstanding scan of a tool. Its result is discarded
// and the panel returns to idle.
func (s *Service) Cancel(toolName string) error {
	tool, err := s.registry.Get(toolName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.panelLocked(tool.Name).Cancel()
	if cancel, ok := s.cancels[tool.Name]; ok {
		cancel()
		delete(s.cancels, tool.Name)
	}
	return nil
}

// Panel returns the view state of a tool
func (s *Service) Panel(toolName string) (panel.Snapshot, error) {
	tool, err := s.registry.Get(toolName)
	if err != nil {
		return panel.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panelLocked(tool.Name).Snapshot(), nil
}

// Panels returns the view state of every tool in registry order
func (s *Service) Panels() []panel.Snapshot {
	tools := s.registry.List()
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps := make([]panel.Snapshot, 0, len(tools))
	for _, tool := range tools {
		snaps = append(snaps, s.panelLocked(tool.Name).Snapshot())
	}
	return snaps
}

// ListReports returns stored reports, newest first. An empty tool lists all.
func (s *Service) ListReports(ctx context.Context, tool string) ([]*finding.Report, error) {
	var (
		reports []*finding.Report
		err     error
	)
	if tool == "" {
		reports, err = s.reports.FindAll(ctx)
	} else {
		reports, err = s.reports.FindByTool(ctx, tool)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// GetReport retrieves a stored report
func (s *Service) GetReport(ctx context.Context, id string) (*finding.Report, error) {
	report, err := s.reports.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

// DeleteReport removes a stored report
func (s *Service) DeleteReport(ctx context.Context, id string) error {
	if err := s.reports.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// CVEFeed returns the mock feed filtered and sorted for display
func (s *Service) CVEFeed(filter cve.Filter) []cve.Record {
	return filter.Apply(scanner.GenerateCVEFeed(s.cfg.FeedSeed, s.now()))
}

// Helper methods

func (s *Service) resolveOptions(opts scanner.Options) scanner.Options {
	if opts.Seed == 0 {
		opts.Seed = s.seed()
	}
	if opts.Now.IsZero() {
		opts.Now = s.now()
	}
	if opts.Lookup == nil {
		opts.Lookup = s.cfg.Lookup
	}
	if opts.Lookup == nil {
		opts.Demo = true
	}
	return opts
}

func (s *Service) panelLocked(tool string) *panel.Panel {
	p, ok := s.panels[tool]
	if !ok {
		p = panel.New(tool)
		s.panels[tool] = p
	}
	return p
}

func randomSeed() uint32 {
	for {
		if seed := rand.Uint32(); seed != 0 {
			return seed
		}
	}
}
