package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	"github.com/khanhnv2901/seca-suite/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
	"github.com/khanhnv2901/seca-suite/internal/shared/security"
)

// reportDTO is the data transfer object for JSON serialization
type reportDTO struct {
	ID              string            `json:"id"`
	Tool            string            `json:"tool"`
	Target          string            `json:"target"`
	Risk            string            `json:"risk"`
	TotalTests      int               `json:"total_tests"`
	Findings        []findingDTO      `json:"findings"`
	Recommendations []string          `json:"recommendations,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty"`
	StartedAt       string            `json:"started_at"`
	CompletedAt     string            `json:"completed_at,omitempty"`
}

type findingDTO struct {
	Subject     string            `json:"subject"`
	Category    string            `json:"category,omitempty"`
	Severity    string            `json:"severity"`
	Outcome     string            `json:"outcome"`
	Evidence    string            `json:"evidence,omitempty"`
	Remediation string            `json:"remediation,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// ReportRepository implements the finding.Repository interface with one
// JSON file per report under <resultsDir>/<tool>/<id>.json.
type ReportRepository struct {
	resultsDir string
	mu         sync.RWMutex
}

// NewReportRepository creates a new JSON-based report repository
func NewReportRepository(resultsDir string) (*ReportRepository, error) {
	if resultsDir == "" {
		return nil, fmt.Errorf("results directory cannot be empty")
	}

	if err := os.MkdirAll(resultsDir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	return &ReportRepository{resultsDir: resultsDir}, nil
}

// Save persists a finalized report
func (r *ReportRepository) Save(ctx context.Context, report *finding.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := security.ValidateFileName(report.Tool()); err != nil {
		return fmt.Errorf("invalid tool name %q: %w", report.Tool(), err)
	}
	filePath, err := security.ResolveWithin(r.resultsDir, report.Tool(), report.ID()+".json")
	if err != nil {
		return fmt.Errorf("invalid report path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), constants.DefaultDirPerm); err != nil {
		return fmt.Errorf("failed to create tool directory: %w", err)
	}

	data, err := json.MarshalIndent(r.toDTO(report), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}

	if err := os.WriteFile(filePath, data, constants.DefaultFilePerm); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// FindByID retrieves a report by its ID
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*finding.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path, err := r.locate(id)
	if err != nil {
		return nil, err
	}
	return r.loadFromFile(path)
}

// FindAll retrieves all reports, newest first
func (r *ReportRepository) FindAll(ctx context.Context) ([]*finding.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	reports := make([]*finding.Report, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		toolReports, err := r.loadDir(filepath.Join(r.resultsDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		reports = append(reports, toolReports...)
	}

	sortNewestFirst(reports)
	return reports, nil
}

// FindByTool retrieves all reports for a tool, newest first
func (r *ReportRepository) FindByTool(ctx context.Context, tool string) ([]*finding.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := security.ValidateFileName(tool); err != nil {
		return nil, fmt.Errorf("invalid tool name %q: %w", tool, err)
	}
	dir := filepath.Join(r.resultsDir, tool)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*finding.Report{}, nil
	}

	reports, err := r.loadDir(dir)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(reports)
	return reports, nil
}

// Delete removes a report by its ID
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path, err := r.locate(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// Helper methods

func (r *ReportRepository) locate(id string) (string, error) {
	if err := security.ValidateFileName(id); err != nil {
		return "", sharedErrors.ErrReportNotFound
	}
	matches, err := filepath.Glob(filepath.Join(r.resultsDir, "*", id+".json"))
	if err != nil {
		return "", fmt.Errorf("failed to search reports: %w", err)
	}
	if len(matches) == 0 {
		return "", sharedErrors.ErrReportNotFound
	}
	return matches[0], nil
}

func (r *ReportRepository) loadDir(dir string) ([]*finding.Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read report directory: %w", err)
	}

	reports := make([]*finding.Report, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		report, err := r.loadFromFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			// skip files that are not reports
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (r *ReportRepository) loadFromFile(filePath string) (*finding.Report, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, sharedErrors.ErrReportNotFound
		}
		return nil, err
	}

	var dto reportDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
	}
	return r.fromDTO(dto)
}

func (r *ReportRepository) toDTO(report *finding.Report) reportDTO {
	findings := report.Findings()
	dto := reportDTO{
		ID:              report.ID(),
		Tool:            report.Tool(),
		Target:          report.Target(),
		Risk:            report.Risk().String(),
		TotalTests:      report.TotalTests(),
		Findings:        make([]findingDTO, 0, len(findings)),
		Recommendations: report.Recommendations(),
		Attributes:      report.Attributes(),
		StartedAt:       report.StartedAt().Format(time.RFC3339Nano),
	}
	if report.IsFinalized() {
		dto.CompletedAt = report.CompletedAt().Format(time.RFC3339Nano)
	}

	for _, f := range findings {
		dto.Findings = append(dto.Findings, findingDTO{
			Subject:     f.Subject,
			Category:    f.Category,
			Severity:    f.Severity.String(),
			Outcome:     string(f.Outcome),
			Evidence:    f.Evidence,
			Remediation: f.Remediation,
			Attributes:  f.Attributes,
		})
	}
	return dto
}

func (r *ReportRepository) fromDTO(dto reportDTO) (*finding.Report, error) {
	if dto.ID == "" || dto.Tool == "" {
		return nil, sharedErrors.ErrInvalidData
	}

	risk, err := finding.ParseSeverity(dto.Risk)
	if err != nil {
		return nil, err
	}

	startedAt, err := time.Parse(time.RFC3339Nano, dto.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started at time: %w", err)
	}
	var completedAt time.Time
	if dto.CompletedAt != "" {
		completedAt, err = time.Parse(time.RFC3339Nano, dto.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse completed at time: %w", err)
		}
	}

	findings := make([]finding.Finding, 0, len(dto.Findings))
	for _, f := range dto.Findings {
		sev, err := finding.ParseSeverity(f.Severity)
		if err != nil {
			return nil, err
		}
		findings = append(findings, finding.Finding{
			Subject:     f.Subject,
			Category:    f.Category,
			Severity:    sev,
			Outcome:     finding.Outcome(f.Outcome),
			Evidence:    f.Evidence,
			Remediation: f.Remediation,
			Attributes:  f.Attributes,
		})
	}

	return finding.Reconstruct(
		dto.ID,
		dto.Tool,
		dto.Target,
		findings,
		risk,
		dto.Recommendations,
		dto.TotalTests,
		dto.Attributes,
		startedAt,
		completedAt,
	), nil
}

func sortNewestFirst(reports []*finding.Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].StartedAt().After(reports[j].StartedAt())
	})
}
