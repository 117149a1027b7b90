package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	scanapp "github.com/khanhnv2901/seca-suite/internal/application/scan"
	"github.com/khanhnv2901/seca-suite/internal/domain/cve"
	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	"github.com/khanhnv2901/seca-suite/internal/domain/panel"
	"github.com/khanhnv2901/seca-suite/internal/export"
	"github.com/khanhnv2901/seca-suite/internal/scanner"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

const defaultJobLimit = 25

type toolView struct {
	Name        string            `json:"name"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Input       scanner.InputKind `json:"input"`
	DelayMS     int64             `json:"delay_ms"`
}

type reportSummary struct {
	ID          string           `json:"id"`
	Tool        string           `json:"tool"`
	Target      string           `json:"target"`
	Risk        finding.Severity `json:"risk"`
	Findings    int              `json:"findings"`
	CompletedAt time.Time        `json:"completed_at"`
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	tools := s.cfg.Scans.Tools()
	views := make([]toolView, 0, len(tools))
	for _, t := range tools {
		views = append(views, toolView{
			Name:        t.Name,
			Title:       t.Title,
			Description: t.Description,
			Input:       t.Input,
			DelayMS:     t.DefaultDelay.Milliseconds(),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	req.Tool = strings.ToLower(strings.TrimSpace(req.Tool))

	opts, err := req.options()
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	snap, err := s.cfg.Scans.Panel(req.Tool)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if snap.State == panel.StateScanning {
		s.writeServiceError(w, r, fmt.Errorf("%w: %s", sharedErrors.ErrScanInProgress, req.Tool))
		return
	}

	job := s.cfg.Jobs.CreateJob(req.Tool, req.Target)
	s.requestLogger(r).Info("scan_job_created",
		zap.String("job_id", job.ID),
		zap.String("tool", req.Tool),
		zap.String("user", sessionFrom(r.Context()).Username()),
	)

	s.wg.Add(1)
	go s.runScanJob(job.ID, scanapp.Request{
		Tool:    req.Tool,
		Target:  req.Target,
		Options: opts,
	})

	writeJSON(w, http.StatusAccepted, job)
}

// runScanJob drives a job through the panel states of its tool
func (s *Server) runScanJob(jobID string, req scanapp.Request) {
	defer s.wg.Done()

	s.cfg.Jobs.UpdateJob(jobID, func(j *Job) {
		now := time.Now()
		j.Status = JobScanning
		j.StartedAt = &now
	})
	req.OnResult = func(scanner.Result) {
		s.cfg.Jobs.UpdateJob(jobID, func(j *Job) { j.Completed++ })
	}

	report, err := s.cfg.Scans.Run(s.baseCtx, req)

	s.cfg.Jobs.UpdateJob(jobID, func(j *Job) {
		now := time.Now()
		j.FinishedAt = &now
		switch {
		case err == nil:
			j.Status = JobReported
			j.ReportID = report.ID()
			j.Risk = report.Risk().String()
			j.Findings = report.PositiveCount()
		case errors.Is(err, sharedErrors.ErrScanCancelled), errors.Is(err, context.Canceled):
			j.Status = JobCancelled
		default:
			j.Status = JobErrored
			j.Error = err.Error()
		}
	})
	if err != nil {
		s.cfg.Logger.Warn("scan_job_failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

// options converts the request body into scanner options
func (req ScanRequest) options() (scanner.Options, error) {
	opts := scanner.Options{
		Seed:            req.Seed,
		IncludeNegative: req.IncludeNegative,
		Full:            req.Full,
		Compare:         req.Compare,
		FileMode:        req.FileMode,
		FileSize:        req.FileSize,
		Offline:         req.Offline,
		Vendor:          req.Vendor,
	}
	if req.Tool == "" {
		return opts, fmt.Errorf("%w: tool is required", sharedErrors.ErrMissingRequired)
	}
	if req.FileSize < 0 {
		return opts, fmt.Errorf("%w: file_size must not be negative", sharedErrors.ErrInvalidInput)
	}
	if req.DelayMS != nil {
		if *req.DelayMS < 0 {
			return opts, fmt.Errorf("%w: delay_ms must not be negative", sharedErrors.ErrInvalidInput)
		}
		delay := time.Duration(*req.DelayMS) * time.Millisecond
		opts.Delay = &delay
	}
	if req.Severity != "" {
		sev, err := finding.ParseSeverity(req.Severity)
		if err != nil {
			return opts, err
		}
		opts.Severity = sev
	}
	return opts, nil
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultJobLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	writeJSON(w, http.StatusOK, s.cfg.Jobs.ListJobs(limit))
}

func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	job := s.cfg.Jobs.GetJob(mux.Vars(r)["id"])
	if job == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job not found"))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	updates, unsubscribe := s.cfg.Jobs.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case job, ok := <-updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(job)
			if err != nil {
				s.cfg.Logger.Error("failed to marshal job", zap.Error(err))
				continue
			}
			if !s.writeStreamChunk(w, []byte("event: job\ndata: ")) {
				return
			}
			if !s.writeStreamChunk(w, payload) {
				return
			}
			if !s.writeStreamChunk(w, []byte("\n\n")) {
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			return
		case <-s.baseCtx.Done():
			return
		}
	}
}

func (s *Server) handlePanels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Scans.Panels())
}

func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	snap, err := s.cfg.Scans.Panel(mux.Vars(r)["tool"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleCancelPanel abandons the outstanding scan of a tool
func (s *Server) handleCancelPanel(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Scans.Cancel(mux.Vars(r)["tool"]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.cfg.Scans.ListReports(r.Context(), r.URL.Query().Get("tool"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	summaries := make([]reportSummary, 0, len(reports))
	for _, rep := range reports {
		summaries = append(summaries, reportSummary{
			ID:          rep.ID(),
			Tool:        rep.Tool(),
			Target:      rep.Target(),
			Risk:        rep.Risk(),
			Findings:    rep.PositiveCount(),
			CompletedAt: rep.CompletedAt(),
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleReportByID(w http.ResponseWriter, r *http.Request) {
	report, err := s.cfg.Scans.GetReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, export.Document(report))
}

func (s *Server) handleReportExport(w http.ResponseWriter, r *http.Request) {
	formatValue := r.URL.Query().Get("format")
	if formatValue == "" {
		formatValue = string(export.FormatJSON)
	}
	format, err := export.ParseFormat(formatValue)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	report, err := s.cfg.Scans.GetReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	// Subdomain reports keep their own CSV layout
	var buf bytes.Buffer
	name := export.ReportFileName(report, format)
	if format == export.FormatCSV && report.Tool() == "subdomain" {
		err = export.WriteSubdomainCSV(&buf, export.SubdomainRows(report))
		name = export.SubdomainFileName(report.Target())
	} else {
		err = export.WriteReport(&buf, report, format)
	}
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleCVEs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := cve.Filter{
		Search: q.Get("search"),
		Vendor: q.Get("vendor"),
	}
	if value := q.Get("severity"); value != "" {
		sev, err := finding.ParseSeverity(value)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		filter.Severity = sev
	}

	records := s.cfg.Scans.CVEFeed(filter)
	switch strings.ToLower(q.Get("format")) {
	case "", "json":
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"total":   len(records),
			"results": records,
		})
	case "csv":
		w.Header().Set("Content-Type", export.FormatCSV.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.CVEReportFileName(time.Now())))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(export.CVEReportCSV(records)))
	default:
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("unsupported format %q", q.Get("format")))
	}
}
