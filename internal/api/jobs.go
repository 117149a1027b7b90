package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Job statuses. Running jobs mirror the panel states of their tool.
const (
	JobPending   = "pending"
	JobScanning  = "scanning"
	JobReported  = "reported"
	JobErrored   = "errored"
	JobCancelled = "cancelled"
)

// Job tracks one asynchronous scan
type Job struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Tool       string     `json:"tool"`
	Target     string     `json:"target"`
	Status     string     `json:"status"`
	Completed  int        `json:"completed"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	ReportID   string     `json:"report_id,omitempty"`
	Risk       string     `json:"risk,omitempty"`
	Findings   int        `json:"findings"`
	Error      string     `json:"error,omitempty"`
}

// Finished reports whether the job reached a terminal status
func (j Job) Finished() bool {
	return j.Status == JobReported || j.Status == JobErrored || j.Status == JobCancelled
}

// ScanRequest is the body of POST /scans
type ScanRequest struct {
	Tool            string `json:"tool"`
	Target          string `json:"target"`
	Seed            uint32 `json:"seed,omitempty"`
	DelayMS         *int64 `json:"delay_ms,omitempty"`
	IncludeNegative bool   `json:"include_negative,omitempty"`
	Full            bool   `json:"full,omitempty"`
	Compare         string `json:"compare,omitempty"`
	FileMode        bool   `json:"file_mode,omitempty"`
	FileSize        int64  `json:"file_size,omitempty"`
	Offline         bool   `json:"offline,omitempty"`
	Severity        string `json:"severity,omitempty"`
	Vendor          string `json:"vendor,omitempty"`
}

// JobManager keeps recent jobs in memory and fans out updates to stream
// subscribers.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	subscribers map[chan Job]struct{}
	maxJobs     int
	now         func() time.Time
}

// NewJobManager creates an empty manager retaining up to 1000 jobs
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		subscribers: make(map[chan Job]struct{}),
		maxJobs:     1000,
		now:         time.Now,
	}
}

// CreateJob registers a pending scan job
func (m *JobManager) CreateJob(tool, target string) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &Job{
		ID:        generateID("job"),
		Type:      "scan",
		Tool:      tool,
		Target:    target,
		Status:    JobPending,
		CreatedAt: m.now(),
	}
	m.jobs[job.ID] = job
	m.pruneLocked()
	m.broadcast(*job)

	copy := *job
	return &copy
}

// UpdateJob applies update and broadcasts the result. It returns nil for an
// unknown id.
func (m *JobManager) UpdateJob(id string, update func(*Job)) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	update(job)
	m.broadcast(*job)

	copy := *job
	return &copy
}

// GetJob returns a copy of a job, or nil
func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if job, ok := m.jobs[id]; ok {
		copy := *job
		return &copy
	}
	return nil
}

// ListJobs returns up to limit jobs, newest first
func (m *JobManager) ListJobs(limit int) []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs
}

// Subscribe returns a channel of job updates and a function to stop them.
// Updates are dropped for subscribers that fall behind.
func (m *JobManager) Subscribe() (chan Job, func()) {
	ch := make(chan Job, 32)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
}

// SetMaxJobs configures the maximum number of jobs to retain in memory
func (m *JobManager) SetMaxJobs(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > 0 {
		m.maxJobs = max
		m.pruneLocked()
	}
}

func (m *JobManager) broadcast(job Job) {
	for ch := range m.subscribers {
		select {
		case ch <- job:
		default:
		}
	}
}

// pruneLocked drops the oldest finished jobs once over the limit. Running
// jobs are never dropped.
func (m *JobManager) pruneLocked() {
	excess := len(m.jobs) - m.maxJobs
	if excess <= 0 {
		return
	}

	finished := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if job.Finished() {
			finished = append(finished, job)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].CreatedAt.Before(finished[j].CreatedAt)
	})

	for i := 0; i < excess && i < len(finished); i++ {
		delete(m.jobs, finished[i].ID)
	}
}

func generateID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}
