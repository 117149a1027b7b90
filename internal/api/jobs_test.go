package api

import (
	"strings"
	"testing"
	"time"
)

func newTestJobManager() *JobManager {
	m := NewJobManager()
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return m
}

func TestJobManager_CreateAndGet(t *testing.T) {
	m := newTestJobManager()

	job := m.CreateJob("ports", "10.0.0.1")
	if !strings.HasPrefix(job.ID, "job_") {
		t.Fatalf("unexpected job id %q", job.ID)
	}
	if job.Status != JobPending || job.Type != "scan" {
		t.Fatalf("new job = %+v", job)
	}

	// Returned jobs are copies
	job.Status = JobReported
	got := m.GetJob(job.ID)
	if got == nil || got.Status != JobPending {
		t.Fatalf("stored job mutated through copy: %+v", got)
	}

	if m.GetJob("job_missing") != nil {
		t.Fatal("expected nil for unknown job")
	}
}

func TestJobManager_UpdateJob(t *testing.T) {
	m := newTestJobManager()
	job := m.CreateJob("hash", "hello")

	updated := m.UpdateJob(job.ID, func(j *Job) {
		j.Status = JobReported
		j.ReportID = "r1"
	})
	if updated == nil || updated.Status != JobReported || updated.ReportID != "r1" {
		t.Fatalf("updated = %+v", updated)
	}
	if !updated.Finished() {
		t.Fatal("reported job should be finished")
	}

	if m.UpdateJob("job_missing", func(*Job) {}) != nil {
		t.Fatal("expected nil for unknown job")
	}
}

func TestJobManager_ListJobsNewestFirst(t *testing.T) {
	m := newTestJobManager()
	first := m.CreateJob("ports", "a")
	second := m.CreateJob("ports", "b")
	third := m.CreateJob("ports", "c")

	jobs := m.ListJobs(0)
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	want := []string{third.ID, second.ID, first.ID}
	for i, job := range jobs {
		if job.ID != want[i] {
			t.Fatalf("position %d = %s, want %s", i, job.ID, want[i])
		}
	}

	if limited := m.ListJobs(2); len(limited) != 2 || limited[0].ID != third.ID {
		t.Fatalf("limited list = %+v", limited)
	}
}

func TestJobManager_PruneKeepsRunningJobs(t *testing.T) {
	m := newTestJobManager()
	m.SetMaxJobs(2)

	running := m.CreateJob("ports", "a")
	finished := m.CreateJob("ports", "b")
	m.UpdateJob(finished.ID, func(j *Job) { j.Status = JobErrored })
	newest := m.CreateJob("ports", "c")

	if m.GetJob(finished.ID) != nil {
		t.Fatal("oldest finished job should be pruned")
	}
	if m.GetJob(running.ID) == nil || m.GetJob(newest.ID) == nil {
		t.Fatal("unfinished jobs must be kept")
	}
}

func TestJobManager_Subscribe(t *testing.T) {
	m := newTestJobManager()
	updates, unsubscribe := m.Subscribe()

	job := m.CreateJob("cors", "https://example.com")
	m.UpdateJob(job.ID, func(j *Job) { j.Status = JobScanning })

	for _, want := range []string{JobPending, JobScanning} {
		select {
		case got := <-updates:
			if got.ID != job.ID || got.Status != want {
				t.Fatalf("update = %+v, want status %s", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("no update for status %s", want)
		}
	}

	unsubscribe()
	if _, ok := <-updates; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// Safe to call twice and to broadcast afterwards
	unsubscribe()
	m.UpdateJob(job.ID, func(j *Job) { j.Status = JobReported })
}

func TestScanRequestOptions(t *testing.T) {
	delay := int64(250)
	opts, err := ScanRequest{Tool: "cve", Seed: 3, DelayMS: &delay, Severity: "high", Vendor: "Apache"}.options()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Seed != 3 || opts.Delay == nil || *opts.Delay != 250*time.Millisecond {
		t.Fatalf("options = %+v", opts)
	}
	if opts.Severity.String() != "high" || opts.Vendor != "Apache" {
		t.Fatalf("cve filters = %v %q", opts.Severity, opts.Vendor)
	}

	if opts, _ := (ScanRequest{Tool: "ports"}).options(); opts.Delay != nil {
		t.Fatal("omitted delay must keep the tool default")
	}
}
