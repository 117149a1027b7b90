package scanner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func makeTasks(n int) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Task{Key: "task", Vector: Vector{Subject: string(rune('a' + i%26))}}
	}
	return tasks
}

func TestRunner_ResultsKeepTaskOrder(t *testing.T) {
	runner := &Runner{Concurrency: 4}
	tasks := makeTasks(20)

	probe := ProbeFunc(func(ctx context.Context, task Task) Result {
		// finish out of order
		time.Sleep(time.Duration(20-task.Index) * time.Millisecond / 4)
		return Result{Status: StatusOpen, Evidence: task.Vector.Subject}
	})

	var callbacks int32
	results, err := runner.Run(context.Background(), tasks, probe, func(Result) {
		atomic.AddInt32(&callbacks, 1)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != len(tasks) {
		t.Fatalf("expected %d results, got %d", len(tasks), len(results))
	}
	for i, res := range results {
		if res.Task.Index != i {
			t.Errorf("result %d carries task index %d", i, res.Task.Index)
		}
		if res.Evidence != tasks[i].Vector.Subject {
			t.Errorf("result %d evidence %q does not match its task", i, res.Evidence)
		}
	}
	if atomic.LoadInt32(&callbacks) != int32(len(tasks)) {
		t.Errorf("expected %d callbacks, got %d", len(tasks), callbacks)
	}
}

func TestRunner_BoundsConcurrency(t *testing.T) {
	runner := &Runner{Concurrency: 3}

	var inFlight, peak int32
	probe := ProbeFunc(func(ctx context.Context, task Task) Result {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return Result{Status: StatusClosed}
	})

	if _, err := runner.Run(context.Background(), makeTasks(15), probe, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak > 3 {
		t.Errorf("expected at most 3 concurrent probes, saw %d", peak)
	}
}

func TestRunner_TimeoutReachesProbe(t *testing.T) {
	runner := &Runner{Concurrency: 2, Timeout: 10 * time.Millisecond}
	probe := ProbeFunc(func(ctx context.Context, task Task) Result {
		<-ctx.Done()
		return Result{Status: StatusError, Err: ctx.Err()}
	})

	results, err := runner.Run(context.Background(), makeTasks(2), probe, nil)
	if err != nil {
		t.Fatalf("parent context should be unaffected: %v", err)
	}
	for _, res := range results {
		if res.Status != StatusError || res.Err == nil {
			t.Errorf("expected timed out probe to report an error, got %+v", res)
		}
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	runner := &Runner{Concurrency: 2}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called int32
	probe := ProbeFunc(func(ctx context.Context, task Task) Result {
		atomic.AddInt32(&called, 1)
		return Result{Status: StatusOpen}
	})

	results, err := runner.Run(ctx, makeTasks(5), probe, nil)
	if err == nil {
		t.Fatal("expected context error")
	}
	for i, res := range results {
		if res.Status != StatusError {
			t.Errorf("task %d should resolve to error after cancellation, got %s", i, res.Status)
		}
	}
	if called != 0 {
		t.Errorf("no probe should start after cancellation, %d did", called)
	}
}

func TestRunner_RateLimit(t *testing.T) {
	runner := &Runner{Concurrency: 5, RateLimit: 50}
	probe := ProbeFunc(func(ctx context.Context, task Task) Result {
		return Result{Status: StatusOpen}
	})

	start := time.Now()
	// burst equals the rate, so 60 tasks need roughly 10 extra tokens
	if _, err := runner.Run(context.Background(), makeTasks(60), probe, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("expected rate limiting to slow the run, took %v", elapsed)
	}
}
