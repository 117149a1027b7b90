package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"
)

// ResultFunc is called once per finished task, from worker goroutines.
type ResultFunc func(result Result)

// Runner orchestrates probe execution with concurrency and rate limiting
type Runner struct {
	Concurrency int           // Maximum number of concurrent probes
	RateLimit   int           // Probes per second (global), 0 for unlimited
	Timeout     time.Duration // Timeout for each probe, 0 for none
}

type runnerJob struct {
	task Task
	ctx  context.Context
	done *sync.WaitGroup
}

// Run executes every task and returns the results indexed like tasks. Tasks
// that never start because ctx was cancelled resolve to StatusError.
func (r *Runner) Run(ctx context.Context, tasks []Task, probe Probe, onResult ResultFunc) ([]Result, error) {
	results := make([]Result, len(tasks))
	if len(tasks) == 0 {
		return results, nil
	}

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > len(tasks) {
		concurrency = len(tasks)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if r.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.RateLimit), r.RateLimit)
	}

	finish := func(idx int, res Result) {
		results[idx] = res
		if onResult != nil {
			onResult(res)
		}
	}

	pool, err := ants.NewPoolWithFunc(concurrency, func(arg interface{}) {
		job := arg.(*runnerJob)
		defer job.done.Done()

		if err := limiter.Wait(job.ctx); err != nil {
			finish(job.task.Index, errorResult(job.task, err))
			return
		}

		probeCtx := job.ctx
		if r.Timeout > 0 {
			var cancel context.CancelFunc
			probeCtx, cancel = context.WithTimeout(job.ctx, r.Timeout)
			defer cancel()
		}

		start := time.Now()
		res := probe.Probe(probeCtx, job.task)
		res.Task = job.task
		res.Duration = time.Since(start)
		finish(job.task.Index, res)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create probe pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range tasks {
		tasks[i].Index = i
		if ctx.Err() != nil {
			finish(i, errorResult(tasks[i], ctx.Err()))
			continue
		}

		wg.Add(1)
		if err := pool.Invoke(&runnerJob{task: tasks[i], ctx: ctx, done: &wg}); err != nil {
			wg.Done()
			finish(i, errorResult(tasks[i], err))
		}
	}

	wg.Wait()
	return results, ctx.Err()
}
