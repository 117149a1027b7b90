package scanner

import (
	"context"
	"math"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	"github.com/spaolacci/murmur3"
)

// Status is the typed outcome of a single probe
type Status int

const (
	StatusOpen Status = iota
	StatusClosed
	StatusFiltered
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusFiltered:
		return "filtered"
	default:
		return "error"
	}
}

// Task is one catalog vector, optionally bound to a parameter, against a target.
type Task struct {
	Index     int
	Key       string
	Target    string
	Parameter string
	Vector    Vector
	Seed      uint32
}

// Result is what a probe observed for a task
type Result struct {
	Task     Task
	Status   Status
	Severity finding.Severity
	Evidence string
	// Attributes are merged over the vector attributes on the finding.
	Attributes map[string]string
	Err        error
	Duration   time.Duration
}

// Probe evaluates a single task. Implementations must honor ctx and report
// failures through Result.Status rather than panicking.
type Probe interface {
	Probe(ctx context.Context, task Task) Result
}

// ProbeFunc adapts a function to the Probe interface
type ProbeFunc func(ctx context.Context, task Task) Result

func (f ProbeFunc) Probe(ctx context.Context, task Task) Result {
	return f(ctx, task)
}

// Draw returns a deterministic value in [0,1) for a key under a seed.
// Distinct salts give independent draws for the same key.
func Draw(seed uint32, key, salt string) float64 {
	sum := murmur3.Sum32WithSeed([]byte(key+"\x00"+salt), seed)
	return float64(sum) / float64(math.MaxUint32+1)
}

// DrawInt returns a deterministic integer in [0,n)
func DrawInt(seed uint32, key, salt string, n int) int {
	if n <= 0 {
		return 0
	}
	v := int(Draw(seed, key, salt) * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

func errorResult(task Task, err error) Result {
	return Result{Task: task, Status: StatusError, Severity: finding.SeverityNone, Err: err}
}
