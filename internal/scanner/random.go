package scanner

import (
	"context"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
)

// RandomProbe is the mock probe behind most panels. Its draws depend only on
// the task seed and key, so results do not depend on scheduling order.
type RandomProbe struct {
	// Probability of a positive outcome when the vector has no override
	Probability float64
	// SplitNegative splits negative results evenly into Closed and Filtered
	SplitNegative bool
	// Choices are drawn uniformly per task and attached as attributes
	Choices map[string][]string
}

func (p *RandomProbe) Probe(ctx context.Context, task Task) Result {
	if err := ctx.Err(); err != nil {
		return errorResult(task, err)
	}

	v := task.Vector
	result := Result{Task: task, Attributes: make(map[string]string)}

	for attr, values := range p.Choices {
		if len(values) == 0 {
			continue
		}
		result.Attributes[attr] = values[DrawInt(task.Seed, task.Key, "choice:"+attr, len(values))]
	}

	probability := p.Probability
	if v.Probability > 0 {
		probability = v.Probability
	}

	if Draw(task.Seed, task.Key, "outcome") >= probability {
		result.Status = StatusClosed
		if p.SplitNegative && Draw(task.Seed, task.Key, "split") >= 0.5 {
			result.Status = StatusFiltered
		}
		result.Severity = finding.SeverityInfo
		return result
	}

	result.Status = StatusOpen
	if v.Banner != "" {
		result.Attributes["banner"] = v.Banner
	}

	if v.Condition > 0 && Draw(task.Seed, task.Key, "condition") >= v.Condition {
		// the secondary check did not trigger, report the banner only
		result.Severity = finding.SeverityInfo
		result.Evidence = v.Banner
		return result
	}

	result.Severity = v.Severity
	result.Evidence = v.Evidence
	if result.Evidence == "" {
		result.Evidence = v.Banner
	}
	if v.Condition > 0 && v.Evidence != "" {
		result.Attributes["vulnerability"] = v.Evidence
	}
	return result
}
