package scanner

import (
	"fmt"
	"os"
	"strings"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
	"gopkg.in/yaml.v2"
)

// Vector is one catalog entry: a port, a payload, a header, an origin.
type Vector struct {
	ID          string            `yaml:"id" json:"id"`
	Subject     string            `yaml:"subject" json:"subject"`
	Category    string            `yaml:"category" json:"category"`
	Payload     string            `yaml:"payload,omitempty" json:"payload,omitempty"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Severity    finding.Severity  `yaml:"severity" json:"severity"`
	Evidence    string            `yaml:"evidence,omitempty" json:"evidence,omitempty"`
	Remediation string            `yaml:"remediation,omitempty" json:"remediation,omitempty"`
	Banner      string            `yaml:"banner,omitempty" json:"banner,omitempty"`
	Probability float64           `yaml:"probability,omitempty" json:"probability,omitempty"`
	Condition   float64           `yaml:"condition,omitempty" json:"condition,omitempty"`
	Attributes  map[string]string `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// Catalog is the fixed list of vectors a tool evaluates.
type Catalog struct {
	Tool       string   `yaml:"tool"`
	Vectors    []Vector `yaml:"vectors"`
	Parameters []string `yaml:"parameters,omitempty"`

	Positive finding.Outcome `yaml:"positive,omitempty"`
	Negative finding.Outcome `yaml:"negative,omitempty"`
	// Filtered labels probes that could not decide. Defaults to "filtered".
	Filtered finding.Outcome `yaml:"filtered,omitempty"`

	SplitNegative   bool                `yaml:"split_negative,omitempty"`
	Choices         map[string][]string `yaml:"choices,omitempty"`
	Recommendations []string            `yaml:"recommendations,omitempty"`
}

// Size is the number of tasks the catalog expands into
func (c *Catalog) Size() int {
	if len(c.Parameters) == 0 {
		return len(c.Vectors)
	}
	return len(c.Vectors) * len(c.Parameters)
}

// Tasks expands vectors x parameters for a target. Without parameters each
// vector runs once.
func (c *Catalog) Tasks(target string, seed uint32) []Task {
	tasks := make([]Task, 0, c.Size())
	for _, v := range c.Vectors {
		if len(c.Parameters) == 0 {
			tasks = append(tasks, Task{
				Index:  len(tasks),
				Key:    c.Tool + "|" + target + "|" + v.key(),
				Target: target,
				Vector: v,
				Seed:   seed,
			})
			continue
		}
		for _, param := range c.Parameters {
			tasks = append(tasks, Task{
				Index:     len(tasks),
				Key:       c.Tool + "|" + target + "|" + v.key() + "|" + param,
				Target:    target,
				Parameter: param,
				Vector:    v,
				Seed:      seed,
			})
		}
	}
	return tasks
}

// Outcome maps a probe status onto the catalog's labels
func (c *Catalog) Outcome(status Status) finding.Outcome {
	switch status {
	case StatusOpen:
		if c.Positive != "" {
			return c.Positive
		}
		return finding.OutcomeVulnerable
	case StatusClosed:
		if c.Negative != "" {
			return c.Negative
		}
		return finding.OutcomeNotVulnerable
	case StatusFiltered:
		if c.Filtered != "" {
			return c.Filtered
		}
		return finding.OutcomeFiltered
	default:
		return finding.OutcomeError
	}
}

// Validate checks the catalog is usable
func (c *Catalog) Validate() error {
	if len(c.Vectors) == 0 {
		return fmt.Errorf("%w: %s", sharedErrors.ErrEmptyCatalog, c.Tool)
	}
	seen := make(map[string]bool, len(c.Vectors))
	for i, v := range c.Vectors {
		if v.Subject == "" && v.ID == "" {
			return fmt.Errorf("vector %d: subject or id is required", i)
		}
		if v.Probability < 0 || v.Probability > 1 || v.Condition < 0 || v.Condition > 1 {
			return fmt.Errorf("vector %q: probabilities must be within [0,1]", v.key())
		}
		if seen[v.key()] {
			return fmt.Errorf("vector %q: duplicate entry", v.key())
		}
		seen[v.key()] = true
	}
	if c.Positive != "" && !c.Positive.Positive() {
		return fmt.Errorf("positive outcome %q does not count toward risk", c.Positive)
	}
	return nil
}

func (v Vector) key() string {
	if v.ID != "" {
		return v.ID
	}
	if v.Payload != "" {
		return v.Subject + "#" + v.Payload
	}
	return v.Subject
}

// subject returns the finding subject for a task
func (t Task) subject() string {
	if t.Parameter != "" {
		return t.Parameter
	}
	if t.Vector.Subject != "" {
		return t.Vector.Subject
	}
	return t.Vector.ID
}

// LoadCatalog reads a YAML catalog file. Fields left empty in the file keep
// the values from base, so a file may only override the vector list.
func LoadCatalog(path string, base Catalog) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data, base)
}

// ParseCatalog decodes YAML catalog data over base
func ParseCatalog(data []byte, base Catalog) (Catalog, error) {
	var file Catalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog: %w", err)
	}

	merged := base
	if file.Tool != "" && !strings.EqualFold(file.Tool, base.Tool) && base.Tool != "" {
		return Catalog{}, fmt.Errorf("catalog is for tool %q, not %q", file.Tool, base.Tool)
	}
	if len(file.Vectors) > 0 {
		merged.Vectors = file.Vectors
	}
	if file.Parameters != nil {
		merged.Parameters = file.Parameters
	}
	if file.Positive != "" {
		merged.Positive = file.Positive
	}
	if file.Negative != "" {
		merged.Negative = file.Negative
	}
	if file.Filtered != "" {
		merged.Filtered = file.Filtered
	}
	if file.SplitNegative {
		merged.SplitNegative = true
	}
	if file.Choices != nil {
		merged.Choices = file.Choices
	}
	if file.Recommendations != nil {
		merged.Recommendations = file.Recommendations
	}
	if merged.Tool == "" {
		merged.Tool = file.Tool
	}

	if err := merged.Validate(); err != nil {
		return Catalog{}, err
	}
	return merged, nil
}
