package finding

import (
	"encoding/json"
	"fmt"
	"strings"

	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

// Severity is an ordered classification. The zero value is SeverityNone,
// which is the risk of a report with no positive findings.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityInfo
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityNone:     "none",
	SeverityInfo:     "info",
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Title returns the capitalized form used by the CVE feed ("Critical", "High", ...).
func (s Severity) Title() string {
	name := s.String()
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// ParseSeverity accepts the labels used across the panels, case-insensitively.
// "critical/high" is treated as critical.
func ParseSeverity(value string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none", "":
		return SeverityNone, nil
	case "info", "informational":
		return SeverityInfo, nil
	case "low":
		return SeverityLow, nil
	case "medium", "moderate":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical", "critical/high":
		return SeverityCritical, nil
	}
	return SeverityNone, fmt.Errorf("%w: %q", sharedErrors.ErrInvalidSeverity, value)
}

// AtLeast reports whether s ranks at or above other.
func (s Severity) AtLeast(other Severity) bool {
	return s >= other
}

// MaxSeverity returns the highest of the given severities.
func MaxSeverity(values ...Severity) Severity {
	max := SeverityNone
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return max
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalYAML lets catalog files use the textual labels.
func (s Severity) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s *Severity) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
