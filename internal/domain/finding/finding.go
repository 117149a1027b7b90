package finding

import (
	"fmt"
	"sort"

	"github.com/spaolacci/murmur3"
)

// Finding is a single reported observation for one catalog entry.
type Finding struct {
	Subject     string            `json:"subject"`
	Category    string            `json:"category"`
	Severity    Severity          `json:"severity"`
	Outcome     Outcome           `json:"outcome"`
	Evidence    string            `json:"evidence,omitempty"`
	Remediation string            `json:"remediation,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Positive reports whether the finding counts toward the report risk.
func (f Finding) Positive() bool {
	return f.Outcome.Positive()
}

// Attribute returns a tool-specific attribute or "" when unset.
func (f Finding) Attribute(key string) string {
	if f.Attributes == nil {
		return ""
	}
	return f.Attributes[key]
}

// Fingerprint identifies a finding by what was tested, independent of the
// random outcome, so the same vector can be matched across reports.
func (f Finding) Fingerprint() string {
	h := murmur3.New64()
	_, _ = h.Write([]byte(f.Category))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(f.Subject))

	keys := make([]string, 0, len(f.Attributes))
	for k := range f.Attributes {
		if k == "parameter" || k == "payload" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(k + "=" + f.Attributes[k]))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func cloneAttributes(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
