package cve

import (
	"sort"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
)

// Record is one entry of the vulnerability feed
type Record struct {
	ID               string           `json:"id"`
	Severity         finding.Severity `json:"severity"`
	Score            float64          `json:"score"`
	Vendor           string           `json:"vendor"`
	Product          string           `json:"product"`
	Description      string           `json:"description"`
	PublishedDate    time.Time        `json:"publishedDate"`
	LastModified     time.Time        `json:"lastModified"`
	References       []string         `json:"references,omitempty"`
	ExploitAvailable bool             `json:"exploitAvailable"`
	Trending         bool             `json:"trending"`
}

// Filter narrows a feed. Zero values match everything.
type Filter struct {
	Search   string
	Severity finding.Severity
	Vendor   string
}

// Matches reports whether the record satisfies every set criterion. Search
// looks at the ID, description, vendor and product, case-insensitively.
func (f Filter) Matches(r Record) bool {
	if f.Severity != finding.SeverityNone && r.Severity != f.Severity {
		return false
	}
	if f.Vendor != "" && !strings.EqualFold(r.Vendor, f.Vendor) {
		return false
	}
	if f.Search == "" {
		return true
	}
	term := strings.ToLower(f.Search)
	for _, field := range []string{r.ID, r.Description, r.Vendor, r.Product} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Apply returns the matching records sorted by severity, most severe first,
// then by publication date, newest first.
func (f Filter) Apply(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	Sort(out)
	return out
}

// Sort orders records in place
func Sort(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Severity != records[j].Severity {
			return records[i].Severity > records[j].Severity
		}
		return records[i].PublishedDate.After(records[j].PublishedDate)
	})
}

// Stats counts records per severity
func Stats(records []Record) map[finding.Severity]int {
	counts := make(map[finding.Severity]int)
	for _, r := range records {
		counts[r.Severity]++
	}
	return counts
}
