package scanner

import (
	"strconv"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
)

var corsOrigins = []string{
	"https://evil.com",
	"http://localhost:3000",
	"null",
	"https://attacker.example.com",
	"https://subdomain.target.com",
}

var corsMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}

// CORSCatalog crosses test origins with HTTP methods. Simple GET requests
// are always allowed; the first matching rule sets the severity.
func CORSCatalog() Catalog {
	vectors := make([]Vector, 0, len(corsOrigins)*len(corsMethods))
	for _, origin := range corsOrigins {
		for _, method := range corsMethods {
			v := Vector{
				ID:         origin + " " + method,
				Subject:    origin,
				Category:   method,
				Severity:   finding.SeverityInfo,
				Attributes: map[string]string{"origin": origin, "method": method},
			}
			switch {
			case origin == "https://evil.com":
				v.Severity = finding.SeverityHigh
				v.Evidence = "Allows requests from untrusted origins"
			case origin == "null":
				v.Severity = finding.SeverityMedium
				v.Evidence = "Accepts null origin (potential for exploitation)"
			case method == "DELETE":
				v.Severity = finding.SeverityHigh
				v.Evidence = "Allows destructive operations from cross-origin"
			}
			if method == "GET" {
				v.Probability = 1
			}
			vectors = append(vectors, v)
		}
	}

	return Catalog{
		Vectors:  vectors,
		Positive: finding.OutcomeAllowed,
		Negative: finding.OutcomeBlocked,
		Choices:  map[string][]string{"credentials": {"true", "false"}},
		Recommendations: []string{
			"Regularly audit your CORS configuration",
			"Use specific origins instead of broad patterns",
		},
	}
}

func summarizeCORS(s Summary) {
	high, medium, credentials := 0, 0, false
	for _, r := range s.Results {
		if r.Attributes["credentials"] == "true" {
			credentials = true
		}
		if r.Status != StatusOpen {
			continue
		}
		switch r.Severity {
		case finding.SeverityHigh:
			high++
		case finding.SeverityMedium:
			medium++
		}
	}

	overall := "secure"
	if high > 0 {
		overall = "vulnerable"
		s.Report.AddRecommendation("Restrict CORS to trusted origins only")
		s.Report.AddRecommendation("Avoid using wildcard (*) for Access-Control-Allow-Origin")
	} else if medium > 0 {
		overall = "warning"
	}
	if medium > 0 {
		s.Report.AddRecommendation("Review null origin handling")
		s.Report.AddRecommendation("Implement proper preflight request validation")
	}
	if credentials {
		s.Report.AddRecommendation("Be cautious with Access-Control-Allow-Credentials")
	}

	s.Report.SetAttribute("overall_security", overall)
	s.Report.SetAttribute("high_issues", strconv.Itoa(high))
	s.Report.SetAttribute("medium_issues", strconv.Itoa(medium))
}

func corsTool() *Tool {
	return &Tool{
		Name:         "cors",
		Title:        "CORS Tester",
		Description:  "Test cross-origin resource sharing rules against hostile origins",
		Input:        InputURL,
		DefaultDelay: 3 * time.Second,
		Probability:  0.3,
		catalog: func(Options) Catalog {
			return CORSCatalog()
		},
		policy: func(_ Options, p *Policy) {
			p.Summarize = summarizeCORS
		},
	}
}
