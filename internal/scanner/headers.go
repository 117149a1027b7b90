package scanner

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
)

var securityHeaders = []Vector{
	{Subject: "Content-Security-Policy", Severity: finding.SeverityHigh,
		Description: "Helps prevent XSS attacks by controlling which resources can be loaded",
		Remediation: "Implement a strict CSP policy to prevent code injection attacks"},
	{Subject: "X-Frame-Options", Severity: finding.SeverityMedium,
		Description: "Prevents clickjacking attacks by controlling iframe embedding",
		Remediation: "Set to DENY or SAMEORIGIN to prevent clickjacking"},
	{Subject: "X-Content-Type-Options", Severity: finding.SeverityMedium,
		Description: "Prevents MIME type sniffing attacks",
		Remediation: `Set to "nosniff" to prevent MIME type confusion attacks`},
	{Subject: "Strict-Transport-Security", Severity: finding.SeverityHigh,
		Description: "Enforces HTTPS connections and prevents protocol downgrade attacks",
		Remediation: "Implement HSTS with a long max-age and includeSubDomains"},
	{Subject: "X-XSS-Protection", Severity: finding.SeverityLow,
		Description: "Legacy XSS protection (deprecated but still useful for older browsers)",
		Remediation: `Set to "1; mode=block" for legacy browser support`},
	{Subject: "Referrer-Policy", Severity: finding.SeverityLow,
		Description: "Controls how much referrer information is shared",
		Remediation: `Set to "strict-origin-when-cross-origin" for privacy`},
	{Subject: "Permissions-Policy", Severity: finding.SeverityMedium,
		Description: "Controls which browser features can be used",
		Remediation: "Restrict unnecessary browser features and APIs"},
}

// MockResponseHeaders is the fixed response the header panel analyzes
func MockResponseHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'")
	h.Set("X-Frame-Options", "SAMEORIGIN")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	h.Set("Server", "nginx/1.18.0")
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	return h
}

// HeaderCatalog lists the security headers a response is expected to carry.
// A missing header is the positive outcome.
func HeaderCatalog() Catalog {
	vectors := make([]Vector, len(securityHeaders))
	for i, v := range securityHeaders {
		v.Category = "security-header"
		v.Evidence = v.Description
		vectors[i] = v
	}
	return Catalog{
		Vectors:  vectors,
		Positive: finding.OutcomeMissing,
		Negative: finding.OutcomePresent,
	}
}

// HeaderProbe checks vectors against a captured response header set
type HeaderProbe struct {
	Headers http.Header
}

func (p *HeaderProbe) Probe(ctx context.Context, task Task) Result {
	if err := ctx.Err(); err != nil {
		return errorResult(task, err)
	}
	value := p.Headers.Get(task.Vector.Subject)
	if value == "" {
		return Result{Task: task, Status: StatusOpen, Severity: task.Vector.Severity, Evidence: task.Vector.Evidence}
	}
	return Result{
		Task:       task,
		Status:     StatusClosed,
		Severity:   finding.SeverityInfo,
		Evidence:   value,
		Attributes: map[string]string{"value": value},
	}
}

// HeaderGrade maps a 0-100 score to a letter grade
func HeaderGrade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func headersTool() *Tool {
	return &Tool{
		Name:         "headers",
		Title:        "Header Analyzer",
		Description:  "Grade HTTP security headers of a response",
		Input:        InputURL,
		DefaultDelay: 2 * time.Second,
		catalog: func(Options) Catalog {
			return HeaderCatalog()
		},
		policy: func(_ Options, p *Policy) {
			headers := MockResponseHeaders()
			p.Probe = &HeaderProbe{Headers: headers}
			p.IncludeNegative = true
			p.Summarize = func(s Summary) {
				present := 0
				for _, r := range s.Results {
					if r.Status == StatusClosed {
						present++
					}
				}
				score := 0
				if len(s.Results) > 0 {
					score = int(math.Round(float64(present) / float64(len(s.Results)) * 100))
				}
				s.Report.SetAttribute("present", strconv.Itoa(present))
				s.Report.SetAttribute("score", strconv.Itoa(score))
				s.Report.SetAttribute("grade", HeaderGrade(score))
				s.Report.SetAttribute("server", headers.Get("Server"))
			}
		},
	}
}
