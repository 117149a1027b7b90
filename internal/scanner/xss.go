package scanner

import (
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
)

var xssParameters = []string{"q", "search", "name", "comment", "message", "input"}

var xssContexts = []string{"HTML Body", "HTML Attribute", "JavaScript Context", "CSS Context", "URL Parameter"}

var xssVectors = []Vector{
	{ID: "reflected", Category: "Reflected XSS", Payload: "<script>alert('XSS')</script>", Severity: finding.SeverityHigh,
		Evidence: "Payload reflected in response without encoding", Remediation: "Implement proper output encoding and Content Security Policy"},
	{ID: "dom", Category: "DOM-based XSS", Payload: "javascript:alert('XSS')", Severity: finding.SeverityCritical,
		Evidence: "JavaScript execution confirmed in DOM", Remediation: "Sanitize DOM manipulation and avoid dangerous JavaScript functions"},
	{ID: "html-injection", Category: "HTML Injection", Payload: "<img src=x onerror=alert('XSS')>", Severity: finding.SeverityMedium,
		Evidence: "HTML tags rendered without sanitization", Remediation: "Use HTML encoding for all user input displayed in HTML context"},
	{ID: "attribute", Category: "Attribute Injection", Payload: `'"><script>alert('XSS')</script>`, Severity: finding.SeverityHigh,
		Evidence: "Successfully broke out of HTML attribute", Remediation: "Implement attribute encoding and validate input context"},
	{ID: "svg", Category: "SVG Injection", Payload: "<svg onload=alert('XSS')>", Severity: finding.SeverityHigh,
		Evidence: "SVG element executed JavaScript code", Remediation: "Sanitize SVG content and disable JavaScript in SVG elements"},
	{ID: "frame", Category: "Frame Injection", Payload: "<iframe src=javascript:alert('XSS')>", Severity: finding.SeverityCritical,
		Evidence: "Iframe loaded with JavaScript protocol", Remediation: "Validate iframe sources and implement frame-ancestors CSP directive"},
	{ID: "event-handler", Category: "Event Handler", Payload: "<body onload=alert('XSS')>", Severity: finding.SeverityHigh,
		Evidence: "Event handler executed successfully", Remediation: "Remove or sanitize event handlers from user input"},
	{ID: "encoded", Category: "Encoded Injection", Payload: "eval(String.fromCharCode(97,108,101,114,116,40,39,88,83,83,39,41))", Severity: finding.SeverityMedium,
		Evidence: "Encoding bypass successful", Remediation: "Implement multiple layers of encoding validation"},
}

// XSSCatalog returns the XSS payloads crossed with common parameters. Each
// task is assigned an injection context.
func XSSCatalog() Catalog {
	return Catalog{
		Vectors:    append([]Vector(nil), xssVectors...),
		Parameters: append([]string(nil), xssParameters...),
		Positive:   finding.OutcomeVulnerable,
		Negative:   finding.OutcomeNotVulnerable,
		Choices:    map[string][]string{"context": append([]string(nil), xssContexts...)},
	}
}

func xssTool() *Tool {
	return &Tool{
		Name:         "xss",
		Title:        "XSS Scanner",
		Description:  "Test URL parameters against cross-site scripting payloads",
		Input:        InputURL,
		DefaultDelay: 3500 * time.Millisecond,
		Probability:  0.25,
		catalog: func(Options) Catalog {
			return XSSCatalog()
		},
		policy: func(_ Options, p *Policy) {
			p.Summarize = summarizeParameters
		},
	}
}
