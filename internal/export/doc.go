// Package export renders scan results as downloadable files: the CVE report
// CSV, the subdomain list CSV and generic report exports in CSV, JSON or
// Markdown.
package export
