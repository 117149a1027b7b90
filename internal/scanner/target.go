package scanner

import (
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strings"

	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

// ValidationError reports a target that a tool cannot scan. The scan is not
// started when it is returned.
type ValidationError struct {
	Tool    string
	Target  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Tool == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Tool, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	if target == sharedErrors.ErrInvalidTarget {
		return true
	}
	return target == sharedErrors.ErrEmptyTarget && strings.TrimSpace(e.Target) == ""
}

// Validator normalizes a raw target or rejects it with a message
type Validator func(raw string) (string, error)

var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func invalid(raw, message string) error {
	return &ValidationError{Target: raw, Message: message}
}

// NormalizeURL prefixes https:// unless the input already starts with
// "http", and requires an absolute URL with a host.
func NormalizeURL(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "", invalid(raw, "Please enter a URL")
	}
	if !strings.HasPrefix(target, "http") {
		target = "https://" + target
	}
	parsed, err := url.Parse(target)
	if err != nil || !parsed.IsAbs() || parsed.Hostname() == "" || strings.ContainsAny(parsed.Host, " \t") {
		return "", invalid(raw, "Please enter a valid URL")
	}
	return parsed.String(), nil
}

// ValidateDomain accepts bare domain names. A leading scheme is stripped
// first, so "https://example.com" validates as "example.com".
func ValidateDomain(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "", invalid(raw, "Please enter a domain")
	}
	target = strings.TrimPrefix(strings.TrimPrefix(target, "https://"), "http://")
	target = strings.TrimSuffix(target, "/")
	if target == "" || !domainPattern.MatchString(target) {
		return "", invalid(raw, "Please enter a valid domain")
	}
	return strings.ToLower(target), nil
}

// ValidateHost accepts a domain name or an IPv4/IPv6 address
func ValidateHost(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "", invalid(raw, "Please enter a target host")
	}
	if addr, err := netip.ParseAddr(strings.Trim(target, "[]")); err == nil {
		return addr.String(), nil
	}
	host, err := ValidateDomain(target)
	if err != nil {
		return "", invalid(raw, "Please enter a valid domain or IP address")
	}
	return host, nil
}

// ValidateCIDR requires a network in prefix notation such as 192.168.1.0/24
func ValidateCIDR(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "", invalid(raw, "Please enter a network range")
	}
	prefix, err := netip.ParsePrefix(target)
	if err != nil {
		return "", invalid(raw, "Please enter a valid CIDR range (e.g. 192.168.1.0/24)")
	}
	return prefix.Masked().String(), nil
}

// ValidateText accepts any non-empty input
func ValidateText(raw string) (string, error) {
	if raw == "" {
		return "", invalid(raw, "Please enter text to analyze")
	}
	return raw, nil
}

// ValidateOptional accepts anything and substitutes "*" for empty input
func ValidateOptional(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "*", nil
	}
	return strings.TrimSpace(raw), nil
}
