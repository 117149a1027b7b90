package scanner

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
)

var tlsProtocols = []struct {
	name      string
	supported bool
}{
	{"TLS 1.3", true},
	{"TLS 1.2", true},
	{"TLS 1.1", false},
	{"TLS 1.0", false},
	{"SSL 3.0", false},
	{"SSL 2.0", false},
}

var strongCiphers = []string{
	"TLS_AES_256_GCM_SHA384",
	"TLS_CHACHA20_POLY1305_SHA256",
	"TLS_AES_128_GCM_SHA256",
	"ECDHE-RSA-AES256-GCM-SHA384",
	"ECDHE-RSA-AES128-GCM-SHA256",
}

// SSLCatalog lists the configuration weaknesses the SSL panel reports
func SSLCatalog() Catalog {
	return Catalog{
		Vectors: []Vector{
			{
				ID:          "weak-cipher",
				Subject:     "Weak Cipher Suite",
				Category:    "cipher",
				Severity:    finding.SeverityMedium,
				Evidence:    "Server supports weak cipher suites that could be exploited",
				Remediation: "Disable weak cipher suites and prefer AEAD ciphers",
				Probability: 0.3,
			},
			{
				ID:          "expiring-cert",
				Subject:     "Certificate Expiring Soon",
				Category:    "certificate",
				Severity:    finding.SeverityLow,
				Evidence:    "SSL certificate will expire within 30 days",
				Remediation: "Renew the certificate before it expires",
				Probability: 0.2,
			},
		},
		Positive: finding.OutcomeVulnerable,
		Negative: finding.OutcomeNotVulnerable,
	}
}

func hexBytes(seed uint32, key, salt string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%02x", DrawInt(seed, key, salt+strconv.Itoa(i), 256))
	}
	return strings.Join(parts, ":")
}

func summarizeSSL(s Summary) {
	domain := s.Target
	key := "ssl|" + domain

	s.Report.SetAttribute("certificate.subject", fmt.Sprintf("CN=%s, O=Example Corp, C=US", domain))
	s.Report.SetAttribute("certificate.issuer", "CN=Let's Encrypt Authority X3, O=Let's Encrypt, C=US")
	s.Report.SetAttribute("certificate.valid_from", "2024-01-01")
	s.Report.SetAttribute("certificate.valid_to", "2024-04-01")
	s.Report.SetAttribute("certificate.days_until_expiry", strconv.Itoa(DrawInt(s.Seed, key, "expiry", 90)+1))
	s.Report.SetAttribute("certificate.serial", "03:"+hexBytes(s.Seed, key, "serial", 15))
	s.Report.SetAttribute("certificate.fingerprint", "SHA256:"+hexBytes(s.Seed, key, "fingerprint", 32))
	s.Report.SetAttribute("certificate.key_size", "2048")
	s.Report.SetAttribute("certificate.signature_algorithm", "SHA256withRSA")

	supported := make([]string, 0, len(tlsProtocols))
	for _, proto := range tlsProtocols {
		if proto.supported {
			supported = append(supported, proto.name)
		}
	}
	s.Report.SetAttribute("protocols", strings.Join(supported, ","))
	s.Report.SetAttribute("ciphers", strings.Join(strongCiphers, ","))

	grade, score := "A", 95
	for _, r := range s.Results {
		if r.Status == StatusOpen && r.Task.Vector.ID == "weak-cipher" {
			grade, score = "B", 80
		}
	}
	s.Report.SetAttribute("grade", grade)
	s.Report.SetAttribute("score", strconv.Itoa(score))
}

func sslTool() *Tool {
	return &Tool{
		Name:         "ssl",
		Title:        "SSL Analyzer",
		Description:  "Inspect certificate, protocol and cipher configuration",
		Input:        InputDomain,
		DefaultDelay: 3 * time.Second,
		catalog: func(Options) Catalog {
			return SSLCatalog()
		},
		policy: func(_ Options, p *Policy) {
			p.Summarize = summarizeSSL
		},
	}
}
