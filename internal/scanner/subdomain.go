package scanner

import (
	"context"
	"strconv"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
)

// Lookuper resolves a name to its first A record. ok is false on any failure.
type Lookuper interface {
	LookupA(ctx context.Context, name string) (ip string, ok bool)
}

var subdomainLabels = []string{
	"www", "mail", "email", "webmail", "ftp", "cpanel", "whm", "ssh", "admin", "administrator",
	"blog", "forum", "api", "dev", "test", "staging", "demo", "beta", "alpha", "preview",
	"shop", "store", "support", "help", "docs", "wiki", "kb", "portal", "dashboard",
	"secure", "login", "signin", "auth", "sso", "vpn", "remote", "cloud", "cdn", "static",
}

// DemoSubdomains are documentation addresses shown for offline runs
var DemoSubdomains = map[string]string{
	"www":   "104.21.76.120",
	"mail":  "198.51.100.42",
	"api":   "203.0.113.15",
	"admin": "192.0.2.89",
	"dev":   "198.51.100.234",
}

// SubdomainCatalog lists the candidate labels
func SubdomainCatalog() Catalog {
	vectors := make([]Vector, len(subdomainLabels))
	for i, label := range subdomainLabels {
		vectors[i] = Vector{
			ID:       label,
			Subject:  label,
			Category: "subdomain",
			Severity: finding.SeverityInfo,
		}
	}
	return Catalog{
		Vectors:  vectors,
		Positive: finding.OutcomeActive,
		Negative: finding.OutcomeInactive,
	}
}

// DoHProbe checks each candidate label through a resolver. When Demo is set
// labels without an answer fall back to the demo addresses, so a label is
// never reported twice.
type DoHProbe struct {
	Resolver Lookuper
	Demo     map[string]string
}

func (p *DoHProbe) Probe(ctx context.Context, task Task) Result {
	if err := ctx.Err(); err != nil {
		return errorResult(task, err)
	}

	fqdn := task.Vector.Subject + "." + task.Target
	res := Result{
		Task:       task,
		Status:     StatusClosed,
		Severity:   finding.SeverityInfo,
		Attributes: map[string]string{"fqdn": fqdn},
	}

	ip, ok := "", false
	if p.Resolver != nil {
		ip, ok = p.Resolver.LookupA(ctx, fqdn)
	}
	if !ok {
		if demo, found := p.Demo[task.Vector.Subject]; found {
			ip, ok = demo, true
			res.Attributes["source"] = "demo"
		}
	}
	if ok {
		res.Status = StatusOpen
		res.Evidence = ip
		res.Attributes["ip"] = ip
	}
	return res
}

func subdomainTool() *Tool {
	return &Tool{
		Name:        "subdomain",
		Title:       "Subdomain Finder",
		Description: "Enumerate common subdomains through DNS-over-HTTPS",
		Input:       InputDomain,
		catalog: func(Options) Catalog {
			return SubdomainCatalog()
		},
		policy: func(opts Options, p *Policy) {
			probe := &DoHProbe{}
			if !opts.Offline {
				probe.Resolver = opts.Lookup
			}
			if opts.Offline || opts.Demo {
				probe.Demo = DemoSubdomains
			}
			p.Probe = probe
			p.Summarize = func(s Summary) {
				active := 0
				for _, r := range s.Results {
					if r.Status == StatusOpen {
						active++
					}
				}
				s.Report.SetAttribute("candidates", strconv.Itoa(len(s.Results)))
				s.Report.SetAttribute("active", strconv.Itoa(active))
			}
		},
	}
}
