package scanner

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/cve"
	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
)

// CVEFeedSize is the number of records in the mock feed
const CVEFeedSize = 20

var (
	cveVendors    = []string{"Apache", "Microsoft", "Google", "Oracle", "Adobe", "Cisco", "VMware", "WordPress", "OpenSSL", "Linux"}
	cveProducts   = []string{"HTTP Server", "Windows", "Chrome", "Database", "Acrobat", "IOS", "vSphere", "Core", "Library", "Kernel"}
	cveSeverities = []finding.Severity{finding.SeverityCritical, finding.SeverityHigh, finding.SeverityMedium, finding.SeverityLow}
)

func cveScore(sev finding.Severity, r float64) float64 {
	var score float64
	switch sev {
	case finding.SeverityCritical:
		score = 9 + r
	case finding.SeverityHigh:
		score = 7 + 2*r
	case finding.SeverityMedium:
		score = 4 + 3*r
	default:
		score = 4 * r
	}
	return math.Round(score*10) / 10
}

// GenerateCVEFeed builds the mock vulnerability feed. The same seed and now
// yield the same records.
func GenerateCVEFeed(seed uint32, now time.Time) []cve.Record {
	records := make([]cve.Record, 0, CVEFeedSize)
	for i := 0; i < CVEFeedSize; i++ {
		key := "cve|" + strconv.Itoa(i)
		sev := cveSeverities[DrawInt(seed, key, "severity", len(cveSeverities))]
		vendor := cveVendors[DrawInt(seed, key, "vendor", len(cveVendors))]
		product := cveProducts[DrawInt(seed, key, "product", len(cveProducts))]

		impact := "remote code execution"
		if Draw(seed, key, "impact") >= 0.5 {
			impact = "privilege escalation"
		}
		vector := "buffer overflow"
		if Draw(seed, key, "vector") >= 0.5 {
			vector = "input validation bypass"
		}

		id := fmt.Sprintf("CVE-2024-%04d", DrawInt(seed, key, "id", 9999))
		records = append(records, cve.Record{
			ID:       id,
			Severity: sev,
			Score:    cveScore(sev, Draw(seed, key, "score")),
			Vendor:   vendor,
			Product:  product,
			Description: fmt.Sprintf("%s vulnerability in %s %s allowing %s through %s",
				strings.ToLower(sev.Title()), vendor, product, impact, vector),
			PublishedDate: now.Add(-time.Duration(Draw(seed, key, "published") * float64(7*24*time.Hour))).Truncate(time.Second),
			LastModified:  now.Add(-time.Duration(Draw(seed, key, "modified") * float64(24*time.Hour))).Truncate(time.Second),
			References: []string{
				fmt.Sprintf("https://%s.com/security/", strings.ToLower(vendor)),
				"https://nvd.nist.gov/vuln/detail/" + id,
			},
			ExploitAvailable: Draw(seed, key, "exploit") < 0.3,
			Trending:         Draw(seed, key, "trending") < 0.2,
		})
	}
	return records
}

// CVEProbe reports feed records as findings
type CVEProbe struct {
	Records map[string]cve.Record
}

func (p *CVEProbe) Probe(ctx context.Context, task Task) Result {
	if err := ctx.Err(); err != nil {
		return errorResult(task, err)
	}
	rec, ok := p.Records[task.Vector.ID]
	if !ok {
		return errorResult(task, fmt.Errorf("record %s not in feed", task.Vector.ID))
	}
	return Result{
		Task:     task,
		Status:   StatusOpen,
		Severity: rec.Severity,
		Evidence: rec.Description,
		Attributes: map[string]string{
			"score":             strconv.FormatFloat(rec.Score, 'f', -1, 64),
			"vendor":            rec.Vendor,
			"product":           rec.Product,
			"published":         rec.PublishedDate.Format("2006-01-02"),
			"exploit_available": strconv.FormatBool(rec.ExploitAvailable),
			"trending":          strconv.FormatBool(rec.Trending),
		},
	}
}

func cveFilter(target string, opts Options) cve.Filter {
	search := target
	if search == "*" {
		search = ""
	}
	return cve.Filter{Search: search, Severity: opts.Severity, Vendor: opts.Vendor}
}

func cveTool() *Tool {
	feed := func(opts Options) []cve.Record {
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		return GenerateCVEFeed(opts.Seed, now)
	}

	return &Tool{
		Name:         "cve",
		Title:        "CVE Dashboard",
		Description:  "Search the recent vulnerability feed",
		Input:        InputOptional,
		DefaultDelay: 1500 * time.Millisecond,
		catalog: func(opts Options) Catalog {
			records := feed(opts)
			vectors := make([]Vector, 0, len(records))
			for i, rec := range records {
				vectors = append(vectors, Vector{
					ID:       fmt.Sprintf("%s#%d", rec.ID, i),
					Subject:  rec.ID,
					Category: rec.Vendor + " " + rec.Product,
					Severity: rec.Severity,
				})
			}
			return Catalog{Vectors: vectors, Positive: finding.OutcomeMatch, Negative: finding.OutcomeNoMatch}
		},
		policy: func(opts Options, p *Policy) {
			records := feed(opts)
			byID := make(map[string]cve.Record, len(records))
			for i, rec := range records {
				byID[fmt.Sprintf("%s#%d", rec.ID, i)] = rec
			}
			probe := &CVEProbe{Records: byID}
			p.Probe = ProbeFunc(func(ctx context.Context, task Task) Result {
				res := probe.Probe(ctx, task)
				if res.Status == StatusOpen && !cveFilter(task.Target, opts).Matches(byID[task.Vector.ID]) {
					res.Status = StatusClosed
				}
				return res
			})
			p.Summarize = func(s Summary) {
				matched := cveFilter(s.Target, opts).Apply(records)
				stats := cve.Stats(matched)
				s.Report.SetAttribute("matched", strconv.Itoa(len(matched)))
				for _, sev := range cveSeverities {
					s.Report.SetAttribute("count."+sev.String(), strconv.Itoa(stats[sev]))
				}
			}
		},
	}
}
