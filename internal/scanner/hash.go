package scanner

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	"github.com/spaolacci/murmur3"
)

var hashAlgorithms = []struct {
	name   string
	length int
}{
	{"MD5", 32},
	{"SHA-1", 40},
	{"SHA-256", 64},
	{"SHA-512", 128},
}

// MockDigest returns a stable hex string of the requested length for input.
// It is a placeholder with the shape of a digest, not a cryptographic hash.
func MockDigest(algorithm, input string, length int) string {
	var b strings.Builder
	for seed := uint32(0); b.Len() < length; seed++ {
		h := murmur3.New64WithSeed(seed)
		_, _ = h.Write([]byte(algorithm))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(input))
		fmt.Fprintf(&b, "%016x", h.Sum64())
	}
	return b.String()[:length]
}

// HashCatalog has one vector per digest algorithm
func HashCatalog() Catalog {
	vectors := make([]Vector, len(hashAlgorithms))
	for i, alg := range hashAlgorithms {
		vectors[i] = Vector{
			ID:         alg.name,
			Subject:    alg.name,
			Category:   "digest",
			Severity:   finding.SeverityInfo,
			Attributes: map[string]string{"length": strconv.Itoa(alg.length)},
		}
	}
	return Catalog{
		Vectors:  vectors,
		Positive: finding.OutcomeMatch,
		Negative: finding.OutcomeNoMatch,
		Filtered: finding.OutcomeUnknown,
	}
}

// HashProbe computes mock digests of the target and compares them with an
// expected value. Without a comparison value every result is Filtered.
type HashProbe struct {
	Compare string
}

func (p *HashProbe) Probe(ctx context.Context, task Task) Result {
	if err := ctx.Err(); err != nil {
		return errorResult(task, err)
	}
	length, _ := strconv.Atoi(task.Vector.Attributes["length"])
	digest := MockDigest(task.Vector.ID, task.Target, length)

	res := Result{
		Task:       task,
		Status:     StatusFiltered,
		Severity:   finding.SeverityInfo,
		Evidence:   digest,
		Attributes: map[string]string{"digest": digest},
	}
	if p.Compare == "" {
		return res
	}
	if strings.EqualFold(strings.TrimSpace(p.Compare), digest) {
		res.Status = StatusOpen
	} else {
		res.Status = StatusClosed
	}
	return res
}

// FileIntegrity draws the integrity verdict shown for an analyzed file
func FileIntegrity(seed uint32, name string) string {
	key := "integrity|" + name
	switch {
	case Draw(seed, key, "verified") > 0.7:
		return "verified"
	case Draw(seed, key, "compromised") > 0.5:
		return "compromised"
	default:
		return "unknown"
	}
}

func hashTool() *Tool {
	return &Tool{
		Name:         "hash",
		Title:        "Hash Analyzer",
		Description:  "Compute digests of text or a file and compare against a known value",
		Input:        InputText,
		DefaultDelay: time.Second,
		catalog: func(Options) Catalog {
			return HashCatalog()
		},
		policy: func(opts Options, p *Policy) {
			p.Probe = &HashProbe{Compare: opts.Compare}
			p.IncludeNegative = true
			if opts.FileMode {
				if opts.Delay == nil {
					p.Delay = 2 * time.Second
				}
				p.Summarize = func(s Summary) {
					s.Report.SetAttribute("filename", s.Target)
					s.Report.SetAttribute("size", strconv.FormatInt(opts.FileSize, 10))
					s.Report.SetAttribute("integrity", FileIntegrity(s.Seed, s.Target))
				}
			}
		},
	}
}
