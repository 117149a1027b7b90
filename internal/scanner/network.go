package scanner

import (
	"context"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
)

type networkNode struct {
	id       string
	offset   int
	hostname string
	kind     string
	online   bool
	ports    []int
	os       string
	services []string
	vulns    int
}

// Mock topology. The router at offset 1 links directly to every other node.
var mockTopology = []networkNode{
	{"1", 1, "router.local", "router", true, []int{22, 80, 443}, "Linux", []string{"SSH", "HTTP", "HTTPS"}, 0},
	{"2", 10, "server01.local", "server", true, []int{22, 80, 443, 3306}, "Ubuntu 20.04", []string{"SSH", "Apache", "MySQL"}, 2},
	{"3", 15, "workstation01", "workstation", true, []int{135, 139, 445}, "Windows 10", []string{"RPC", "NetBIOS", "SMB"}, 1},
	{"4", 20, "printer01", "printer", true, []int{80, 515, 631}, "", []string{"HTTP", "LPD", "IPP"}, 3},
	{"5", 25, "", "unknown", false, nil, "", nil, 0},
}

func nodeSeverity(vulns int) finding.Severity {
	switch {
	case vulns > 2:
		return finding.SeverityHigh
	case vulns > 0:
		return finding.SeverityMedium
	default:
		return finding.SeverityInfo
	}
}

// NodeAddress places a host offset inside prefix, wrapping for small networks.
func NodeAddress(prefix netip.Prefix, offset int) netip.Addr {
	hostBits := prefix.Addr().BitLen() - prefix.Bits()
	if hostBits < 31 {
		size := 1 << hostBits
		offset %= size
	}
	addr := prefix.Masked().Addr()
	for i := 0; i < offset; i++ {
		addr = addr.Next()
	}
	return addr
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// NetworkCatalog has one vector per discovered node
func NetworkCatalog() Catalog {
	vectors := make([]Vector, len(mockTopology))
	for i, n := range mockTopology {
		attrs := map[string]string{
			"node_id":         n.id,
			"type":            n.kind,
			"vulnerabilities": strconv.Itoa(n.vulns),
			"offset":          strconv.Itoa(n.offset),
		}
		if n.hostname != "" {
			attrs["hostname"] = n.hostname
		}
		if n.os != "" {
			attrs["os"] = n.os
		}
		if len(n.ports) > 0 {
			attrs["ports"] = joinInts(n.ports)
			attrs["services"] = strings.Join(n.services, ",")
		}
		if n.id != "1" {
			attrs["connected_to"] = "1"
		}
		vectors[i] = Vector{
			ID:         n.id,
			Subject:    n.id,
			Category:   n.kind,
			Severity:   nodeSeverity(n.vulns),
			Attributes: attrs,
		}
		if n.vulns > 0 {
			vectors[i].Evidence = fmt.Sprintf("%d known vulnerabilities", n.vulns)
		}
	}
	return Catalog{
		Vectors:  vectors,
		Positive: finding.OutcomeOnline,
		Negative: finding.OutcomeOffline,
	}
}

// TopologyProbe resolves nodes of the mock topology inside the scanned prefix
type TopologyProbe struct{}

func (TopologyProbe) Probe(ctx context.Context, task Task) Result {
	if err := ctx.Err(); err != nil {
		return errorResult(task, err)
	}
	prefix, err := netip.ParsePrefix(task.Target)
	if err != nil {
		return errorResult(task, err)
	}

	offset, _ := strconv.Atoi(task.Vector.Attributes["offset"])
	ip := NodeAddress(prefix, offset).String()
	res := Result{
		Task:       task,
		Status:     StatusClosed,
		Severity:   finding.SeverityInfo,
		Evidence:   task.Vector.Evidence,
		Attributes: map[string]string{"ip": ip},
	}
	for _, n := range mockTopology {
		if n.id == task.Vector.ID && n.online {
			res.Status = StatusOpen
			res.Severity = task.Vector.Severity
		}
	}
	return res
}

func networkTool() *Tool {
	return &Tool{
		Name:         "network",
		Title:        "Network Mapper",
		Description:  "Discover hosts and links inside a network range",
		Input:        InputCIDR,
		DefaultDelay: 4 * time.Second,
		catalog: func(Options) Catalog {
			return NetworkCatalog()
		},
		policy: func(_ Options, p *Policy) {
			p.Probe = TopologyProbe{}
			p.IncludeNegative = true
			p.Summarize = func(s Summary) {
				online, offline := 0, 0
				edges := make([]string, 0, len(s.Results))
				for _, r := range s.Results {
					if r.Status == StatusOpen {
						online++
					} else {
						offline++
					}
					if peer := r.Task.Vector.Attributes["connected_to"]; peer != "" {
						edges = append(edges, peer+"-"+r.Task.Vector.ID)
					}
				}
				s.Report.SetAttribute("nodes_online", strconv.Itoa(online))
				s.Report.SetAttribute("nodes_offline", strconv.Itoa(offline))
				s.Report.SetAttribute("edges", strings.Join(edges, ","))
			}
		},
	}
}
