package scanner

import (
	"fmt"
	"strconv"
	"time"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
)

type servicePort struct {
	port      int
	service   string
	banner    string
	vuln      string
	severity  finding.Severity
	condition float64
}

// The banner and vulnerability mapping is illustrative: it describes what a
// typical exposed service looks like, not what a real probe would detect.
var commonPorts = []servicePort{
	{21, "FTP", "vsftpd 3.0.3", "Anonymous FTP access enabled", finding.SeverityMedium, 0.2},
	{22, "SSH", "OpenSSH 7.4", "Weak SSH configuration detected", finding.SeverityLow, 0.1},
	{23, "Telnet", "Linux telnetd", "Telnet service running (unencrypted)", finding.SeverityHigh, 1},
	{25, "SMTP", "", "", finding.SeverityInfo, 0},
	{53, "DNS", "", "", finding.SeverityInfo, 0},
	{80, "HTTP", "Apache/2.4.41", "Server version disclosure", finding.SeverityLow, 0.2},
	{110, "POP3", "", "", finding.SeverityInfo, 0},
	{143, "IMAP", "", "", finding.SeverityInfo, 0},
	{443, "HTTPS", "nginx/1.18.0", "", finding.SeverityInfo, 0},
	{993, "IMAPS", "", "", finding.SeverityInfo, 0},
	{995, "POP3S", "", "", finding.SeverityInfo, 0},
	{3389, "RDP", "Microsoft Terminal Services", "RDP exposed to internet", finding.SeverityHigh, 0.3},
	{5432, "PostgreSQL", "", "", finding.SeverityInfo, 0},
	{3306, "MySQL", "MySQL 8.0.25", "Database exposed to internet", finding.SeverityHigh, 0.2},
	{1433, "MSSQL", "", "", finding.SeverityInfo, 0},
	{6379, "Redis", "", "", finding.SeverityInfo, 0},
	{27017, "MongoDB", "", "", finding.SeverityInfo, 0},
	{8080, "HTTP-Alt", "", "", finding.SeverityInfo, 0},
	{8443, "HTTPS-Alt", "", "", finding.SeverityInfo, 0},
	{9200, "Elasticsearch", "", "", finding.SeverityInfo, 0},
}

// PortCatalog returns the common port list, plus 8000-8049 when full is set
func PortCatalog(full bool) Catalog {
	ports := commonPorts
	if full {
		ports = make([]servicePort, 0, len(commonPorts)+50)
		ports = append(ports, commonPorts...)
		for p := 8000; p < 8050; p++ {
			ports = append(ports, servicePort{port: p, service: fmt.Sprintf("Service-%d", p), severity: finding.SeverityInfo})
		}
	}

	vectors := make([]Vector, 0, len(ports))
	for _, p := range ports {
		vectors = append(vectors, Vector{
			ID:        strconv.Itoa(p.port),
			Subject:   strconv.Itoa(p.port),
			Category:  p.service,
			Severity:  p.severity,
			Evidence:  p.vuln,
			Banner:    p.banner,
			Condition: p.condition,
			Attributes: map[string]string{
				"port":    strconv.Itoa(p.port),
				"service": p.service,
			},
		})
	}

	return Catalog{
		Vectors:       vectors,
		Positive:      finding.OutcomeOpen,
		Negative:      finding.OutcomeClosed,
		SplitNegative: true,
	}
}

func portsTool() *Tool {
	return &Tool{
		Name:         "ports",
		Title:        "Port Scanner",
		Description:  "Scan common service ports and flag risky exposures",
		Input:        InputHost,
		DefaultDelay: 3 * time.Second,
		Probability:  0.3,
		catalog: func(opts Options) Catalog {
			return PortCatalog(opts.Full)
		},
		policy: func(opts Options, p *Policy) {
			p.Summarize = func(s Summary) {
				open := 0
				for _, r := range s.Results {
					if r.Status == StatusOpen {
						open++
					}
				}
				s.Report.SetAttribute("total_ports", strconv.Itoa(len(s.Results)))
				s.Report.SetAttribute("open_ports", strconv.Itoa(open))
				s.Report.SetAttribute("scan_time_ms", strconv.FormatInt((p.Delay+s.Elapsed).Milliseconds(), 10))
			}
		},
	}
}
