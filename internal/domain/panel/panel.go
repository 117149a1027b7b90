package panel

import (
	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	sharedErrors "github.com/khanhnv2901/seca-suite/internal/shared/errors"
)

// State is the view state of one tool panel
type State string

const (
	StateIdle     State = "idle"
	StateScanning State = "scanning"
	StateReported State = "reported"
	StateErrored  State = "errored"
)

// Panel owns the outstanding scan and last report of one tool. At most one
// scan is outstanding; a result that arrives after Cancel is discarded.
type Panel struct {
	tool       string
	state      State
	report     *finding.Report
	message    string
	generation uint64
}

// New creates an idle panel for a tool
func New(tool string) *Panel {
	return &Panel{tool: tool, state: StateIdle}
}

// Begin starts a scan and returns a ticket identifying it. The previous
// report is discarded.
func (p *Panel) Begin() (uint64, error) {
	if p.state == StateScanning {
		return 0, sharedErrors.ErrScanInProgress
	}
	p.generation++
	p.state = StateScanning
	p.report = nil
	p.message = ""
	return p.generation, nil
}

// Reject records a validation failure. The panel never enters Scanning.
func (p *Panel) Reject(message string) error {
	if p.state == StateScanning {
		return sharedErrors.ErrScanInProgress
	}
	p.state = StateErrored
	p.report = nil
	p.message = message
	return nil
}

// Complete stores the report for the given ticket. It returns false when the
// ticket is stale, in which case the report is dropped.
func (p *Panel) Complete(ticket uint64, report *finding.Report) bool {
	if !p.current(ticket) {
		return false
	}
	p.state = StateReported
	p.report = report
	return true
}

// Fail moves an outstanding scan to Errored
func (p *Panel) Fail(ticket uint64, message string) bool {
	if !p.current(ticket) {
		return false
	}
	p.state = StateErrored
	p.message = message
	return true
}

// Cancel abandons the outstanding scan and returns the panel to Idle.
func (p *Panel) Cancel() {
	if p.state != StateScanning {
		return
	}
	p.generation++
	p.state = StateIdle
	p.report = nil
}

// Abandon is Cancel for one ticket. A stale ticket leaves the panel alone.
func (p *Panel) Abandon(ticket uint64) bool {
	if !p.current(ticket) {
		return false
	}
	p.Cancel()
	return true
}

func (p *Panel) current(ticket uint64) bool {
	return p.state == StateScanning && ticket == p.generation
}

func (p *Panel) Tool() string {
	return p.tool
}

func (p *Panel) State() State {
	return p.state
}

func (p *Panel) Report() *finding.Report {
	return p.report
}

func (p *Panel) Message() string {
	return p.message
}

// Snapshot is a copyable view of a panel
type Snapshot struct {
	Tool     string `json:"tool"`
	State    State  `json:"state"`
	ReportID string `json:"report_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Snapshot captures the current view state
func (p *Panel) Snapshot() Snapshot {
	snap := Snapshot{Tool: p.tool, State: p.state, Message: p.message}
	if p.report != nil {
		snap.ReportID = p.report.ID()
	}
	return snap
}
