package cmd

import (
	"github.com/fatih/color"

	"github.com/khanhnv2901/seca-suite/internal/domain/finding"
	"github.com/khanhnv2901/seca-suite/internal/domain/panel"
)

var (
	colorSuccess  = color.New(color.FgGreen).SprintFunc()
	colorInfo     = color.New(color.FgCyan).SprintFunc()
	colorWarn     = color.New(color.FgYellow).SprintFunc()
	colorError    = color.New(color.FgRed).SprintFunc()
	colorCritical = color.New(color.FgRed, color.Bold).SprintFunc()
)

func formatSeverityWithColor(sev finding.Severity) string {
	label := sev.Title()
	switch sev {
	case finding.SeverityCritical:
		return colorCritical(label)
	case finding.SeverityHigh:
		return colorError(label)
	case finding.SeverityMedium:
		return colorWarn(label)
	case finding.SeverityLow:
		return colorInfo(label)
	default:
		return label
	}
}

func formatOutcomeWithColor(outcome finding.Outcome) string {
	if outcome.Positive() {
		return colorError(outcome.String())
	}
	return colorSuccess(outcome.String())
}

func formatPanelStateWithColor(state panel.State) string {
	switch state {
	case panel.StateReported:
		return colorSuccess(string(state))
	case panel.StateErrored:
		return colorError(string(state))
	case panel.StateScanning:
		return colorWarn(string(state))
	default:
		return string(state)
	}
}
