package cmd

import (
	"fmt"
	"strings"
)

// NotAuthenticatedError indicates a command that needs `auth login` first.
type NotAuthenticatedError struct {
	Action string
}

func (e *NotAuthenticatedError) Error() string {
	if e.Action == "" {
		return "not logged in (run `seca-suite auth login` first)"
	}
	return fmt.Sprintf("%s requires a session (run `seca-suite auth login` first)", e.Action)
}

// UnsupportedFormatError signals an unknown --format value.
type UnsupportedFormatError struct {
	Format  string
	Allowed []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q (use %s)", e.Format, strings.Join(e.Allowed, " or "))
}
