// Package constants centralizes defaults shared across the CLI, the API and
// the services.
//
// File permissions, the gate lockout policy and the resolver endpoint live
// here so cmd/ and internal/ agree on them without import cycles.
package constants
