// Package scanner turns a target and a catalog of test vectors into a
// finding.Report.
//
// Every catalog entry (crossed with the catalog parameters) becomes a Task.
// The Runner executes tasks through a Probe with bounded concurrency, a rate
// limit and a per-probe timeout. The Generator maps probe results onto
// findings and finalizes the report.
//
// The built-in tools are mock panels: their probes draw outcomes from a
// seeded murmur3 hash of the task key instead of touching the network, so a
// fixed seed always reproduces the same report. The subdomain tool is the
// exception and resolves names through DNS-over-HTTPS unless run offline.
package scanner
