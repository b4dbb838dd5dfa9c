// Package metrics provides the instrumentation interfaces used throughout the
// fixture. All metrics are safe for concurrent use.
//
// Label values are given as alternating keys and values, for example
//
//	duration.With("method", "add", "success", "true").Observe(took)
//
// Backends live in the subpackages: discard for no-op defaults, generic for
// in-memory values read back by tests and the fixture, and prometheus for the
// command's /metrics endpoint.
package metrics
