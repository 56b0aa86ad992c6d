// Package testutil holds deterministic stand-ins for wall time, tab
// identity, and randomness so that scenario traces and composed order
// messages are reproducible.
package testutil
