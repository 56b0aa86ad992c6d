// Package clock provides the two notions of time used by a page session.
//
// Wall time (Clock) stamps order records, composed messages, sync events,
// and upload filenames. Production code injects Real(); tests inject a fixed
// clock from internal/testutil so composed output is byte-identical across
// runs.
//
// Logical time (Sequence) orders sync events emitted by one tab. It is a
// strictly increasing counter and is only meaningful within the tab that
// produced it. Receivers never compare sequences from different origins:
// cross-tab conflict policy is last-write-wins by arrival order.
package clock
