// Package tabsync replicates image store mutations between page sessions.
//
// Each session ("tab") owns one Sync. The Sync wraps a broadcast Channel
// shared by every tab on the same origin and applies remote events to its
// local imagestore.Store.
//
// # State Machine
//
//	Uninitialized --Init--> Listening --Close--> Closed
//	      |
//	      +---Init (no transport)--> Disabled --Close--> Closed
//
// A Disabled Sync is inert: the local store keeps working and every
// broadcast is dropped.
//
// # Echo Suppression
//
// Only the explicit helpers UpdateImage, DeleteImage, and RequestSync
// broadcast. Remote events are applied through the same store Set and
// Delete calls a local mutation uses, and applying them never broadcasts.
// The single exception is a SyncRequest, which is answered with a
// SyncResponse carrying the full image map. Only the requester applies
// the response; last write by arrival order wins.
//
// # Delivery
//
// Channels hand inbound messages to the Sync, which queues them in an
// unbounded FIFO inbox. Run drains the inbox on a single goroutine so
// remote events are applied one at a time. Drain processes whatever is
// queued without blocking, for callers that drive delivery themselves.
//
// # Failures
//
// Transport failures never reach callers that only asked to mutate local
// state. They are logged as *TransportUnavailableError and counted in
// Stats.Dropped.
package tabsync
