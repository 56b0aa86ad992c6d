// Package imagestore is the tab-local authoritative map from product ID to
// image payload.
//
// # Mutation and Notification
//
// The map changes only through Set and Delete. Each successful mutation
// notifies every subscriber synchronously, in registration order, before
// the mutating call returns. A subscriber observing an Event is guaranteed
// the store already reflects it: Get from inside a listener returns the
// new value.
//
// A listener that panics is recovered and logged; delivery continues with
// the next listener. Listeners must not call Set or Delete themselves.
//
// # Seeding
//
// Init fills the map from catalog image references. Seeding never
// overwrites an existing entry, so re-running Init after an upload keeps
// the uploaded image instead of clobbering it with stale static data.
//
// # Replication
//
// The store knows nothing about other tabs. Package tabsync wraps Set and
// Delete with helpers that also broadcast, and applies remote events by
// calling the same Set and Delete.
package imagestore
