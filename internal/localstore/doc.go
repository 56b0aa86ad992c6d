// Package localstore provides SQLite-backed key-value storage scoped by
// namespace, standing in for a browser's per-origin persistent storage.
//
// Two consumers use it:
//   - order history: the last ten OrderRecord snapshots as one JSON value
//   - cart persistence: the optional saved-cart variant
//
// Neither is authoritative. Callers treat every read failure as "nothing
// stored" and every write failure as a logged warning.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Use ":memory:" as the path for an isolated, throwaway store in tests.
package localstore
