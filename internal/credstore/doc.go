// Package credstore persists OAuth credentials keyed by (user, provider).
//
// Three backends implement the Store interface: an in-memory map for
// tests and single-process development, SQLite (pure Go, no cgo) for
// single-node deployments, and PostgreSQL for deployments where several
// agenthub instances share one credential table. Writes are upserts; at
// most one credential row exists per (user, provider) pair.
package credstore
