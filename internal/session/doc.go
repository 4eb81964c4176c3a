// Package session persists verification sessions in SQLite and enforces
// their lifecycle.
//
// The Store owns id generation, serialization, and TTL assignment. State
// transitions (pending -> processing -> completed | failed) are enforced by
// conditional updates so the legality check and the write are a single
// atomic statement; attempts to move a session out of a terminal state are
// logged no-ops rather than errors. The backing store has no native
// expiry, so the TTL contract is preserved two ways: reads treat expired
// rows as not-found, and a periodic sweep deletes them.
//
// Treat this package as the single source of truth for session semantics.
package session
