// Package session provides cookie-backed sessions for the guard layer.
//
// A Session is a token-addressed bag of data plus an optional bound user.
// The Manager composes a Store (memory, Redis, or Postgres) with a
// Transport (cookie or header) and handles creation, retrieval, rotation,
// and destruction; the guards only ever see the Store interface and the
// Session itself, which keeps them testable without HTTP plumbing.
//
// Tokens are rotated on every privilege transition. Concurrent requests
// from the same client are not serialized: the store applies
// last-write-wins on session updates.
package session
