// Package audit records the security event trail produced by the guard
// layer: login attempts and outcomes, logouts, context switches, and
// impersonation start/stop. Every event carries the actor, the target
// tenant, the session, and the client IP taken from the request context.
//
// Events flow through a Storage backend. SlogStorage (the default) folds
// the trail into the application's structured logs; MemoryStorage backs
// tests; WithAsyncBuffer decouples storage latency from request handling.
package audit
