// Package clientip extracts the client IP address from HTTP requests,
// honoring the usual proxy headers, and carries it through the request
// context. The audit trail requires the actor IP on every security event.
package clientip
