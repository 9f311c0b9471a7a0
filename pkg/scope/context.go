package scope

import "context"

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// WithScope adds a scope to the context.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext retrieves the scope from the context.
// Returns nil, false if no scope is present.
func FromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(contextKey{}).(*Scope)
	return s, ok
}

// MustFromContext retrieves the scope from the context.
// Panics if no scope is present. Use only below the scope middleware.
func MustFromContext(ctx context.Context) *Scope {
	s, ok := FromContext(ctx)
	if !ok || s == nil {
		panic("scope: no scope in context")
	}
	return s
}
