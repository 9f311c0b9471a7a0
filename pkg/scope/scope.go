package scope

import "sync"

// DefaultTenantKey is the binding key used for the tenant identifier.
const DefaultTenantKey = "tenant_id"

// Binding is a single scoping constraint applied to tenant-scoped queries.
type Binding struct {
	Key   string
	Value string
}

// Scope holds the tenant scoping state for a single request.
//
// While enabled, every tenant-scoped query executed during the request must
// carry all registered bindings. An enabled scope with no bindings is a
// fail-closed state: queries must match nothing rather than everything.
//
// A Scope is created per request and carried through the request context,
// so cross-request leakage is impossible by construction. The mutex only
// guards against handlers that spawn goroutines sharing the request context.
type Scope struct {
	mu       sync.RWMutex
	enabled  bool
	bindings []Binding
}

// New creates a disabled scope with no bindings.
func New() *Scope {
	return &Scope{}
}

// Enable turns on tenant scoping. Idempotent.
func (s *Scope) Enable() {
	s.mu.Lock()
	s.enabled = true
	s.mu.Unlock()
}

// Disable turns off tenant scoping and is the only way to make an
// unbound scope a valid "no scoping needed" state. Idempotent.
func (s *Scope) Disable() {
	s.mu.Lock()
	s.enabled = false
	s.mu.Unlock()
}

// Enabled reports whether tenant scoping is active.
func (s *Scope) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// Bind registers a scoping constraint, overwriting any prior value
// registered under the same key.
func (s *Scope) Bind(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.bindings {
		if s.bindings[i].Key == key {
			s.bindings[i].Value = value
			return
		}
	}
	s.bindings = append(s.bindings, Binding{Key: key, Value: value})
}

// Unbind removes the constraint registered under key.
func (s *Scope) Unbind(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.bindings {
		if s.bindings[i].Key == key {
			s.bindings = append(s.bindings[:i], s.bindings[i+1:]...)
			return
		}
	}
}

// Has reports whether a constraint is registered under key.
func (s *Scope) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.bindings {
		if s.bindings[i].Key == key {
			return true
		}
	}
	return false
}

// Value returns the constraint value registered under key.
func (s *Scope) Value(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.bindings {
		if s.bindings[i].Key == key {
			return s.bindings[i].Value, true
		}
	}
	return "", false
}

// TenantID returns the value bound under DefaultTenantKey.
func (s *Scope) TenantID() (string, bool) {
	return s.Value(DefaultTenantKey)
}

// Bindings returns a copy of the registered constraints in registration order.
func (s *Scope) Bindings() []Binding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Binding, len(s.bindings))
	copy(out, s.bindings)
	return out
}

// Clear removes all bindings without changing the enabled flag.
func (s *Scope) Clear() {
	s.mu.Lock()
	s.bindings = nil
	s.mu.Unlock()
}

// Reset disables the scope and removes all bindings.
func (s *Scope) Reset() {
	s.mu.Lock()
	s.enabled = false
	s.bindings = nil
	s.mu.Unlock()
}
