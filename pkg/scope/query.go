package scope

// Query is the hook honored by tenant-scoped storage layers.
// Apply never executes anything itself; it only narrows the query.
type Query interface {
	// Where adds an equality constraint to the query.
	Where(column, value string) Query

	// Never makes the query match nothing. Used for the fail-closed path.
	Never() Query
}

// Apply narrows q according to the scope state:
//   - disabled: q is returned untouched
//   - enabled with bindings: every binding becomes a Where constraint
//   - enabled without bindings: q.Never() — fail closed, never open
func (s *Scope) Apply(q Query) Query {
	s.mu.RLock()
	enabled := s.enabled
	bindings := make([]Binding, len(s.bindings))
	copy(bindings, s.bindings)
	s.mu.RUnlock()

	if !enabled {
		return q
	}
	if len(bindings) == 0 {
		return q.Never()
	}

	for _, b := range bindings {
		q = q.Where(b.Key, b.Value)
	}
	return q
}
