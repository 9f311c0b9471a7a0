package session

import "net/http"

// Middleware ensures every request carries a session in its context.
// Guard operations downstream read and mutate this session; their writes
// go through the store synchronously, so the next request from the same
// client observes a consistent context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.Ensure(r.Context(), w, r)
		if err != nil {
			http.Error(w, "Session error", http.StatusInternalServerError)
			return
		}

		ctx := WithSession(r.Context(), session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
