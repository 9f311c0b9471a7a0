package scope

import "net/http"

// Middleware seeds every request with a fresh, disabled scope.
// It must run before any middleware or handler that binds tenants.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithScope(r.Context(), New())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
