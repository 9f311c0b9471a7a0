package tenant

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/callcocam/gatekeeper/pkg/scope"
)

// Middleware resolves the tenant for each request and, when one is found,
// binds it into the request context and the request scope.
//
// Requests that resolve no tenant continue unchanged: landlord routes and
// public pages share the same pipeline. A resolved identifier that matches
// no active tenant is a hard failure handled by the error handler.
func Middleware(resolver Resolver, provider Provider, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		cache:         NewInMemoryCache(),
		cacheTTL:      5 * time.Minute,
		errorHandler:  defaultErrorHandler,
		requireActive: true,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			identifier, err := resolver.Resolve(r)
			if err != nil {
				// The landlord host claims the request; no tenant, no error.
				if errors.Is(err, ErrLandlordHost) {
					next.ServeHTTP(w, r)
					return
				}
				cfg.errorHandler(w, r, err)
				return
			}

			if identifier == "" {
				next.ServeHTTP(w, r)
				return
			}

			t, cached := cfg.cache.Get(r.Context(), identifier)
			if !cached {
				t, err = provider.GetBySlug(r.Context(), identifier)
				if err != nil && errors.Is(err, ErrTenantNotFound) {
					// A slug may also be a custom domain label.
					t, err = provider.GetByDomain(r.Context(), identifier)
				}
				if err != nil {
					cfg.logger.DebugContext(r.Context(), "tenant resolution failed",
						slog.String("identifier", identifier),
						slog.Any("error", err))
					cfg.errorHandler(w, r, err)
					return
				}
				cfg.cache.Set(r.Context(), identifier, t, cfg.cacheTTL)
			}

			if cfg.requireActive && !t.IsActive() {
				cfg.errorHandler(w, r, ErrInactiveTenant)
				return
			}

			ctx := WithTenant(r.Context(), t)
			if sc, ok := scope.FromContext(ctx); ok {
				sc.Enable()
				sc.Bind(scope.DefaultTenantKey, t.ID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenant ensures a tenant is present in the context.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t, ok := FromContext(r.Context())
			if !ok || t == nil {
				errorHandler(w, r, ErrNoTenantInContext)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
