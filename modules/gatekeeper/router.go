package gatekeeper

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/callcocam/gatekeeper/pkg/clientip"
	"github.com/callcocam/gatekeeper/pkg/scope"
	"github.com/callcocam/gatekeeper/pkg/session"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions wires the module into a host application. Sessions is
// required; TenantResolution is mounted when the host serves tenant
// routes by subdomain or path.
type RouterOptions struct {
	Auth             Mountable
	Sessions         *session.Manager
	TenantResolution func(http.Handler) http.Handler
}

// Router assembles the request pipeline the auth service depends on:
// client IP extraction, session loading, scope restoration, and optional
// tenant resolution, then mounts the service routes.
//
// Example:
//
//	svc := gatekeeper.NewService(cfg, orchestrator, sessions)
//	r := chi.NewRouter()
//	r.Mount("/", gatekeeper.Router(gatekeeper.RouterOptions{
//	    Auth:             svc,
//	    Sessions:         sessions,
//	    TenantResolution: tenant.Middleware(resolver, tenants),
//	}))
func Router(opts RouterOptions) chi.Router {
	if opts.Sessions == nil {
		panic("gatekeeper: RouterOptions.Sessions is required")
	}

	r := chi.NewRouter()
	r.Use(clientip.Middleware)
	r.Use(opts.Sessions.Middleware)
	r.Use(scope.Middleware)
	if opts.TenantResolution != nil {
		r.Use(opts.TenantResolution)
	}
	if opts.Auth != nil {
		r.Mount("/", opts.Auth.Handle())
	}
	return r
}
