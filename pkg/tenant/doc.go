// Package tenant provides the tenant entity, data-source interface, and
// request resolution for multi-tenant routing.
//
// Resolution is deterministic and first-match-wins: subdomain, then path,
// then an explicit request parameter. A host label that belongs to the
// landlord stops resolution entirely, and reserved labels ("www", "api")
// and system route segments ("admin", "auth", ...) are never captured as
// tenant slugs.
//
//	resolver := tenant.NewRequestResolver(tenant.ResolutionConfig{
//		SubdomainDetection: true,
//		PathDetection:      true,
//		LandlordDomains:    []string{"admin", "app"},
//		TenantParameter:    "tenant",
//	})
//	router.Use(tenant.Middleware(resolver, provider,
//		tenant.WithCacheTTL(10*time.Minute),
//	))
//
// When the middleware resolves a tenant it stores the record in the request
// context and binds the tenant id into the request scope, so every
// tenant-scoped query downstream is filtered automatically.
package tenant
