package tenant

import (
	"net"
	"net/http"
	"slices"
	"strings"
)

// Resolver extracts a tenant identifier (slug) from an HTTP request.
// Empty identifier with nil error means "this strategy has no opinion".
type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(r *http.Request) (string, error)

func (f ResolverFunc) Resolve(r *http.Request) (string, error) {
	return f(r)
}

// reservedSubdomains are host labels that never identify a tenant.
var reservedSubdomains = []string{"www", "api"}

// reservedSegments are first path segments that never identify a tenant.
var reservedSegments = []string{"api", "admin", "landlord", "auth", "login", "register", "dashboard"}

// SubdomainResolver resolves the tenant slug from the first host label.
//
// A label listed in LandlordDomains stops resolution entirely (the request
// belongs to the operator, not a tenant) by returning ErrLandlordHost.
// A label in TenantDomains, or any non-reserved label on a subdomain host,
// is treated as the tenant slug.
type SubdomainResolver struct {
	LandlordDomains []string
	TenantDomains   []string
}

// NewSubdomainResolver creates a subdomain resolver.
func NewSubdomainResolver(landlordDomains, tenantDomains []string) *SubdomainResolver {
	return &SubdomainResolver{
		LandlordDomains: landlordDomains,
		TenantDomains:   tenantDomains,
	}
}

func (res *SubdomainResolver) Resolve(r *http.Request) (string, error) {
	host := r.Host
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}

	// IP hosts carry no tenant label.
	if net.ParseIP(host) != nil {
		return "", nil
	}

	parts := strings.Split(host, ".")
	if len(parts) == 0 || parts[0] == "" {
		return "", nil
	}

	label := strings.ToLower(parts[0])

	if slices.Contains(res.LandlordDomains, label) {
		return "", ErrLandlordHost
	}

	if slices.Contains(res.TenantDomains, label) {
		return label, nil
	}

	// A bare domain.tld has no subdomain to read.
	if len(parts) < 3 {
		return "", nil
	}

	if slices.Contains(reservedSubdomains, label) {
		return "", nil
	}

	return label, nil
}

// PathResolver resolves the tenant slug from the request path:
// "/tenant/{slug}" takes priority, otherwise the first segment is used
// unless it names a reserved system route.
type PathResolver struct {
	Reserved []string
}

// NewPathResolver creates a path resolver with the default reserved routes.
func NewPathResolver() *PathResolver {
	return &PathResolver{Reserved: reservedSegments}
}

func (res *PathResolver) Resolve(r *http.Request) (string, error) {
	path := strings.Trim(r.URL.Path, "/")
	if path == "" {
		return "", nil
	}

	segments := strings.Split(path, "/")

	if segments[0] == "tenant" {
		if len(segments) > 1 && segments[1] != "" {
			return segments[1], nil
		}
		return "", nil
	}

	first := strings.ToLower(segments[0])
	reserved := res.Reserved
	if reserved == nil {
		reserved = reservedSegments
	}
	if slices.Contains(reserved, first) {
		return "", nil
	}

	return first, nil
}

// ParamResolver resolves the tenant slug from an explicit request
// parameter (query string or form body).
type ParamResolver struct {
	Name string
}

// NewParamResolver creates a parameter resolver.
// An empty name falls back to "tenant".
func NewParamResolver(name string) *ParamResolver {
	if name == "" {
		name = "tenant"
	}
	return &ParamResolver{Name: name}
}

func (res *ParamResolver) Resolve(r *http.Request) (string, error) {
	if v := r.URL.Query().Get(res.Name); v != "" {
		return v, nil
	}
	if err := r.ParseForm(); err == nil {
		if v := r.PostForm.Get(res.Name); v != "" {
			return v, nil
		}
	}
	return "", nil
}

// ChainResolver tries resolvers in order; the first non-empty identifier
// wins. ErrLandlordHost from any step aborts the chain: later strategies
// must not re-capture a request already claimed by the landlord host.
type ChainResolver struct {
	Resolvers []Resolver
}

// NewChainResolver creates a chain over the given resolvers.
func NewChainResolver(resolvers ...Resolver) *ChainResolver {
	return &ChainResolver{Resolvers: resolvers}
}

func (c *ChainResolver) Resolve(r *http.Request) (string, error) {
	for _, res := range c.Resolvers {
		id, err := res.Resolve(r)
		if err != nil {
			return "", err
		}
		if id != "" {
			return id, nil
		}
	}
	return "", nil
}

// ResolutionConfig selects which strategies participate in resolution.
type ResolutionConfig struct {
	SubdomainDetection bool
	PathDetection      bool
	LandlordDomains    []string
	TenantDomains      []string
	TenantParameter    string
}

// NewRequestResolver builds the standard resolution chain:
// subdomain, then path, then explicit parameter.
func NewRequestResolver(cfg ResolutionConfig) Resolver {
	var resolvers []Resolver
	if cfg.SubdomainDetection {
		resolvers = append(resolvers, NewSubdomainResolver(cfg.LandlordDomains, cfg.TenantDomains))
	}
	if cfg.PathDetection {
		resolvers = append(resolvers, NewPathResolver())
	}
	resolvers = append(resolvers, NewParamResolver(cfg.TenantParameter))
	return NewChainResolver(resolvers...)
}
