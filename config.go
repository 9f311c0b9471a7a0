package gatekeeper

import (
	"time"

	authapi "github.com/callcocam/gatekeeper/modules/gatekeeper"

	"github.com/callcocam/gatekeeper/pkg/config"
	"github.com/callcocam/gatekeeper/pkg/session"
	"github.com/callcocam/gatekeeper/pkg/tenant"
	"github.com/callcocam/gatekeeper/pkg/throttle"
)

// ResolutionConfig selects how incoming requests are mapped to tenants.
type ResolutionConfig struct {
	// Enabled turns URL-based detection off entirely; only the explicit
	// request parameter resolves a tenant then.
	Enabled            bool     `env:"GATEKEEPER_URL_RESOLUTION" envDefault:"true"`
	SubdomainDetection bool     `env:"GATEKEEPER_SUBDOMAIN_DETECTION" envDefault:"true"`
	PathDetection      bool     `env:"GATEKEEPER_PATH_DETECTION" envDefault:"false"`
	LandlordDomains    []string `env:"GATEKEEPER_LANDLORD_DOMAINS" envSeparator:","`
	TenantDomains      []string `env:"GATEKEEPER_TENANT_DOMAINS" envSeparator:","`
	TenantParameter    string   `env:"GATEKEEPER_TENANT_PARAMETER" envDefault:"tenant"`
}

// CacheConfig controls the resolved-tenant cache sitting in front of the
// tenant provider.
type CacheConfig struct {
	Enabled bool          `env:"GATEKEEPER_CACHE_ENABLED" envDefault:"true"`
	TTL     time.Duration `env:"GATEKEEPER_CACHE_TTL" envDefault:"5m"`
}

// Config aggregates every tunable of the facade. Load it with
// config.Load[gatekeeper.Config]() or fill it in directly.
type Config struct {
	Session    session.Config
	HTTP       authapi.Config
	Resolution ResolutionConfig
	Cache      CacheConfig
	Throttle   throttle.Config
}

// LoadConfig reads the configuration from the environment, falling back
// to the documented defaults for unset variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfig returns the configuration a zero-setup deployment uses.
func DefaultConfig() Config {
	return Config{
		Session: session.DefaultConfig(),
		HTTP: authapi.Config{
			LandlordLoginURL:   "/landlord/login",
			TenantLoginURL:     "/login",
			FlashCookie:        "gatekeeper_flash",
			PermissiveFallback: true,
			StatsTTL:           defaultStatsTTL,
		},
		Resolution: ResolutionConfig{
			Enabled:            true,
			SubdomainDetection: true,
			TenantParameter:    "tenant",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
		},
		Throttle: throttle.Config{
			Attempts: 5,
			Window:   time.Minute,
		},
	}
}

func (c ResolutionConfig) resolver() tenant.Resolver {
	return tenant.NewRequestResolver(tenant.ResolutionConfig{
		SubdomainDetection: c.Enabled && c.SubdomainDetection,
		PathDetection:      c.Enabled && c.PathDetection,
		LandlordDomains:    c.LandlordDomains,
		TenantDomains:      c.TenantDomains,
		TenantParameter:    c.TenantParameter,
	})
}
