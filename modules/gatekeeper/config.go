package gatekeeper

import (
	"time"

	"github.com/callcocam/gatekeeper/pkg/guard"
)

// Config holds the HTTP module settings. All fields have working
// defaults so a zero-config deployment serves the standard routes.
type Config struct {
	LandlordLoginURL string `env:"GATEKEEPER_LANDLORD_LOGIN_URL" envDefault:"/landlord/login"`
	TenantLoginURL   string `env:"GATEKEEPER_TENANT_LOGIN_URL" envDefault:"/login"`
	FlashCookie      string `env:"GATEKEEPER_FLASH_COOKIE" envDefault:"gatekeeper_flash"`

	// PermissiveFallback controls how permission checks treat users whose
	// records carry no permission data at all.
	PermissiveFallback bool `env:"GATEKEEPER_PERMISSIVE_FALLBACK" envDefault:"true"`

	// StatsTTL bounds how long dashboard statistics may be served from cache.
	StatsTTL time.Duration `env:"GATEKEEPER_STATS_TTL" envDefault:"5m"`
}

// MiddlewareConfig derives the guard middleware settings from the module config.
func (c Config) MiddlewareConfig() guard.MiddlewareConfig {
	cfg := guard.DefaultMiddlewareConfig()
	if c.LandlordLoginURL != "" {
		cfg.LandlordLoginURL = c.LandlordLoginURL
	}
	if c.TenantLoginURL != "" {
		cfg.TenantLoginURL = c.TenantLoginURL
	}
	if c.FlashCookie != "" {
		cfg.FlashCookie = c.FlashCookie
	}
	return cfg
}
