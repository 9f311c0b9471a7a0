// Package config loads application configuration from environment
// variables, with optional .env files for local development.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
// annotate a struct with env tags, call Load, and the parsed copy is
// cached so each configuration type is parsed once per process.
//
//	type SessionConfig struct {
//		CookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"gatekeeper_session"`
//		IdleTTL    time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
//	}
//
//	var cfg SessionConfig
//	config.MustLoad(&cfg)
//
// ResetCache clears the cache between tests.
package config
