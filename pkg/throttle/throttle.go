// Package throttle rate-limits authentication attempts with a token
// bucket per key. Keys combine the login identifier and client IP so an
// attacker cannot lock a victim out from a different address.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidConfig = errors.New("throttle.invalid_config")
	ErrStoreFailure  = errors.New("throttle.store_failure")
)

// Config describes the allowed attempt budget: Attempts per Window,
// with the full budget also acting as the burst capacity.
type Config struct {
	Attempts int           `env:"THROTTLE_LOGIN_ATTEMPTS" envDefault:"5"`
	Window   time.Duration `env:"THROTTLE_LOGIN_WINDOW" envDefault:"1m"`
}

func (c Config) validate() error {
	if c.Attempts <= 0 {
		return fmt.Errorf("%w: attempts must be positive, got %d", ErrInvalidConfig, c.Attempts)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %v", ErrInvalidConfig, c.Window)
	}
	return nil
}

// Result reports the outcome of a single attempt consumption.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allowed reports whether the attempt fit in the budget.
func (r Result) Allowed() bool { return r.Remaining >= 0 }

// RetryAfter returns how long the caller must wait. Zero when allowed.
func (r Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Store persists bucket state. A negative remaining count means the
// attempt exceeded the budget.
type Store interface {
	Consume(ctx context.Context, key string, cfg Config) (remaining int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}

// Limiter consumes one attempt per Allow call against its store.
type Limiter struct {
	store Store
	cfg   Config
}

func NewLimiter(store Store, cfg Config) (*Limiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}
	return &Limiter{store: store, cfg: cfg}, nil
}

func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	remaining, resetAt, err := l.store.Consume(ctx, key, l.cfg)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return Result{Limit: l.cfg.Attempts, Remaining: remaining, ResetAt: resetAt}, nil
}

// Reset clears the budget for a key, typically after a successful login.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}

// maxKeyLength caps stored keys; longer keys are hashed.
const maxKeyLength = 64

// LoginKey builds the throttle key for a login attempt.
func LoginKey(identifier, ip string) string {
	key := strings.ToLower(strings.TrimSpace(identifier))
	if ip != "" {
		key += ":" + ip
	}
	if len(key) > maxKeyLength {
		h := fnv.New64a()
		h.Write([]byte(key))
		return strconv.FormatUint(h.Sum64(), 36)
	}
	return key
}
