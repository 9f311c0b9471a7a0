package guard

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/callcocam/gatekeeper/pkg/logger"
	"github.com/callcocam/gatekeeper/pkg/tenant"
)

// UserStore is the minimal persistence surface identity providers need.
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}

// LandlordUserStore is an optional extension. Stores that can filter to
// landlord users in the query implement it; otherwise the provider
// filters in memory after the lookup.
type LandlordUserStore interface {
	FindLandlordByEmail(ctx context.Context, email string) (User, error)
}

// TenantUserStore is an optional extension for stores that can scope a
// lookup to a tenant's member set in the query.
type TenantUserStore interface {
	FindByEmailInTenant(ctx context.Context, email string, tenantID uuid.UUID) (User, error)
}

// IdentityProvider retrieves and validates users for one realm.
// Retrieval errors other than ErrUserNotFound mean infrastructure
// trouble; providers log them and report a non-match.
type IdentityProvider interface {
	RetrieveByID(ctx context.Context, id uuid.UUID) (User, error)
	RetrieveByCredentials(ctx context.Context, creds Credentials) (User, error)
	ValidateCredentials(ctx context.Context, user User, creds Credentials) bool
}

// ProviderOption configures an identity provider.
type ProviderOption func(*providerConfig)

type providerConfig struct {
	logger *slog.Logger
}

// WithProviderLogger sets the provider's logger. Defaults to a no-op.
func WithProviderLogger(log *slog.Logger) ProviderOption {
	return func(c *providerConfig) {
		if log != nil {
			c.logger = log
		}
	}
}

func newProviderConfig(opts []ProviderOption) providerConfig {
	cfg := providerConfig{logger: logger.Noop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// LandlordProvider retrieves operator-side users. Every retrieval and
// every credential validation re-verifies landlord authority, so a user
// stripped of the role mid-session stops matching immediately.
type LandlordProvider struct {
	store  UserStore
	logger *slog.Logger
}

// NewLandlordProvider panics when store is nil; the provider is built
// once at startup and a nil store is a programming error.
func NewLandlordProvider(store UserStore, opts ...ProviderOption) *LandlordProvider {
	if store == nil {
		panic("guard: landlord provider requires a user store")
	}
	cfg := newProviderConfig(opts)
	return &LandlordProvider{store: store, logger: cfg.logger}
}

func (p *LandlordProvider) RetrieveByID(ctx context.Context, id uuid.UUID) (User, error) {
	user, err := p.store.FindByID(ctx, id)
	if err != nil {
		return nil, p.degrade(ctx, err, "retrieve landlord by id")
	}
	if !HasLandlordAuthority(user) {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (p *LandlordProvider) RetrieveByCredentials(ctx context.Context, creds Credentials) (User, error) {
	if creds.HasOnlyPassword() {
		return nil, ErrNoIdentifier
	}
	column, value, ok := creds.Identifier()
	if !ok || column != "email" {
		return nil, ErrUserNotFound
	}

	var (
		user User
		err  error
	)
	if ls, filtered := p.store.(LandlordUserStore); filtered {
		user, err = ls.FindLandlordByEmail(ctx, value)
	} else {
		user, err = p.store.FindByEmail(ctx, value)
	}
	if err != nil {
		return nil, p.degrade(ctx, err, "retrieve landlord by credentials")
	}
	if !HasLandlordAuthority(user) {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (p *LandlordProvider) ValidateCredentials(ctx context.Context, user User, creds Credentials) bool {
	if user == nil {
		return false
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash(), []byte(creds.Password())) != nil {
		return false
	}
	return HasLandlordAuthority(user)
}

func (p *LandlordProvider) degrade(ctx context.Context, err error, op string) error {
	if errors.Is(err, ErrUserNotFound) {
		return ErrUserNotFound
	}
	p.logger.ErrorContext(ctx, "landlord provider lookup failed", logger.Error(err), slog.String("op", op))
	return ErrUserNotFound
}

// TenantProvider retrieves users within a single tenant's member set.
// The tenant comes from an explicit ForTenant binding or, failing that,
// the request context. With neither, every lookup misses.
type TenantProvider struct {
	store    UserStore
	tenantID uuid.UUID
	bound    bool
	logger   *slog.Logger
}

func NewTenantProvider(store UserStore, opts ...ProviderOption) *TenantProvider {
	if store == nil {
		panic("guard: tenant provider requires a user store")
	}
	cfg := newProviderConfig(opts)
	return &TenantProvider{store: store, logger: cfg.logger}
}

// ForTenant returns a copy bound to the given tenant. The receiver is
// unchanged, so a singleton provider can serve concurrent requests.
func (p *TenantProvider) ForTenant(id uuid.UUID) *TenantProvider {
	clone := *p
	clone.tenantID = id
	clone.bound = true
	return &clone
}

func (p *TenantProvider) resolveTenant(ctx context.Context) (uuid.UUID, bool) {
	if p.bound {
		return p.tenantID, true
	}
	if id, ok := tenant.IDFromContext(ctx); ok {
		return id, true
	}
	return uuid.Nil, false
}

func (p *TenantProvider) RetrieveByID(ctx context.Context, id uuid.UUID) (User, error) {
	tenantID, ok := p.resolveTenant(ctx)
	if !ok {
		return nil, ErrUserNotFound
	}
	user, err := p.store.FindByID(ctx, id)
	if err != nil {
		return nil, p.degrade(ctx, err, "retrieve tenant user by id")
	}
	if !belongsToTenant(user, tenantID) {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (p *TenantProvider) RetrieveByCredentials(ctx context.Context, creds Credentials) (User, error) {
	if creds.HasOnlyPassword() {
		return nil, ErrNoIdentifier
	}
	tenantID, ok := p.resolveTenant(ctx)
	if !ok {
		return nil, ErrUserNotFound
	}
	column, value, ok := creds.Identifier()
	if !ok || column != "email" {
		return nil, ErrUserNotFound
	}

	var (
		user User
		err  error
	)
	if ts, filtered := p.store.(TenantUserStore); filtered {
		user, err = ts.FindByEmailInTenant(ctx, value, tenantID)
	} else {
		user, err = p.store.FindByEmail(ctx, value)
	}
	if err != nil {
		return nil, p.degrade(ctx, err, "retrieve tenant user by credentials")
	}
	if !belongsToTenant(user, tenantID) {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (p *TenantProvider) ValidateCredentials(ctx context.Context, user User, creds Credentials) bool {
	if user == nil {
		return false
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash(), []byte(creds.Password())) != nil {
		return false
	}
	tenantID, ok := p.resolveTenant(ctx)
	if !ok {
		return false
	}
	return belongsToTenant(user, tenantID)
}

func (p *TenantProvider) degrade(ctx context.Context, err error, op string) error {
	if errors.Is(err, ErrUserNotFound) {
		return ErrUserNotFound
	}
	p.logger.ErrorContext(ctx, "tenant provider lookup failed", logger.Error(err), slog.String("op", op))
	return ErrUserNotFound
}

// belongsToTenant never falls back permissively. Membership is a hard
// boundary even when the user type carries no tenant information.
func belongsToTenant(u User, tenantID uuid.UUID) bool {
	m, ok := u.(TenantMember)
	if !ok {
		return false
	}
	return m.BelongsToTenant(tenantID)
}
