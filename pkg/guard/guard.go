package guard

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/callcocam/gatekeeper/pkg/audit"
	"github.com/callcocam/gatekeeper/pkg/logger"
	"github.com/callcocam/gatekeeper/pkg/session"
)

// AuthGuard is the surface shared by both guards. The orchestrator uses
// it to address whichever guard owns the session's current context.
type AuthGuard interface {
	Kind() Context
	Check(sess *session.Session) bool
	UserID(sess *session.Session) (uuid.UUID, bool)
	User(ctx context.Context, sess *session.Session) (User, bool)
	Logout(ctx context.Context, sess *session.Session) bool
}

// GuardOption configures a guard.
type GuardOption func(*guardCore)

// WithLogger sets the guard's structured logger.
func WithLogger(log *slog.Logger) GuardOption {
	return func(g *guardCore) {
		if log != nil {
			g.logger = log
		}
	}
}

// WithAudit sets the audit trail sink.
func WithAudit(trail audit.Logger) GuardOption {
	return func(g *guardCore) {
		if trail != nil {
			g.audit = trail
		}
	}
}

// WithPermissiveFallback controls permission checks for users that carry
// no permission data. True grants, false denies. Defaults to true.
func WithPermissiveFallback(permissive bool) GuardOption {
	return func(g *guardCore) {
		g.permissive = permissive
	}
}

// WithStatsTTL sets how long computed guard statistics stay cached.
func WithStatsTTL(ttl time.Duration) GuardOption {
	return func(g *guardCore) {
		if ttl > 0 {
			g.statsTTL = ttl
		}
	}
}

const defaultStatsTTL = 5 * time.Minute

type guardCore struct {
	kind       Context
	snapKey    string
	provider   IdentityProvider
	sessions   session.Store
	logger     *slog.Logger
	audit      audit.Logger
	permissive bool
	statsTTL   time.Duration
}

func newGuardCore(kind Context, snapKey string, provider IdentityProvider, sessions session.Store, opts []GuardOption) guardCore {
	if provider == nil {
		panic("guard: identity provider is required")
	}
	if sessions == nil {
		panic("guard: session store is required")
	}
	g := guardCore{
		kind:       kind,
		snapKey:    snapKey,
		provider:   provider,
		sessions:   sessions,
		logger:     logger.Noop(),
		audit:      audit.NewLogger(audit.NewSlogStorage(logger.Noop())),
		permissive: true,
		statsTTL:   defaultStatsTTL,
	}
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

func (g *guardCore) Kind() Context { return g.kind }

// Check requires both the context marker and this guard's snapshot.
// A session can satisfy at most one guard at a time.
func (g *guardCore) Check(sess *session.Session) bool {
	if sess == nil {
		return false
	}
	if currentContext(sess) != g.kind {
		return false
	}
	_, ok := sessionValue[UserSnapshot](sess, g.snapKey)
	return ok
}

func (g *guardCore) UserID(sess *session.Session) (uuid.UUID, bool) {
	if !g.Check(sess) {
		return uuid.Nil, false
	}
	snap, ok := sessionValue[UserSnapshot](sess, g.snapKey)
	if !ok {
		return uuid.Nil, false
	}
	return snap.ID, true
}

// User re-resolves the session's user through the provider, so revoked
// authority or removed membership shows up as an unauthenticated session.
func (g *guardCore) User(ctx context.Context, sess *session.Session) (User, bool) {
	id, ok := g.UserID(sess)
	if !ok {
		return nil, false
	}
	user, err := g.provider.RetrieveByID(ctx, id)
	if err != nil {
		return nil, false
	}
	return user, true
}

func (g *guardCore) snapshot(sess *session.Session) (UserSnapshot, bool) {
	return sessionValue[UserSnapshot](sess, g.snapKey)
}

// save persists the mutated session. Guards report persistence trouble
// but keep the in-memory session coherent for the rest of the request.
func (g *guardCore) save(ctx context.Context, sess *session.Session) {
	if err := g.sessions.Update(ctx, sess); err != nil {
		g.logger.ErrorContext(ctx, "session update failed", logger.Error(err), logger.GuardContext(string(g.kind)))
	}
}

// clearOwn removes this guard's markers without touching the other guard's.
func (g *guardCore) clearOwn(sess *session.Session) {
	sess.Delete(g.snapKey)
	if currentContext(sess) == g.kind {
		sess.Delete(SessionKeyContext)
	}
}

// ttlValue is a tiny single-value cache used for guard statistics.
type ttlValue[T any] struct {
	value   T
	expires time.Time
}

func (c *ttlValue[T]) get(now time.Time) (T, bool) {
	var zero T
	if c == nil || now.After(c.expires) {
		return zero, false
	}
	return c.value, true
}

func newTTLValue[T any](v T, now time.Time, ttl time.Duration) *ttlValue[T] {
	return &ttlValue[T]{value: v, expires: now.Add(ttl)}
}
