package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"time"
)

// Manager is the HTTP glue over a Store and Transport: it loads the
// session for a request, creates sessions on demand, and rotates tokens
// across privilege transitions.
type Manager struct {
	store     Store
	transport Transport
	config    Config
}

// Option is a functional option for configuring the Manager.
type Option func(*Manager)

// WithStore sets a custom session store.
func WithStore(store Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithTransport sets a custom session transport.
func WithTransport(transport Transport) Option {
	return func(m *Manager) {
		m.transport = transport
	}
}

// WithConfig sets custom configuration.
func WithConfig(config Config) Option {
	return func(m *Manager) {
		m.config = config
	}
}

// NewManager creates a session manager. Defaults to a memory store and a
// cookie transport when none are provided.
func NewManager(opts ...Option) *Manager {
	m := &Manager{config: DefaultConfig()}

	for _, opt := range opts {
		opt(m)
	}

	if m.store == nil {
		m.store = NewMemoryStore(m.config.CleanupInterval)
	}
	if m.transport == nil {
		m.transport = NewCookieTransport(m.config.CookieName, m.config.SecureCookies)
	}

	return m
}

// Store exposes the underlying store for guard operations.
func (m *Manager) Store() Store {
	return m.store
}

// Get retrieves the valid session for a request.
func (m *Manager) Get(ctx context.Context, r *http.Request) (*Session, error) {
	token, err := m.transport.GetToken(r)
	if err != nil {
		return nil, err
	}

	session, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	if session.IsExpired() {
		return nil, ErrSessionExpired
	}

	return session, nil
}

// Ensure retrieves the request's session or creates a new anonymous one.
func (m *Manager) Ensure(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	session, err := m.Get(ctx, r)
	if err == nil {
		return session, nil
	}
	_ = m.transport.ClearToken(w)

	session, err = m.create(ctx)
	if err != nil {
		return nil, err
	}

	idle, _ := m.config.GetTimeouts(false)
	if err := m.transport.SetToken(w, session.Token, idle); err != nil {
		_ = m.store.Delete(ctx, session.Token)
		return nil, err
	}

	return session, nil
}

// Rotate replaces the session token in place. Called on privilege
// transitions (login, context switch) to defeat session fixation.
func (m *Manager) Rotate(ctx context.Context, w http.ResponseWriter, session *Session) error {
	if session == nil || session.Token == "" {
		return ErrInvalidSession
	}

	newToken, err := generateToken()
	if err != nil {
		return err
	}

	oldToken := session.Token
	session.Token = newToken
	idle, max := m.config.GetTimeouts(session.IsAuthenticated())
	session.ExpiresAt = calculateExpiry(session.CreatedAt, time.Now(), idle, max)
	session.Touch()

	if err := m.store.Create(ctx, session); err != nil {
		session.Token = oldToken
		return err
	}
	_ = m.store.Delete(ctx, oldToken)

	return m.transport.SetToken(w, session.Token, idle)
}

// Save persists session data. Guard operations mutate session data in
// place and must call Save before the response is produced.
func (m *Manager) Save(ctx context.Context, session *Session) error {
	return m.store.Update(ctx, session)
}

// Destroy deletes the session and clears the client token.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	token, err := m.transport.GetToken(r)
	if err == nil && token != "" {
		_ = m.store.Delete(ctx, token)
	}

	return m.transport.ClearToken(w)
}

func (m *Manager) create(ctx context.Context) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	idle, max := m.config.GetTimeouts(false)
	now := time.Now()
	session := New(token, calculateExpiry(now, now, idle, max).Sub(now))

	if err := m.store.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// calculateExpiry returns the next expiry time (min of idle and max lifetime).
func calculateExpiry(createdAt, now time.Time, idle, max time.Duration) time.Time {
	idleExpiry := now.Add(idle)
	maxExpiry := createdAt.Add(max)

	if maxExpiry.Before(idleExpiry) {
		return maxExpiry
	}
	return idleExpiry
}

// generateToken creates a cryptographically secure token.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
