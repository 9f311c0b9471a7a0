package session

import (
	"net/http"
	"time"
)

// Transport defines how session tokens travel between client and server.
type Transport interface {
	// GetToken extracts the session token from the request.
	GetToken(r *http.Request) (string, error)

	// SetToken sends the session token in the response.
	SetToken(w http.ResponseWriter, token string, ttl time.Duration) error

	// ClearToken removes the session token from the response.
	ClearToken(w http.ResponseWriter) error
}

// CookieTransport carries the session token in an HttpOnly cookie.
// The token itself is 256 random bits, so the cookie carries no readable
// state worth encrypting.
type CookieTransport struct {
	Name   string
	Secure bool
}

// NewCookieTransport creates a cookie-based transport.
// An empty name falls back to "gatekeeper_session".
func NewCookieTransport(name string, secure bool) *CookieTransport {
	if name == "" {
		name = "gatekeeper_session"
	}
	return &CookieTransport{Name: name, Secure: secure}
}

func (t *CookieTransport) GetToken(r *http.Request) (string, error) {
	c, err := r.Cookie(t.Name)
	if err != nil || c.Value == "" {
		return "", ErrSessionNotFound
	}
	return c.Value, nil
}

func (t *CookieTransport) SetToken(w http.ResponseWriter, token string, ttl time.Duration) error {
	http.SetCookie(w, &http.Cookie{
		Name:     t.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   t.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (t *CookieTransport) ClearToken(w http.ResponseWriter) error {
	http.SetCookie(w, &http.Cookie{
		Name:     t.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   t.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// HeaderTransport carries the session token in a request/response header.
// Useful for API clients that do not keep a cookie jar.
type HeaderTransport struct {
	Name string
}

// NewHeaderTransport creates a header-based transport.
// An empty name falls back to "X-Session-Token".
func NewHeaderTransport(name string) *HeaderTransport {
	if name == "" {
		name = "X-Session-Token"
	}
	return &HeaderTransport{Name: name}
}

func (t *HeaderTransport) GetToken(r *http.Request) (string, error) {
	token := r.Header.Get(t.Name)
	if token == "" {
		return "", ErrSessionNotFound
	}
	return token, nil
}

func (t *HeaderTransport) SetToken(w http.ResponseWriter, token string, ttl time.Duration) error {
	w.Header().Set(t.Name, token)
	return nil
}

func (t *HeaderTransport) ClearToken(w http.ResponseWriter) error {
	w.Header().Del(t.Name)
	return nil
}
