package guard

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/callcocam/gatekeeper/pkg/session"
)

// Context is the active base identity kind for a session.
type Context string

const (
	ContextNone     Context = ""
	ContextLandlord Context = "landlord"
	ContextTenant   Context = "tenant"
)

// Session keys written by the guards. The exact names are a contract:
// any reimplementation must use them verbatim to interoperate.
const (
	SessionKeyContext         = "current_context"
	SessionKeyCurrentTenant   = "current_tenant"
	SessionKeyCurrentTenantID = "current_tenant_id"
	SessionKeyLandlordUser    = "landlord_user"
	SessionKeyTenantUser      = "tenant_user"
	SessionKeyImpersonation   = "landlord_impersonating_tenant"
	SessionKeyDebugMode       = "landlord_debug_mode"
)

// SessionKeys returns every key the guards may write.
// LogoutAll removes each of them.
func SessionKeys() []string {
	return []string{
		SessionKeyContext,
		SessionKeyCurrentTenant,
		SessionKeyCurrentTenantID,
		SessionKeyLandlordUser,
		SessionKeyTenantUser,
		SessionKeyImpersonation,
		SessionKeyDebugMode,
	}
}

// UserSnapshot is the per-guard user record kept in the session under
// "landlord_user" or "tenant_user".
type UserSnapshot struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	IsLandlord bool       `json:"is_landlord,omitempty"`
	IsTenant   bool       `json:"is_tenant,omitempty"`
	TenantID   *uuid.UUID `json:"tenant_id,omitempty"`
	LoginAt    time.Time  `json:"login_at"`
}

// ImpersonationRecord tracks an operator temporarily viewing a tenant.
// It lives only in the landlord's session, never in a tenant's.
type ImpersonationRecord struct {
	TenantID        uuid.UUID `json:"tenant_id"`
	TenantName      string    `json:"tenant_name"`
	StartedAt       time.Time `json:"started_at"`
	OriginalContext Context   `json:"original_context"`
}

// sessionValue reads a typed value out of session data. Values may be
// present as the original struct (memory store) or as decoded JSON maps
// (Redis/Postgres stores), so a round-trip fallback handles the latter.
func sessionValue[T any](s *session.Session, key string) (T, bool) {
	var zero T

	raw, ok := s.Get(key)
	if !ok {
		return zero, false
	}

	if typed, ok := raw.(T); ok {
		return typed, true
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return zero, false
	}
	return out, true
}

// currentContext reads and validates the context marker.
func currentContext(s *session.Session) Context {
	v, ok := s.GetString(SessionKeyContext)
	if !ok {
		return ContextNone
	}
	switch Context(v) {
	case ContextLandlord:
		return ContextLandlord
	case ContextTenant:
		return ContextTenant
	default:
		return ContextNone
	}
}
